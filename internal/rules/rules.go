// Package rules loads named attribute filters from YAML files so scripts
// and the CLI can reference predicates by name instead of inlining CEL.
package rules

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/graphmill/graphmill/pkg/graph"
)

// Rule is one user-defined filter: a name and a CEL condition over
// node/edge attributes.
type Rule struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Set holds compiled filters keyed by rule name.
type Set struct {
	filters map[string]*graph.Filter
}

// Load reads and compiles a rule file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return Parse(data)
}

// Parse compiles rules from YAML bytes. Every rule must compile; a single
// bad expression fails the whole set.
func Parse(data []byte) (*Set, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	set := &Set{filters: make(map[string]*graph.Filter, len(rf.Rules))}
	for _, r := range rf.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rules: rule with empty name (expr %q)", r.Expr)
		}
		if _, dup := set.filters[r.Name]; dup {
			return nil, fmt.Errorf("rules: duplicate rule %q", r.Name)
		}
		f, err := graph.NewFilter(r.Expr)
		if err != nil {
			return nil, fmt.Errorf("rules: rule %q: %w", r.Name, err)
		}
		set.filters[r.Name] = f
	}
	return set, nil
}

// Filter returns the compiled filter for a rule name.
func (s *Set) Filter(name string) (*graph.Filter, bool) {
	if s == nil {
		return nil, false
	}
	f, ok := s.filters[name]
	return f, ok
}

// Names lists the rule names, sorted.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.filters))
	for n := range s.filters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
