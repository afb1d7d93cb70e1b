// Package script parses and executes graphmill operation scripts: HCL
// files holding an optional graph settings block followed by ordered op
// blocks, each op applying one graph operation to the value produced by
// the previous one.
//
//	graph { directed = true }
//
//	op "add_node" { handle = "a", attrs = { label = "A", value = 3 } }
//	op "add_node" { handle = "b" }
//	op "add_edge" { from = "a", to = "b" }
//	op "select_nodes" { where = "attrs.value > 2" }
//	op "trav_out" {}
//	op "set_node_attr_ws" { key = "seen", value = true }
package script

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// File is a parsed script: settings plus ops in source order.
type File struct {
	Graph *GraphBlock
	Ops   []*Op
}

// GraphBlock configures the graph value the script starts from.
type GraphBlock struct {
	Directed     bool   `hcl:"directed,optional"`
	AutoSnapshot bool   `hcl:"auto_snapshot,optional"`
	SnapshotDir  string `hcl:"snapshot_dir,optional"`
}

// Op is one operation block. Kind selects the operation; the body is
// decoded per kind at execution time.
type Op struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

type scriptFile struct {
	Graph *GraphBlock `hcl:"graph,block"`
	Ops   []*Op       `hcl:"op,block"`
}

// ParseFile reads a script from disk.
func ParseFile(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse script %s: %s", path, diags.Error())
	}
	return decode(hclFile.Body, path)
}

// Parse decodes a script from bytes. filename only labels diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse script %s: %s", filename, diags.Error())
	}
	return decode(hclFile.Body, filename)
}

func decode(body hcl.Body, filename string) (*File, error) {
	var sf scriptFile
	if diags := gohcl.DecodeBody(body, nil, &sf); diags.HasErrors() {
		return nil, fmt.Errorf("decode script %s: %s", filename, diags.Error())
	}
	return &File{Graph: sf.Graph, Ops: sf.Ops}, nil
}

// ctyToGo lowers an HCL value into the attribute value domain: bool,
// string, int64/float64, []any, map[string]any, or nil.
func ctyToGo(v cty.Value) (any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("unknown value")
	}
	t := v.Type()
	switch {
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	case t.IsMapType() || t.IsObjectType():
		out := make(map[string]any)
		for k, ev := range v.AsValueMap() {
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = gv
		}
		return out, nil
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		var out []any
		for _, ev := range v.AsValueSlice() {
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
}

func ctyToAttrs(v cty.Value) (map[string]any, error) {
	gv, err := ctyToGo(v)
	if err != nil {
		return nil, err
	}
	if gv == nil {
		return nil, nil
	}
	attrs, ok := gv.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an attribute mapping, got %T", gv)
	}
	return attrs, nil
}
