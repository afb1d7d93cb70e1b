package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/graphmill/graphmill/internal/rules"
	"github.com/graphmill/graphmill/internal/script"
	"github.com/graphmill/graphmill/pkg/graph"
	"github.com/graphmill/graphmill/pkg/metrics"
	"github.com/graphmill/graphmill/pkg/telemetry"
)

var (
	rulesFile     string
	snapshotAfter bool
	snapshotDir   string
	withMetrics   bool
	otelEndpoint  string
	skipTelemetry bool
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

var RunCmd = &cobra.Command{
	Use:   "run <script.hcl>",
	Short: "Execute a graph operation script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if !skipTelemetry {
			shutdown, err := telemetry.Init(ctx, CurrentVersion, otelEndpoint)
			if err != nil {
				slog.Warn("telemetry init failed", "error", err)
			} else {
				defer func() {
					shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					shutdown(shutCtx)
				}()
			}
		}

		var set *rules.Set
		if rulesFile != "" {
			var err error
			set, err = rules.Load(rulesFile)
			if err != nil {
				return err
			}
			slog.Debug("loaded rules", "count", len(set.Names()), "file", rulesFile)
		}

		file, err := script.ParseFile(args[0])
		if err != nil {
			return err
		}
		if snapshotDir == "" {
			snapshotDir = viper.GetString("snapshot_dir")
		}
		if snapshotDir != "" || snapshotAfter {
			if file.Graph == nil {
				file.Graph = &script.GraphBlock{Directed: true}
			}
			if snapshotDir != "" {
				file.Graph.SnapshotDir = snapshotDir
			}
		}

		res, err := script.NewRunner(set).Run(ctx, file)
		if err != nil {
			return err
		}
		g := res.Graph

		if snapshotAfter {
			path, err := g.Snapshot(snapshotDir)
			if err != nil {
				return err
			}
			slog.Info("snapshot written", "path", path)
		}

		printSummary(g, res)
		if withMetrics {
			return printMetrics(g)
		}
		return nil
	},
}

func init() {
	RunCmd.Flags().StringVar(&rulesFile, "rules", "", "YAML file of named attribute filters")
	RunCmd.Flags().BoolVar(&snapshotAfter, "snapshot", false, "Write a snapshot after the run")
	RunCmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "Snapshot directory")
	RunCmd.Flags().BoolVar(&withMetrics, "metrics", false, "Print graph metrics after the run")
	RunCmd.Flags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP trace endpoint")
	RunCmd.Flags().BoolVar(&skipTelemetry, "skip-telemetry", false, "Disable tracing entirely")

	viper.BindPFlag("snapshot_dir", RunCmd.Flags().Lookup("snapshot-dir"))
}

func printSummary(g *graph.Graph, res script.Result) {
	fmt.Println(headerStyle.Render("graphmill run"))
	row("Directed", fmt.Sprintf("%t", g.Directed()))
	row("Nodes", fmt.Sprintf("%d", g.NodeCount()))
	row("Edges", fmt.Sprintf("%d", g.EdgeCount()))
	row("Version", fmt.Sprintf("%d", g.Version()))
	row("Ops applied", fmt.Sprintf("%d", res.Applied))
	if res.Misses > 0 {
		row("Empty traversals", fmt.Sprintf("%d", res.Misses))
	}
	sel := g.Selection()
	if !sel.Empty() {
		row("Selected nodes", formatIDs(sel.Nodes))
		row("Selected edges", formatIDs(sel.Edges))
	}
	if entries := g.Log(); len(entries) > 0 {
		tail := entries
		if len(tail) > 5 {
			tail = tail[len(tail)-5:]
		}
		fmt.Println(headerStyle.Render("log tail"))
		for _, e := range tail {
			row(fmt.Sprintf("v%d", e.Version),
				fmt.Sprintf("%s (nodes=%d edges=%d)", e.Function, e.Nodes, e.Edges))
		}
	}
}

func printMetrics(g *graph.Graph) error {
	deg, err := metrics.Degree(g)
	if err != nil {
		return err
	}
	pr, err := metrics.PageRank(g, metrics.DefaultDamping, metrics.DefaultTolerance)
	if err != nil {
		return err
	}
	fmt.Println(headerStyle.Render("metrics"))
	for _, n := range g.Nodes() {
		row(fmt.Sprintf("node %d", n.ID),
			fmt.Sprintf("degree=%.0f pagerank=%.4f", deg[n.ID], pr[n.ID]))
	}
	if r, ok, err := metrics.Reciprocity(g); err != nil {
		return err
	} else if ok {
		row("Reciprocity", fmt.Sprintf("%.4f", r))
	} else {
		row("Reciprocity", "undefined (no edges)")
	}
	return nil
}

func row(label, value string) {
	fmt.Fprintf(os.Stdout, "  %s %s\n",
		labelStyle.Render(fmt.Sprintf("%-16s", label)),
		valueStyle.Render(value))
}

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
