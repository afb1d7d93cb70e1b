package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphmill/graphmill/pkg/graph"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.json>",
	Short: "Inspect a graph snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := graph.LoadSnapshot(args[0])
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render("snapshot"))
		row("Session", g.Conf().Session)
		row("Directed", fmt.Sprintf("%t", g.Directed()))
		row("Version", fmt.Sprintf("%d", g.Version()))
		row("Nodes", fmt.Sprintf("%d", g.NodeCount()))
		row("Edges", fmt.Sprintf("%d", g.EdgeCount()))
		row("Actions", fmt.Sprintf("%d", len(g.GraphActions())))
		row("Log entries", fmt.Sprintf("%d", len(g.Log())))
		sel := g.Selection()
		if !sel.Empty() {
			row("Selected nodes", formatIDs(sel.Nodes))
			row("Selected edges", formatIDs(sel.Edges))
		}
		return nil
	},
}
