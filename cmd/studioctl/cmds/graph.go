package cmds

import (
	"fmt"

	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the pipeline graph of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}

			p, err := a.console.Snapshot(cmd.Context(), a.cfg.Project, "")
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd, map[string]any{"phases": p.Phases, "nodes": p.Nodes, "errors": p.Errors})
			}

			printErrors(cmd, p.Errors)
			out := cmd.OutOrStdout()
			for _, ph := range p.Phases {
				_, _ = fmt.Fprintf(out, "%s %s  [%s %d/%d]\n", styles.PhaseIcon(string(ph.Status)), ph.Label, ph.Status, ph.CompletedCount, ph.ImplementedCount)
				for _, n := range p.Nodes {
					if n.PhaseID != ph.ID {
						continue
					}
					line := fmt.Sprintf("  %s %-28s %-16s %d", styles.NodeIcon(string(n.Status)), n.Label, n.Status, n.ArtifactCount)
					if n.StaleReason != "" {
						line += "  " + n.StaleReason
					}
					if n.FixRecipe != "" && n.StaleReason != "" {
						line += fmt.Sprintf(" (fix: %s)", n.FixRecipe)
					}
					_, _ = fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
}
