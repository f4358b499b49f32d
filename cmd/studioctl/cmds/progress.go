package cmds

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress [run-id]",
		Short: "Describe the progress of a run (defaults to the active run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			p, err := a.console.Snapshot(cmd.Context(), a.cfg.Project, runID)
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd, map[string]any{
					"run_id":      p.ActiveRunID,
					"progress":    p.Progress,
					"stage_order": p.StageOrder,
					"concern":     p.Concern,
					"errors":      p.Errors,
				})
			}

			printErrors(cmd, p.Errors)
			out := cmd.OutOrStdout()
			if p.ActiveRunID == "" {
				_, _ = fmt.Fprintln(out, "no active run (pass a run id or start one with `studioctl runs start`)")
				return nil
			}
			_, _ = fmt.Fprintf(out, "%s: %s\n", p.ActiveRunID, p.Progress)
			if len(p.StageOrder) > 0 {
				_, _ = fmt.Fprintf(out, "stages: %s\n", strings.Join(p.StageOrder, " → "))
			}
			return nil
		},
	}
}
