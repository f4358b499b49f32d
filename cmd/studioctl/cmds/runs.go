package cmds

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-go-golems/studioctl/pkg/patch"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and start engine runs",
	}
	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsStartCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the runs of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}

			runs, err := a.client.ListRuns(cmd.Context(), a.cfg.Project)
			if err != nil {
				return err
			}
			active, _ := a.stores.ActiveRuns.ActiveRun(a.cfg.Project)
			if a.json {
				return printJSON(cmd, map[string]any{"runs": runs, "active_run_id": active})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "no runs")
				return nil
			}
			for _, r := range runs {
				marker := " "
				if r.RunID == active {
					marker = "*"
				}
				started := "-"
				if ms := protocol.MillisOrZero(r.StartedAt); ms > 0 {
					started = time.UnixMilli(ms).Format("2006-01-02 15:04:05")
				}
				_, _ = fmt.Fprintf(out, "%s %-24s %-10s %-22s %s  $%.2f\n", marker, r.RunID, r.Status, r.RecipeID, started, r.TotalCostUSD)
			}
			return nil
		},
	}
}

func newRunsStartCmd() *cobra.Command {
	var (
		inputFile    string
		recipe       string
		acceptConfig string
		sets         []string
		unsets       []string
		noFollow     bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a run and make it the active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireProject(); err != nil {
				return err
			}
			if recipe == "" {
				return errors.New("--recipe is required")
			}

			req := protocol.StartRunRequest{
				ProjectID:    a.cfg.Project,
				InputFile:    inputFile,
				RecipeID:     recipe,
				DefaultModel: a.cfg.DefaultModel,
			}
			if acceptConfig != "" {
				cfg, err := readAcceptConfig(acceptConfig)
				if err != nil {
					return err
				}
				req.AcceptConfig = cfg
			}
			overrides, err := patch.Parse(sets, unsets)
			if err != nil {
				return err
			}
			if !overrides.Empty() {
				req.AcceptConfig, err = patch.Apply(req.AcceptConfig, overrides)
				if err != nil {
					return errors.Wrap(err, "apply accept-config overrides")
				}
			}

			resp, err := a.client.StartRun(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !noFollow {
				if err := a.stores.ActiveRuns.SetActiveRun(a.cfg.Project, resp.RunID); err != nil {
					return err
				}
			}
			if a.json {
				return printJSON(cmd, resp)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "started run %s\n", resp.RunID)
			return nil
		},
	}
	cmd.Flags().StringVar(&inputFile, "input-file", "", "Source document to ingest")
	cmd.Flags().StringVar(&recipe, "recipe", "", "Recipe id to run")
	cmd.Flags().String("model", "", "Default model for the run's stages")
	cmd.Flags().StringVar(&acceptConfig, "accept-config", "", "Inline JSON or path to a YAML/JSON file with stage acceptance settings")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override an accept-config key (dotted.key=value, repeatable)")
	cmd.Flags().StringArrayVar(&unsets, "unset", nil, "Remove an accept-config key (dotted.key, repeatable)")
	cmd.Flags().BoolVar(&noFollow, "no-follow", false, "Do not make the new run the active run")
	return cmd
}

// readAcceptConfig accepts inline JSON or a YAML/JSON file path.
func readAcceptConfig(v string) (map[string]any, error) {
	var out map[string]any
	if json.Valid([]byte(v)) {
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, errors.Wrap(err, "parse --accept-config")
		}
		return out, nil
	}
	b, err := os.ReadFile(v)
	if err != nil {
		return nil, errors.Wrap(err, "read --accept-config")
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrapf(err, "parse %s", v)
	}
	return out, nil
}
