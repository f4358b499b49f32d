package cmds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/studioctl/pkg/action"
	"github.com/go-go-golems/studioctl/pkg/chat"
	"github.com/go-go-golems/studioctl/pkg/config"
	"github.com/go-go-golems/studioctl/pkg/console"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/engine"
	"github.com/go-go-golems/studioctl/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("root", "", "Working directory for config and state (defaults to current directory)")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to studioctl.yaml under root)")
	root.PersistentFlags().String("engine-url", "", "Base URL of the production engine")
	root.PersistentFlags().String("project", "", "Project id")
	root.PersistentFlags().String("state-dir", "", "Directory for local console state")
	root.PersistentFlags().String("catalog", "", "Phase catalog YAML (defaults to the built-in catalog)")
	root.PersistentFlags().Duration("timeout", 15*time.Second, "Timeout for engine requests")
	root.PersistentFlags().Bool("json", false, "Print JSON instead of text")
}

// app holds everything a command needs to talk to the engine and derive
// projections.
type app struct {
	cfg     *config.Config
	client  *engine.HTTPClient
	stores  *state.Stores
	catalog *derive.Catalog
	console *console.Console
	json    bool
}

func loadApp(cmd *cobra.Command) (*app, error) {
	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return nil, err
	}
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root, cfgPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Str("config", cfg.ConfigFile).Str("engine", cfg.EngineURL).Str("project", cfg.Project).Msg("config loaded")

	client, err := engine.NewHTTPClient(engine.Options{BaseURL: cfg.EngineURL, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	stores, err := state.Open(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	catalog, err := derive.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	c, err := console.New(console.Options{Client: client, Catalog: catalog, Stores: stores, Interval: cfg.PollInterval, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, client: client, stores: stores, catalog: catalog, console: c, json: asJSON}, nil
}

func (a *app) Close() {
	a.console.Close()
}

func (a *app) guard() (*action.Guard, error) {
	return action.NewGuard(action.Options{Confirmer: a.client, Messages: a.stores.Messages, Runs: a.stores.ActiveRuns})
}

func (a *app) session() *chat.Session {
	return chat.NewSession(a.client, a.stores.Messages)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

// printErrors reports per-resource fetch failures on stderr.
func printErrors(cmd *cobra.Command, errs map[string]string) {
	for k, v := range errs {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", k, v)
	}
}
