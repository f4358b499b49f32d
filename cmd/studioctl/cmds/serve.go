package cmds

import (
	"github.com/go-go-golems/studioctl/pkg/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve graph, inbox and progress projections over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := server.New(server.Config{Addr: a.cfg.Listen, Source: a.console})
			if err != nil {
				return err
			}
			log.Info().Str("addr", a.cfg.Listen).Str("engine", a.cfg.EngineURL).Msg("serving projections")
			return srv.Serve(cmd.Context())
		},
	}
	cmd.Flags().String("listen", "127.0.0.1:8787", "Address to listen on")
	return cmd
}
