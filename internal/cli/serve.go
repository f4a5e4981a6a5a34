package cli

import (
	"github.com/spf13/cobra"

	"github.com/pkgscout/pkgscout/internal/server"
)

// serveCommand creates the HTTP API server command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long:  `Start an HTTP server exposing /v1/search and /v1/sources over the configured package sources. The server runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			agg, backend, cfg, err := c.buildAggregate(ctx, noCache, nil)
			if err != nil {
				return err
			}
			defer backend.Close()

			sources := make([]server.SourceInfo, 0, len(cfg.Sources))
			for _, src := range cfg.Sources {
				sources = append(sources, server.SourceInfo{
					Name:     src.Name,
					Kind:     src.Kind,
					Disabled: src.Disabled,
				})
			}

			srv := server.New(agg, sources, c.Logger)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")

	return cmd
}
