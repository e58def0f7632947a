package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/waterfall/internal/server"
	"github.com/matzehuels/waterfall/pkg/cache"
)

const defaultAddr = "127.0.0.1:8080"

// serveCommand creates the serve command, which exposes packing over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		namespace string
		layout    layoutFlags
		caching   cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the packing API over HTTP",
		Long: `Serve the packing API over HTTP.

Endpoints:
  GET  /healthz                  build information
  POST /v1/pack                  pack {"columns":..,"items":[..]}
  GET  /v1/layouts/{hash}        cached layout for a measurement hash
  GET  /v1/layouts/{hash}/chart  column chart (format=html|png)

Layout flags and the config file set the defaults for requests that omit
an option. Use --redis to share the layout cache between instances and
--namespace to keep separate deployments apart in one Redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.resolve(cmd, &layout)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			runner, err := c.newRunner(ctx, caching)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()
			if namespace != "" {
				runner.Keyer = cache.NewScopedKeyer(runner.Keyer, namespace+":")
			}

			printInfo("Listening on %s", StyleLink.Render("http://"+addr))
			return server.New(runner, opts, loggerFromContext(ctx)).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", defaultAddr, "listen address")
	cmd.Flags().StringVar(&namespace, "namespace", "", "prefix for cache keys")
	layout.register(cmd, false)
	caching.register(cmd)

	return cmd
}
