package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engraver/internal/server"
	"github.com/matzehuels/engraver/pkg/cache"
	"github.com/matzehuels/engraver/pkg/pipeline"
)

// serveCommand creates the serve command running the HTTP layout server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		redisURL string
		noCache  bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP layout server",
		Long: `Run the HTTP layout server.

POST a JSON tune or book to /v1/layout to receive its sheets and a job id;
GET /v1/sheets/{id} returns them again later. With --redis (or
ENGRAVER_REDIS_URL) sheets and jobs are kept in Redis and shared between
instances; otherwise the local file cache is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if redisURL == "" {
				redisURL = os.Getenv("ENGRAVER_REDIS_URL")
			}

			var store cache.Cache
			var err error
			if redisURL != "" && !noCache {
				store, err = cache.NewRedisCache(ctx, redisURL)
			} else {
				store, err = newCache(noCache)
			}
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(store, nil, c.Logger)
			defer runner.Close()

			opts.Logger = c.Logger
			srv, err := server.New(runner, opts)
			if err != nil {
				return err
			}
			printInfo("Serving on %s", addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisURL, "redis", "", "Redis URL for the shared cache (redis://host:port/db)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching (jobs cannot be fetched again)")
	policyFlags(cmd, &opts)
	return cmd
}
