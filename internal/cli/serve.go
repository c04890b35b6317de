package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/logging"
	"github.com/evcraddock/pool-route/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int
	var apiKey string
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local database over the REST API",
		Long: `Start an HTTP server exposing the local database (SQLite, or Postgres when
POOL_DATABASE_URL is set) over the same REST API the CLI uses for remote
backends. Other machines can then point POOL_SERVER_URL at it.

Requests to /rest/v1/ must carry the API key from --api-key or POOL_API_KEY.
/health and /metrics are public.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = os.Getenv(envAPIKey)
			}
			return runServe(cmd.Context(), port, apiKey, dev)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key clients must send (default: $POOL_API_KEY)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development mode: text logs at debug level")

	return cmd
}

func runServe(ctx context.Context, port int, apiKey string, dev bool) error {
	logging.Setup(dev)

	if apiKey == "" && !dev {
		return fmt.Errorf("an API key is required (set --api-key or %s, or use --dev)", envAPIKey)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, backend, closeFn, err := openLocalStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	slog.Info("serving data store", "backend", backend, "port", port, "auth", apiKey != "")
	return web.NewServer(st, web.Config{APIKey: apiKey}).ListenAndServe(ctx, port)
}
