// Package cli defines the cobra command tree for pool-route.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/client"
	"github.com/evcraddock/pool-route/internal/db"
	"github.com/evcraddock/pool-route/internal/product"
	"github.com/evcraddock/pool-route/internal/rest"
	"github.com/evcraddock/pool-route/internal/schedule"
	"github.com/evcraddock/pool-route/internal/store"
	"github.com/evcraddock/pool-route/internal/visit"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pool",
		Short: "Plan and record pool maintenance visits",
		Long: `Plan and record pool maintenance visits. See which clients are due today,
open a visit, record water readings and products, and close it.

Data lives in a local SQLite database by default. Set POOL_DATABASE_URL to use
Postgres directly, or POOL_SERVER_URL and POOL_API_KEY to use a REST backend
(a hosted Supabase project or another machine running 'pool serve').`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagFormat != "text" && flagFormat != "json" {
				return fmt.Errorf("invalid --format %q (use text or json)", flagFormat)
			}
			return loadEnvFile()
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path; forces the local backend (default: ~/.pool-route/pool.db)")

	root.AddCommand(
		newTodayCmd(),
		newClientsCmd(),
		newProductsCmd(),
		newVisitCmd(),
		newServeCmd(),
		newKeygenCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// app bundles the selected backend with the services built on it.
type app struct {
	store   store.Store
	backend string
	// remote is set for the REST backend.
	remote bool
	apiKey string
	loc    *time.Location
	close  func()
}

// openApp selects the backend: --db forces SQLite, then POOL_DATABASE_URL
// selects Postgres, then a server URL selects REST, and otherwise the
// default SQLite database is used. An unreadable config file is an error.
func openApp(ctx context.Context) (*app, error) {
	loc, err := getLocation()
	if err != nil {
		return nil, err
	}
	displayLocation = loc

	if flagDB == "" {
		dsn, err := getDatabaseURL()
		if err != nil {
			return nil, err
		}
		url, err := getServerURL()
		if err != nil {
			return nil, err
		}
		if dsn == "" && url != "" {
			key, err := getAPIKey()
			if err != nil {
				return nil, err
			}
			return &app{
				store:   rest.New(url, key),
				backend: "rest " + url,
				remote:  true,
				apiKey:  key,
				loc:     loc,
				close:   func() {},
			}, nil
		}
	}

	st, backend, closeFn, err := openLocalStore(ctx)
	if err != nil {
		return nil, err
	}
	return &app{store: st, backend: backend, loc: loc, close: closeFn}, nil
}

// openLocalStore opens the SQL backend: SQLite for --db or when no
// Postgres URL is configured, Postgres otherwise.
func openLocalStore(ctx context.Context) (*store.SQLStore, string, func(), error) {
	if flagDB == "" {
		dsn, err := getDatabaseURL()
		if err != nil {
			return nil, "", nil, err
		}
		if dsn != "" {
			database, err := db.OpenPostgres(ctx, dsn)
			if err != nil {
				return nil, "", nil, err
			}
			return store.NewSQLStore(database, store.Postgres), "postgres", func() { closeDB(database) }, nil
		}
	}

	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, "", nil, err
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, "", nil, err
	}
	return store.NewSQLStore(database, store.SQLite), "sqlite " + path, func() { closeDB(database) }, nil
}

func (a *app) clients() *client.Repository {
	return client.NewRepository(a.store)
}

func (a *app) products() *product.Repository {
	return product.NewRepository(a.store)
}

func (a *app) visits() *visit.Manager {
	return visit.NewManager(a.store, a.loc)
}

func (a *app) resolver() *schedule.Resolver {
	return schedule.NewResolver(a.store, a.loc)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// parseID parses a positive row ID argument.
func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", kind, s)
	}
	return id, nil
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
