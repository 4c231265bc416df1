// Package cmd wires the CLI surface: batch loading, partition
// reconciliation and ledger inspection.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"marketsync/cache"
	"marketsync/catalog"
	"marketsync/config"
	"marketsync/database"
	"marketsync/provider"
	"marketsync/sync"
)

var rootCMD = &cobra.Command{
	Use:   "marketsync",
	Short: "Market data synchronization and reconciliation tool",
	Long: `marketsync pulls reference and time-series market data from the
configured provider into PostgreSQL, batch by batch, and reconciles stored
partitions against the expected instrument universe.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}

// engine bundles everything a subcommand needs once wiring is done
type engine struct {
	cfg     *config.Config
	db      *database.Database
	manager *database.Manager
	store   sync.Store
	client  *provider.HTTPClient
	catalog *catalog.Catalog
	redis   *cache.RedisClient
}

// wire builds the full engine from environment configuration. The returned
// cleanup closes the database and Redis connections.
func wire() (*engine, func(), error) {
	cfg := config.LoadFromEnv()

	db, err := database.Connect(cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseName, cfg.DatabaseUser, cfg.DatabasePassword)
	if err != nil {
		return nil, nil, err
	}

	cat := catalog.Default()
	if err := cat.Validate(database.KnownTable, provider.ValidateEndpoint); err != nil {
		db.Close()
		return nil, nil, err
	}

	manager := database.NewManager(db)
	redis := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)

	e := &engine{
		cfg:     cfg,
		db:      db,
		manager: manager,
		store:   sync.NewStore(manager),
		client:  provider.NewHTTPClient(cfg.BaseURL, cfg.Token, cfg.TokenKind),
		catalog: cat,
		redis:   redis,
	}
	cleanup := func() {
		redis.Close()
		db.Close()
	}
	return e, cleanup, nil
}
