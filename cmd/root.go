package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapas-livres/cnefe-reconciler/internal/cache"
	"github.com/mapas-livres/cnefe-reconciler/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cnefe-reconciler",
	Short: "Reconcile CNEFE census addresses against the OSM street network",
	Long:  "Parses fixed-width CNEFE address files, deduplicates them, and decides per address whether it exists in OSM, is a likely typo of an existing street, or is genuinely missing.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// providerPool connects to the PostGIS database holding the street network
// and sector mesh.
func providerPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Provider.DatabaseURL == "" {
		return nil, eris.New("provider.database_url is not configured")
	}
	pool, err := pgxpool.New(ctx, cfg.Provider.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "connect provider database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping provider database")
	}
	return pool, nil
}

// openCache opens and migrates the reconciliation cache.
func openCache(ctx context.Context) (*cache.Store, error) {
	st, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
