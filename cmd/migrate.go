package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapas-livres/cnefe-reconciler/internal/streets"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bootstrap the geo schema and the cache database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pool, err := providerPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := streets.Migrate(ctx, pool); err != nil {
			return err
		}

		zap.L().Info("migrations applied",
			zap.String("cache", cfg.Cache.Path),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
