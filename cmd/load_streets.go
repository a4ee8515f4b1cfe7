package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapas-livres/cnefe-reconciler/internal/streets"
)

var streetShapefiles []string

var loadStreetsCmd = &cobra.Command{
	Use:   "load-streets",
	Short: "Load OSM street extract shapefiles into PostGIS",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := providerPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := streets.LoadStreets(ctx, pool, streetShapefiles, cfg.Load.Concurrency)
		if err != nil {
			return err
		}

		zap.L().Info("streets loaded", zap.Int64("rows", n))
		return nil
	},
}

func init() {
	loadStreetsCmd.Flags().StringSliceVar(&streetShapefiles, "shapefile", nil, "street extract .shp path (repeatable)")
	_ = loadStreetsCmd.MarkFlagRequired("shapefile")
	rootCmd.AddCommand(loadStreetsCmd)
}
