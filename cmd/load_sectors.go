package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapas-livres/cnefe-reconciler/internal/streets"
)

var sectorShapefiles []string

var loadSectorsCmd = &cobra.Command{
	Use:   "load-sectors",
	Short: "Load IBGE census-sector mesh shapefiles into PostGIS",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := providerPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := streets.LoadSectors(ctx, pool, sectorShapefiles, cfg.Load.Concurrency)
		if err != nil {
			return err
		}

		zap.L().Info("census sectors loaded", zap.Int64("rows", n))
		return nil
	},
}

func init() {
	loadSectorsCmd.Flags().StringSliceVar(&sectorShapefiles, "shapefile", nil, "sector mesh .shp path (repeatable)")
	_ = loadSectorsCmd.MarkFlagRequired("shapefile")
	rootCmd.AddCommand(loadSectorsCmd)
}
