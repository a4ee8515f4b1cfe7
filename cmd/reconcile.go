package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapas-livres/cnefe-reconciler/internal/cache"
	"github.com/mapas-livres/cnefe-reconciler/internal/cnefe"
	"github.com/mapas-livres/cnefe-reconciler/internal/matcher"
	"github.com/mapas-livres/cnefe-reconciler/internal/reconcile"
	"github.com/mapas-livres/cnefe-reconciler/internal/resilience"
	"github.com/mapas-livres/cnefe-reconciler/internal/streets"
)

var (
	reconcileInput   string
	reconcileWorkers int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile CNEFE files against the street network",
	Long:  "Discovers CNEFE fixed-width files under the input directory, deduplicates their records, and resolves each address against the spatial provider, persisting outcomes in the cache.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		workers := reconcileWorkers
		if workers <= 0 {
			workers = cfg.Reconcile.Workers
		}

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

		retry := resilience.DefaultRetryConfig()
		if cfg.Provider.RetryAttempts > 0 {
			retry.MaxAttempts = cfg.Provider.RetryAttempts
		}
		if cfg.Provider.InitialBackoff > 0 {
			retry.InitialBackoff = cfg.Provider.InitialBackoff
		}

		provider := streets.NewPostgresProvider(pool, cfg.Provider.RateLimitQPS, retry)
		m := matcher.New(st, provider, cfg.Reconcile.FuzzyThreshold)
		orch := reconcile.New(m, st, workers)

		paths, err := cnefe.DiscoverFiles(reconcileInput)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.Errorf("no CNEFE files found under %s", reconcileInput)
		}

		runID, err := st.StartRun(ctx, reconcileInput)
		if err != nil {
			return err
		}

		log := zap.L().With(zap.String("run_id", runID))
		log.Info("reconciliation started",
			zap.String("input", reconcileInput),
			zap.Int("files", len(paths)),
			zap.Int("workers", workers),
		)

		var counters cache.RunCounters
		counters.Files = len(paths)

		for _, path := range paths {
			recs, err := cnefe.ReadFile(path)
			if err != nil {
				// An unreadable file is reported and skipped; the run goes on.
				counters.Failed++
				log.Error("file read failed", zap.String("file", path), zap.Error(err))
				continue
			}
			counters.Records += len(recs)

			batch := cnefe.Dedupe(recs)
			counters.Deduped += len(batch)

			sum, err := orch.Run(ctx, batch, runID)
			counters.Resolved += sum.Resolved
			counters.Failed += sum.Failed
			if err != nil {
				_ = st.FinishRun(ctx, runID, "aborted", counters)
				return err
			}
		}

		if err := st.FinishRun(ctx, runID, "completed", counters); err != nil {
			return err
		}

		log.Info("reconciliation finished",
			zap.Int("records", counters.Records),
			zap.Int("deduped", counters.Deduped),
			zap.Int("resolved", counters.Resolved),
			zap.Int("failed", counters.Failed),
		)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileInput, "input", "", "directory containing CNEFE fixed-width files (required)")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "workers", 0, "worker pool size (default from config)")
	_ = reconcileCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(reconcileCmd)
}
