package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"github.com/ev-tile-publisher/internal/infrastructure/toolchain"
	"github.com/ev-tile-publisher/internal/repository/cache"
	"github.com/ev-tile-publisher/internal/repository/postgres"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(e *env) *cobra.Command {
	var missing, overlays, dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert catalog items in batch",
		Long: `Convert every region/stage pairing and every overlay declared in the
catalog. With --missing only items whose archive does not exist yet are
converted; with --overlays only overlays are.

A failing item does not stop the batch. The command exits non-zero when any
item failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := domain.ModeAll
			switch {
			case missing:
				mode = domain.ModeMissing
			case overlays:
				mode = domain.ModeOverlays
			}

			if dryRun {
				planner := usecase.NewBatchUseCase(e.catalog, nil, nil, nil, e.cfg.Pipeline, e.log)
				items, err := planner.Plan(mode)
				if err != nil {
					return err
				}
				for _, item := range items {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s -> %s\n", item.Key, item.InputPath, item.OutputPath)
				}
				return nil
			}

			batchUC, closeFn, err := e.batchUseCase(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := batchUC.Run(cmd.Context(), mode)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d items failed", report.Failed, len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&missing, "missing", false, "only convert items without an archive")
	cmd.Flags().BoolVar(&overlays, "overlays", false, "only convert overlays")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without converting")
	cmd.MarkFlagsMutuallyExclusive("missing", "overlays")
	return cmd
}

// batchUseCase wires the external tools plus the optional run ledger and
// archive cache. The returned func releases connections; it is nil on error.
func (e *env) batchUseCase(cmd *cobra.Command) (*usecase.BatchUseCase, func(), error) {
	var closers []func() error
	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				e.log.Warn("Failed to close connection", zap.Error(err))
			}
		}
	}

	var runRepo repository.RunRepository
	if e.cfg.LedgerEnabled() {
		db, err := postgres.New(&e.cfg.Database, e.log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect run ledger: %w", err)
		}
		closers = append(closers, db.Close)
		if err := db.EnsureSchema(cmd.Context()); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("prepare run ledger: %w", err)
		}
		runRepo = postgres.NewRunRepository(db)
	}

	var cacheRepo repository.CacheRepository
	if e.cfg.RedisEnabled() {
		redisClient, err := cache.NewRedis(&e.cfg.Redis, e.log)
		if err != nil {
			// the cache only speeds up listings, conversion can go ahead
			e.log.Warn("Redis unavailable, archive cache not invalidated", zap.Error(err))
		} else {
			closers = append(closers, redisClient.Close)
			cacheRepo = cache.NewCacheRepository(redisClient)
		}
	}

	runner := toolchain.NewExecRunner(e.log, e.cfg.Pipeline.ToolTimeout)
	conversionUC := usecase.NewConversionUseCase(
		e.catalog,
		toolchain.NewGDAL(runner, e.cfg.Pipeline.Ogr2OgrPath, e.log),
		toolchain.NewTippecanoe(runner, e.cfg.Pipeline.TippecanoePath, e.log),
		e.cfg.Pipeline,
		e.log,
	)
	return usecase.NewBatchUseCase(e.catalog, conversionUC, runRepo, cacheRepo, e.cfg.Pipeline, e.log), closeFn, nil
}

func printReport(w io.Writer, report *domain.RunReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTATUS\tFEATURES\tSIZE\tDETAIL")
	for _, res := range report.Results {
		size := "-"
		if res.OutputBytes > 0 {
			size = humanize.Bytes(uint64(res.OutputBytes))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			res.Key, res.Status, humanize.Comma(res.Features), size, res.Error)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nrun %s: %d converted, %d skipped, %d failed in %s\n",
		report.ID, report.Converted, report.Skipped, report.Failed,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
}
