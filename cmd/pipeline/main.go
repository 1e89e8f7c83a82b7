package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ev-tile-publisher/internal/catalog"
	"github.com/ev-tile-publisher/internal/config"
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env holds what every subcommand needs: configuration, a logger on stderr
// and the loaded catalog.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	catalog *domain.Catalog
}

func newRootCmd() *cobra.Command {
	var (
		catalogPath string
		logLevel    string
	)
	e := &env{}

	root := &cobra.Command{
		Use:   "pipeline",
		Short: "Convert EV analysis GeoPackages into PMTiles archives",
		Long: `Batch and single-file conversion of the EV adoption analysis outputs.

Available subcommands:
  run      - Convert every catalog item (or only missing ones / overlays)
  convert  - Convert one GeoPackage outside the catalog layout
  enqueue  - Ask a worker to rebuild one archive
  catalog  - Print the loaded catalog`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if catalogPath != "" {
				cfg.Viewer.CatalogPath = catalogPath
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}

			log, err := logger.NewCLI(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cat, err := catalog.Load(cfg.Viewer.CatalogPath)
			if err != nil {
				return err
			}

			e.cfg, e.log, e.catalog = cfg, log, cat
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog YAML (default: embedded catalog)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default: LOG_LEVEL)")

	root.AddCommand(
		newRunCmd(e),
		newConvertCmd(e),
		newEnqueueCmd(e),
		newCatalogCmd(e),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
