package main

import (
	"errors"
	"fmt"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/repository/cache"
	redisRepo "github.com/ev-tile-publisher/internal/repository/redis"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/spf13/cobra"
)

var errNoRedis = errors.New("enqueue needs Redis, set REDIS_HOST")

func newEnqueueCmd(e *env) *cobra.Command {
	var req domain.ConversionRequestEvent

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue one archive for rebuilding by a worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !e.cfg.RedisEnabled() {
				return errNoRedis
			}

			planner := usecase.NewBatchUseCase(e.catalog, nil, nil, nil, e.cfg.Pipeline, e.log)
			// validate before connecting
			if _, err := usecase.NewQueueUseCase(planner, nil, e.log).Resolve(&req); err != nil {
				return err
			}

			redisClient, err := cache.NewRedis(&e.cfg.Redis, e.log)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisClient.Close()

			streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), e.cfg.Worker.StreamReadTimeout, e.log)
			queued, err := usecase.NewQueueUseCase(planner, streamRepo, e.log).Enqueue(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), queued.RequestID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Region, "region", "", "region id")
	cmd.Flags().StringVar(&req.Stage, "stage", "", "stage id (with --region)")
	cmd.Flags().StringVar(&req.Overlay, "overlay", "", "overlay id")
	cmd.MarkFlagsRequiredTogether("region", "stage")
	cmd.MarkFlagsMutuallyExclusive("stage", "overlay")
	cmd.MarkFlagsOneRequired("stage", "overlay")
	return cmd
}
