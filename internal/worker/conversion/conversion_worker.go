package conversion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"github.com/ev-tile-publisher/internal/worker"
	"go.uber.org/zap"
)

const errorBackoff = time.Second // пауза при ошибке чтения

// ItemResolver maps a request onto a conversion item.
type ItemResolver interface {
	Resolve(event *domain.ConversionRequestEvent) (domain.ConversionItem, error)
}

// ItemRunner converts items sequentially and records the run.
type ItemRunner interface {
	RunItems(ctx context.Context, mode domain.BatchMode, items []domain.ConversionItem) (*domain.RunReport, error)
}

// ConversionWorker обрабатывает запросы на конвертацию из Redis Stream.
// Items are converted one at a time; a message is acked only after its
// result is published, so interrupted work is redelivered.
type ConversionWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	resolver     ItemResolver
	runner       ItemRunner
	consumerName string
	batchSize    int64
}

// NewConversionWorker создает новый ConversionWorker
func NewConversionWorker(
	streamRepo repository.StreamRepository,
	resolver ItemResolver,
	runner ItemRunner,
	consumerGroup string,
	batchSize int,
	logger *zap.Logger,
) *ConversionWorker {
	hostname, _ := os.Hostname()
	if batchSize < 1 {
		batchSize = 1
	}

	return &ConversionWorker{
		BaseWorker:   worker.NewBaseWorker("conversion", consumerGroup, logger),
		streamRepo:   streamRepo,
		resolver:     resolver,
		runner:       runner,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		batchSize:    int64(batchSize),
	}
}

// Start запускает воркер
func (w *ConversionWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting ConversionWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int64("batch_size", w.batchSize))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamConversionRequest, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	// a stop signal cancels in-flight reads and tool runs
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.StopChan():
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if ctx.Err() != nil {
			logger.Info("Worker stopped")
			return nil
		}

		if _, err := w.processBatch(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("Failed to process batch", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		}
	}
}

// processBatch reads up to batchSize requests and converts them. It
// returns the number of messages read.
func (w *ConversionWorker) processBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.streamRepo.ConsumeBatch(
		ctx,
		domain.StreamConversionRequest,
		w.ConsumerGroup(),
		w.consumerName,
		w.batchSize,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	events := make([]*domain.ConversionRequestEvent, 0, len(messages))
	items := make([]domain.ConversionItem, 0, len(messages))
	ids := make([]string, 0, len(messages))

	for _, msg := range messages {
		var event domain.ConversionRequestEvent
		if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
			logger.Warn("Failed to parse message, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			w.RecordFailure("invalid message: " + err.Error())
			w.ack(ctx, msg.ID)
			continue
		}

		item, err := w.resolver.Resolve(&event)
		if err != nil {
			logger.Warn("Rejected conversion request",
				zap.String("request_id", event.RequestID.String()),
				zap.Error(err))
			w.publish(ctx, &domain.ConversionDoneEvent{RequestID: event.RequestID, Error: err.Error()})
			w.RecordFailure(err.Error())
			w.ack(ctx, msg.ID)
			continue
		}

		events = append(events, &event)
		items = append(items, item)
		ids = append(ids, msg.ID)
	}

	if len(items) == 0 {
		return len(messages), nil
	}

	report, runErr := w.runner.RunItems(ctx, domain.ModeQueued, items)
	if report != nil {
		for i := range report.Results {
			res := report.Results[i]
			// failed because the worker is stopping: leave it pending for redelivery
			if res.Status == domain.StatusFailed && ctx.Err() != nil {
				logger.Info("Leaving interrupted request pending",
					zap.String("request_id", events[i].RequestID.String()),
					zap.String("message_id", ids[i]))
				if runErr == nil {
					runErr = ctx.Err()
				}
				break
			}
			if res.Status == domain.StatusFailed {
				w.RecordFailure(res.Key + ": " + res.Error)
			} else {
				w.RecordSuccess()
			}
			w.publish(ctx, &domain.ConversionDoneEvent{RequestID: events[i].RequestID, Result: &res})
			w.ack(ctx, ids[i])
		}
	}
	if runErr != nil {
		return len(messages), fmt.Errorf("conversion interrupted: %w", runErr)
	}
	return len(messages), nil
}

func (w *ConversionWorker) publish(ctx context.Context, done *domain.ConversionDoneEvent) {
	if err := w.streamRepo.PublishToStream(context.WithoutCancel(ctx), domain.StreamConversionDone, done); err != nil {
		w.Logger().Error("Failed to publish done event",
			zap.String("request_id", done.RequestID.String()),
			zap.Error(err))
	}
}

// ack failures are not fatal, the message is redelivered and converted again
func (w *ConversionWorker) ack(ctx context.Context, id string) {
	if err := w.streamRepo.AckMessage(context.WithoutCancel(ctx), domain.StreamConversionRequest, w.ConsumerGroup(), id); err != nil {
		w.Logger().Error("Failed to ack message", zap.String("message_id", id), zap.Error(err))
	}
}
