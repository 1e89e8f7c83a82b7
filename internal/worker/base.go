package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// BaseWorker содержит общую логику для всех воркеров: stop signalling and
// item counters.
type BaseWorker struct {
	name          string
	consumerGroup string
	logger        *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}

	processed atomic.Int64
	failed    atomic.Int64

	mu           sync.Mutex
	lastError    string
	lastActivity time.Time
}

// NewBaseWorker создает новый BaseWorker
func NewBaseWorker(name, consumerGroup string, logger *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:          name,
		consumerGroup: consumerGroup,
		logger:        logger.With(zap.String("worker", name)),
		stopChan:      make(chan struct{}),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

// Stop closes the stop channel once.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker")
		close(w.stopChan)
	})
	return nil
}

// IsStopped reports whether Stop was called.
func (w *BaseWorker) IsStopped() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

func (w *BaseWorker) StopChan() <-chan struct{} {
	return w.stopChan
}

func (w *BaseWorker) ConsumerGroup() string {
	return w.consumerGroup
}

// Logger returns the logger tagged with the worker name.
func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}

// RecordSuccess counts a processed item.
func (w *BaseWorker) RecordSuccess() {
	w.processed.Add(1)
	w.touch("")
}

// RecordFailure counts a processed item that failed.
func (w *BaseWorker) RecordFailure(reason string) {
	w.processed.Add(1)
	w.failed.Add(1)
	w.touch(reason)
}

func (w *BaseWorker) touch(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastActivity = time.Now().UTC()
	if reason != "" {
		w.lastError = reason
	}
}

func (w *BaseWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Name:         w.name,
		Processed:    w.processed.Load(),
		Failed:       w.failed.Load(),
		LastError:    w.lastError,
		LastActivity: w.lastActivity,
	}
}
