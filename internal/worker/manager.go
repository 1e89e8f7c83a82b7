package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// shutdownTimeout - максимальное время ожидания завершения воркеров
	shutdownTimeout = 30 * time.Second
)

var errNoWorkers = errors.New("no workers registered")

// WorkerManager runs registered workers in one errgroup. A worker that
// fails to run cancels the others; Done is closed once all have returned.
type WorkerManager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	workers []Worker
	done    chan struct{}
	err     error
}

// NewWorkerManager создает новый WorkerManager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{
		logger:  logger,
		timeout: shutdownTimeout,
	}
}

// Register регистрирует воркер. Workers registered after Start are ignored.
func (m *WorkerManager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered", zap.String("name", w.Name()))
}

// Start launches every worker and returns immediately.
func (m *WorkerManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.workers) == 0 {
		return errNoWorkers
	}
	if m.done != nil {
		return fmt.Errorf("workers already started")
	}

	m.logger.Info("Starting workers", zap.Int("count", len(m.workers)))

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range m.workers {
		g.Go(func() error {
			m.logger.Info("Starting worker", zap.String("name", w.Name()))
			if err := w.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("Worker failed", zap.String("name", w.Name()), zap.Error(err))
				return fmt.Errorf("worker %s: %w", w.Name(), err)
			}
			return nil
		})
	}

	m.done = make(chan struct{})
	go func() {
		err := g.Wait()
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		close(m.done)
	}()

	return nil
}

// Done is closed when every worker has returned. It is nil before Start.
func (m *WorkerManager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Err returns the first worker failure once Done is closed.
func (m *WorkerManager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Stats collects counters from workers that report them.
func (m *WorkerManager) Stats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]Stats, 0, len(m.workers))
	for _, w := range m.workers {
		if r, ok := w.(StatsReporter); ok {
			stats = append(stats, r.Stats())
		}
	}
	return stats
}

// Stop signals every worker and waits up to the shutdown timeout.
func (m *WorkerManager) Stop() error {
	m.mu.Lock()
	workers := append([]Worker(nil), m.workers...)
	done := m.done
	m.mu.Unlock()

	m.logger.Info("Stopping workers", zap.Int("count", len(workers)))

	for _, w := range workers {
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("name", w.Name()),
				zap.Error(err))
		}
	}

	if done == nil {
		return nil
	}

	select {
	case <-done:
		m.logger.Info("All workers stopped gracefully")
	case <-time.After(m.timeout):
		m.logger.Warn("Workers shutdown timed out, some tasks may not have completed",
			zap.Duration("timeout", m.timeout))
		return fmt.Errorf("workers shutdown timed out after %v", m.timeout)
	}

	return m.Err()
}
