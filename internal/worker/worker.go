package worker

import (
	"context"
	"time"
)

// Worker интерфейс для всех воркеров
type Worker interface {
	// Start blocks until the worker is stopped or ctx is cancelled. A
	// returned error means the worker could not run at all.
	Start(ctx context.Context) error

	// Stop signals Start to return. It is safe to call more than once.
	Stop() error

	Name() string
}

// Stats is a point-in-time view of a worker's progress.
type Stats struct {
	Name         string    `json:"name"`
	Processed    int64     `json:"processed"`
	Failed       int64     `json:"failed"`
	LastError    string    `json:"last_error,omitempty"`
	LastActivity time.Time `json:"last_activity,omitempty"`
}

// StatsReporter is implemented by workers that count their items.
type StatsReporter interface {
	Stats() Stats
}
