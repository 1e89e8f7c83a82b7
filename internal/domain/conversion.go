package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConversionStatus is the outcome of one pipeline item.
type ConversionStatus string

const (
	StatusConverted ConversionStatus = "converted"
	StatusSkipped   ConversionStatus = "skipped"
	StatusFailed    ConversionStatus = "failed"
)

// BatchMode selects which catalog items a pipeline run processes.
type BatchMode string

const (
	ModeAll      BatchMode = "all"
	ModeMissing  BatchMode = "missing"
	ModeOverlays BatchMode = "overlays"
	// ModeQueued marks runs made by the stream worker.
	ModeQueued BatchMode = "queued"
)

// ConversionItem is one container → archive job.
type ConversionItem struct {
	Key          string       `json:"key"`
	Region       string       `json:"region,omitempty"`
	Stage        string       `json:"stage"`
	InputPath    string       `json:"input_path"`
	OutputPath   string       `json:"output_path"`
	GeometryType GeometryType `json:"geometry_type,omitempty"`
	Columns      *ColumnRange `json:"columns,omitempty"`
	Overlay      bool         `json:"overlay,omitempty"`
}

// ConversionResult reports what happened to one item. Diagnostics carries
// the captured tail of external tool output when a tool failed.
type ConversionResult struct {
	Key         string           `json:"key" db:"archive_key"`
	Status      ConversionStatus `json:"status" db:"status"`
	InputPath   string           `json:"input_path" db:"input_path"`
	OutputPath  string           `json:"output_path" db:"output_path"`
	Columns     []string         `json:"columns,omitempty" db:"-"`
	SourceCRS   string           `json:"source_crs,omitempty" db:"source_crs"`
	InputRows   int64            `json:"input_rows" db:"input_rows"`
	SampledRows int64            `json:"sampled_rows" db:"sampled_rows"`
	Features    int64            `json:"features" db:"features"`
	OutputBytes int64            `json:"output_bytes" db:"output_bytes"`
	Error       string           `json:"error,omitempty" db:"error"`
	Diagnostics string           `json:"diagnostics,omitempty" db:"diagnostics"`
	Duration    time.Duration    `json:"duration" db:"-"`
}

// RunReport summarises one batch run.
type RunReport struct {
	ID         uuid.UUID          `json:"id" db:"id"`
	Mode       BatchMode          `json:"mode" db:"mode"`
	StartedAt  time.Time          `json:"started_at" db:"started_at"`
	FinishedAt time.Time          `json:"finished_at" db:"finished_at"`
	Converted  int                `json:"converted" db:"converted"`
	Skipped    int                `json:"skipped" db:"skipped"`
	Failed     int                `json:"failed" db:"failed"`
	Results    []ConversionResult `json:"results,omitempty" db:"-"`
}

// Add records a result and updates the counters.
func (r *RunReport) Add(res ConversionResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusConverted:
		r.Converted++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Total is the number of processed items.
func (r *RunReport) Total() int {
	return r.Converted + r.Skipped + r.Failed
}
