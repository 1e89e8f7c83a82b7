package domain

import "github.com/google/uuid"

// Stream names
const (
	StreamConversionRequest = "stream:conversion:request"
	StreamConversionDone    = "stream:conversion:done"
)

// ConversionRequestEvent asks a worker to (re)build one archive. Exactly one
// of Stage (with Region) or Overlay is set.
type ConversionRequestEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	Region    string    `json:"region,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Overlay   string    `json:"overlay,omitempty"`
}

// IsOverlay reports whether the event targets an overlay archive.
func (e *ConversionRequestEvent) IsOverlay() bool {
	return e.Overlay != ""
}

// ConversionDoneEvent is published after a requested conversion finished.
type ConversionDoneEvent struct {
	RequestID uuid.UUID         `json:"request_id"`
	Result    *ConversionResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
