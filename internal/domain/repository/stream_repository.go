package repository

import (
	"context"

	"github.com/ev-tile-publisher/internal/domain"
)

// StreamRepository carries conversion requests and results over Redis
// Streams consumer groups. Messages stay pending until acked.
type StreamRepository interface {
	// ConsumeStream delivers messages on a channel until ctx is cancelled.
	ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error)

	// ConsumeBatch reads up to count pending or new messages in one call.
	ConsumeBatch(ctx context.Context, stream, group, consumer string, count int64) ([]domain.StreamMessage, error)

	// AckMessage marks a message as processed for the group.
	AckMessage(ctx context.Context, stream, group, messageID string) error

	// CreateConsumerGroup is idempotent; the stream is created when missing.
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// PublishToStream JSON-encodes data into the "data" field of a new entry.
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
