package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DispatchJob asks a worker to drive one campaign's batches to
// resolution. Re-delivery is safe: the ledger's claim semantics make a
// repeated run a no-op for already resolved rows.
type DispatchJob struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DispatchPublisher publishes dispatch jobs to the message queue.
type DispatchPublisher interface {
	Publish(ctx context.Context, job DispatchJob) error
}

// DispatchConsumer consumes dispatch jobs from the message queue.
type DispatchConsumer interface {
	// Consume starts delivery of jobs; each is passed to the handler.
	// Blocks until ctx is cancelled or a fatal error occurs.
	Consume(ctx context.Context, handler func(ctx context.Context, job DispatchJob) error) error
}
