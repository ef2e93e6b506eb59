package ports

import (
	"context"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"
)

// BatchResult is the aggregator's verdict on one submitted batch. The
// upstream protocol is batch-oriented (one call, many recipients, one
// shared body), so the verdict is batch-granular by design.
type BatchResult struct {
	Accepted          bool
	ProviderMessageID string // request_id assigned by the aggregator on accept
	Reason            string // rejection reason on reject
}

// Rejected builds a rejection result with the given reason.
func Rejected(reason string) BatchResult {
	return BatchResult{Reason: reason}
}

// Accepted builds an acceptance result carrying the provider message ID.
func Accepted(providerMessageID string) BatchResult {
	return BatchResult{Accepted: true, ProviderMessageID: providerMessageID}
}

// Aggregator abstracts the external SMS gateway's batch send endpoint.
type Aggregator interface {
	// Send submits one batch under a single sender identity and message
	// body. Transport failures are normalized into a rejected result; the
	// processor's failure path depends on Send never panicking or
	// surfacing raw transport errors.
	Send(ctx context.Context, senderID, message string, batch []domain.Recipient) BatchResult
}
