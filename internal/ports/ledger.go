package ports

import (
	"context"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"

	"github.com/google/uuid"
)

// Ledger defines persistence operations for campaigns and their
// recipient rows. Claim is the linchpin: it is the only coordination
// primitive between overlapping dispatch runs, so any implementation
// must make it an atomic conditional transition.
type Ledger interface {
	// SaveCampaign persists a new Campaign.
	SaveCampaign(ctx context.Context, c domain.Campaign) error

	// Campaign retrieves a campaign by ID.
	Campaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)

	// UpdateCampaignStatus transitions a campaign to the given status.
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error

	// SaveRecipients persists a batch of ledger rows in a single transaction.
	SaveRecipients(ctx context.Context, rows []domain.Recipient) error

	// NextPending returns up to limit pending rows for a campaign in
	// creation order. Selection only; it never mutates state.
	NextPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Recipient, error)

	// Claim conditionally transitions rows from pending to processing and
	// returns the IDs actually transitioned. Rows missing from the result
	// were taken by another invocation and must not be processed here.
	Claim(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

	// Resolve unconditionally transitions previously claimed rows to the
	// outcome's terminal state, attaching provider metadata. Idempotent:
	// re-resolving overwrites, it never errors.
	Resolve(ctx context.Context, ids []uuid.UUID, outcome domain.Outcome) error

	// CountByState returns per-state row counts for a campaign.
	CountByState(ctx context.Context, campaignID uuid.UUID) (map[domain.RecipientState]int64, error)

	// RequeueFailed resets a campaign's failed rows to pending and returns
	// how many were reset. Retry is caller-driven, never automatic.
	RequeueFailed(ctx context.Context, campaignID uuid.UUID) (int64, error)

	// ReleaseStale resets rows stuck in processing for longer than
	// olderThan back to pending, across all campaigns. Used by the
	// reconciliation sweep after a crashed run.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
