package ports

import (
	"context"

	"github.com/google/uuid"
)

// CampaignLocker is an advisory single-flight guard around a dispatch
// run. It prevents two workers from redundantly looping over the same
// campaign; data-safety never depends on it, only the ledger claim
// guarantees that.
type CampaignLocker interface {
	// Acquire attempts to take the campaign's dispatch lock. Returns
	// false when another run already holds it.
	Acquire(ctx context.Context, campaignID uuid.UUID) (bool, error)

	// Release frees the lock. Safe to call on an expired lock.
	Release(ctx context.Context, campaignID uuid.UUID) error
}
