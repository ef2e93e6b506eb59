package app

import (
	"context"
	"fmt"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"
	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"

	"github.com/google/uuid"
)

// StatusTracker derives and persists a campaign's terminal status from
// ledger contents after a dispatch run exhausts its pending rows.
type StatusTracker struct {
	ledger ports.Ledger
}

// NewStatusTracker wires the tracker with its ledger.
func NewStatusTracker(ledger ports.Ledger) *StatusTracker {
	return &StatusTracker{ledger: ledger}
}

// Finalize sets the campaign to complete when every row is sent, and to
// partial when any row failed or was left behind by an earlier run.
func (t *StatusTracker) Finalize(ctx context.Context, campaignID uuid.UUID) (domain.CampaignStatus, error) {
	counts, err := t.ledger.CountByState(ctx, campaignID)
	if err != nil {
		return "", fmt.Errorf("count recipient states: %w", err)
	}

	status := domain.CampaignComplete
	if counts[domain.RecipientFailed] > 0 ||
		counts[domain.RecipientPending] > 0 ||
		counts[domain.RecipientProcessing] > 0 {
		status = domain.CampaignPartial
	}

	if err := t.ledger.UpdateCampaignStatus(ctx, campaignID, status); err != nil {
		return "", fmt.Errorf("persist campaign status: %w", err)
	}
	return status, nil
}
