package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecipientState is the delivery state of a single ledger row.
// Legal transitions: pending → processing → sent | failed. A row in
// processing always resolves in the same attempt; it is never silently
// reverted.
type RecipientState string

const (
	RecipientPending    RecipientState = "pending"    // Awaiting claim by a dispatch run
	RecipientProcessing RecipientState = "processing" // Claimed, aggregator call in flight
	RecipientSent       RecipientState = "sent"       // Accepted by the aggregator
	RecipientFailed     RecipientState = "failed"     // Rejected by the aggregator or transport
)

// Recipient is one ledger row: the per-destination unit of work for a
// campaign and its delivery outcome.
type Recipient struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CampaignID uuid.UUID      `gorm:"type:uuid;index:idx_recipients_campaign_state" json:"campaign_id"`
	DestAddr   string         `json:"dest_addr"`
	Content    string         `json:"content"`
	State      RecipientState `gorm:"type:varchar(16);index:idx_recipients_campaign_state" json:"state"`

	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	ProviderError     string     `json:"provider_error,omitempty"`
	AttemptedAt       *time.Time `json:"attempted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecipient creates a pending ledger row for a campaign.
func NewRecipient(campaignID uuid.UUID, destAddr, content string) Recipient {
	now := time.Now().UTC()
	return Recipient{
		ID:         uuid.New(),
		CampaignID: campaignID,
		DestAddr:   destAddr,
		Content:    content,
		State:      RecipientPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Outcome is the resolution applied to a claimed set of rows after one
// aggregator call. The upstream call is atomic at the wire level, so one
// Outcome covers the whole batch.
type Outcome struct {
	State             RecipientState // RecipientSent or RecipientFailed
	ProviderMessageID string
	ProviderError     string
	AttemptedAt       time.Time
}

// SentOutcome builds the resolution for an accepted batch.
func SentOutcome(providerMessageID string) Outcome {
	return Outcome{
		State:             RecipientSent,
		ProviderMessageID: providerMessageID,
		AttemptedAt:       time.Now().UTC(),
	}
}

// FailedOutcome builds the resolution for a rejected batch.
func FailedOutcome(reason string) Outcome {
	return Outcome{
		State:         RecipientFailed,
		ProviderError: reason,
		AttemptedAt:   time.Now().UTC(),
	}
}
