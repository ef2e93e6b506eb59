package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft      CampaignStatus = "draft"      // Composed, not yet released for dispatch
	CampaignQueued     CampaignStatus = "queued"     // Ready for the dispatch worker
	CampaignProcessing CampaignStatus = "processing" // A dispatch run is driving its batches
	CampaignComplete   CampaignStatus = "complete"   // Every recipient resolved, none failed
	CampaignPartial    CampaignStatus = "partial"    // Run ended with failed rows or an unrecoverable error
)

// Campaign is a single bulk-message send job: one message template
// targeting many recipients through one sender identity.
type Campaign struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID      `gorm:"type:uuid;index" json:"tenant_id"`
	Name     string         `json:"name"`
	Body     string         `json:"body"`
	SenderID string         `json:"sender_id"`
	Status   CampaignStatus `gorm:"type:varchar(16)" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCampaign creates a queued Campaign with a generated ID.
func NewCampaign(tenantID uuid.UUID, name, body, senderID string) Campaign {
	now := time.Now().UTC()
	return Campaign{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Body:      body,
		SenderID:  senderID,
		Status:    CampaignQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// campaignTransitions encodes the forward-only campaign state machine.
// Processing may be re-entered by a fresh dispatch attempt (queued or
// partial back into processing), never skipped.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:      {CampaignQueued},
	CampaignQueued:     {CampaignProcessing},
	CampaignProcessing: {CampaignComplete, CampaignPartial},
	CampaignPartial:    {CampaignQueued, CampaignProcessing},
	CampaignComplete:   {},
}

// CanTransition reports whether moving from into to is a legal campaign
// status change.
func CanTransition(from, to CampaignStatus) bool {
	for _, next := range campaignTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Domain errors
var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrInvalidStatus     = errors.New("invalid status transition")
	ErrNoRecipients      = errors.New("campaign has no valid recipients")
)
