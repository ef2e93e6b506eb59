package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"
	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"

	"github.com/google/uuid"
)

// CampaignService is the application service around the dispatch core:
// it composes campaigns, releases them to the queue, reports their
// stats, and requeues failed rows on operator request.
type CampaignService struct {
	ledger    ports.Ledger
	publisher ports.DispatchPublisher
	log       *slog.Logger
}

// NewCampaignService wires the service with its dependencies.
func NewCampaignService(ledger ports.Ledger, publisher ports.DispatchPublisher, log *slog.Logger) *CampaignService {
	return &CampaignService{
		ledger:    ledger,
		publisher: publisher,
		log:       log,
	}
}

// RecipientInput is one requested destination plus the attributes used
// to render its message content.
type RecipientInput struct {
	DestAddr   string
	Attributes map[string]string
}

// CreateCampaignRequest is the input for composing a new campaign.
type CreateCampaignRequest struct {
	TenantID   uuid.UUID
	Name       string
	Body       string
	SenderID   string
	Recipients []RecipientInput
}

// CreateCampaign persists a campaign and one deduplicated ledger row
// per valid recipient, each with its rendered message content.
func (s *CampaignService) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (domain.Campaign, int, error) {
	campaign := domain.NewCampaign(req.TenantID, req.Name, req.Body, req.SenderID)

	seen := make(map[string]struct{}, len(req.Recipients))
	rows := make([]domain.Recipient, 0, len(req.Recipients))
	for _, in := range req.Recipients {
		dest := domain.NormalizeDest(in.DestAddr)
		if dest == "" {
			continue
		}
		if _, dup := seen[dest]; dup {
			continue
		}
		seen[dest] = struct{}{}

		content := domain.RenderTemplate(req.Body, dest, in.Attributes)
		rows = append(rows, domain.NewRecipient(campaign.ID, dest, content))
	}
	if len(rows) == 0 {
		return domain.Campaign{}, 0, domain.ErrNoRecipients
	}

	if err := s.ledger.SaveCampaign(ctx, campaign); err != nil {
		return domain.Campaign{}, 0, fmt.Errorf("save campaign: %w", err)
	}
	if err := s.ledger.SaveRecipients(ctx, rows); err != nil {
		return domain.Campaign{}, 0, fmt.Errorf("save recipients: %w", err)
	}

	s.log.Info("campaign created",
		"campaign_id", campaign.ID,
		"tenant_id", campaign.TenantID,
		"recipients", len(rows),
	)
	return campaign, len(rows), nil
}

// Dispatch publishes a dispatch job for a campaign that is ready to
// run. Partial campaigns may be re-dispatched after a requeue.
func (s *CampaignService) Dispatch(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := s.ledger.Campaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}

	if !domain.CanTransition(campaign.Status, domain.CampaignProcessing) {
		return fmt.Errorf("%w: cannot dispatch campaign in status %q", domain.ErrInvalidStatus, campaign.Status)
	}

	job := ports.DispatchJob{CampaignID: campaignID, EnqueuedAt: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return fmt.Errorf("publish dispatch job: %w", err)
	}

	s.log.Info("dispatch job queued", "campaign_id", campaignID)
	return nil
}

// CampaignDetails is a campaign together with its per-state recipient
// counts, so operators can tell a partial run from a complete one.
type CampaignDetails struct {
	Campaign domain.Campaign
	Stats    map[domain.RecipientState]int64
	Total    int64
}

// Details returns a campaign and its ledger stats.
func (s *CampaignService) Details(ctx context.Context, campaignID uuid.UUID) (CampaignDetails, error) {
	campaign, err := s.ledger.Campaign(ctx, campaignID)
	if err != nil {
		return CampaignDetails{}, fmt.Errorf("load campaign: %w", err)
	}

	counts, err := s.ledger.CountByState(ctx, campaignID)
	if err != nil {
		return CampaignDetails{}, fmt.Errorf("count recipients: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return CampaignDetails{Campaign: *campaign, Stats: counts, Total: total}, nil
}

// RequeueFailed resets a campaign's failed rows to pending and moves
// the campaign back to queued so it can be dispatched again. This is
// the only retry path; the dispatch loop itself never retries.
func (s *CampaignService) RequeueFailed(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	campaign, err := s.ledger.Campaign(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.Status == domain.CampaignProcessing {
		return 0, fmt.Errorf("%w: campaign is being processed", domain.ErrInvalidStatus)
	}

	n, err := s.ledger.RequeueFailed(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("requeue failed rows: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	if err := s.ledger.UpdateCampaignStatus(ctx, campaignID, domain.CampaignQueued); err != nil {
		return n, fmt.Errorf("mark campaign queued: %w", err)
	}

	s.log.Info("failed recipients requeued", "campaign_id", campaignID, "count", n)
	return n, nil
}
