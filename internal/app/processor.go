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

// Pacer suspends the dispatch loop between aggregator calls. Satisfied
// by throttle.Pacer.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Processor drives a queued campaign to a fully resolved set of
// recipient outcomes: claim a batch, send it, record the verdict,
// throttle, repeat until the ledger has no pending rows left. Safe to
// re-invoke: the ledger claim keeps overlapping runs from double-
// sending.
type Processor struct {
	ledger    ports.Ledger
	provider  ports.Aggregator
	tracker   *StatusTracker
	pacer     Pacer
	batchSize int
	log       *slog.Logger
}

// NewProcessor wires the processor with its dependencies.
func NewProcessor(
	ledger ports.Ledger,
	provider ports.Aggregator,
	pacer Pacer,
	batchSize int,
	log *slog.Logger,
) *Processor {
	return &Processor{
		ledger:    ledger,
		provider:  provider,
		tracker:   NewStatusTracker(ledger),
		pacer:     pacer,
		batchSize: batchSize,
		log:       log,
	}
}

// Process runs one dispatch attempt for the campaign. Per-batch
// aggregator rejections are recorded as row state and never abort the
// run; only structural failures (ledger unreachable, missing campaign,
// cancelled context) escape, and those force the campaign to partial so
// it is never left stuck in processing.
func (p *Processor) Process(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := p.ledger.Campaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}

	if err := p.ledger.UpdateCampaignStatus(ctx, campaignID, domain.CampaignProcessing); err != nil {
		return fmt.Errorf("mark campaign processing: %w", err)
	}

	p.log.Info("dispatch started",
		"campaign_id", campaignID,
		"sender_id", campaign.SenderID,
		"batch_size", p.batchSize,
	)

	prevFull := false
	for {
		rows, err := p.ledger.NextPending(ctx, campaignID, p.batchSize)
		if err != nil {
			p.abort(ctx, campaignID)
			return fmt.Errorf("select next batch: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		// Pace only between batches: a full previous batch means more work
		// was expected, so honor the aggregator's rate limit before the
		// next call. The final batch never triggers a wait.
		if prevFull {
			if err := p.pacer.Wait(ctx); err != nil {
				p.abort(ctx, campaignID)
				return fmt.Errorf("throttle wait: %w", err)
			}
		}
		prevFull = len(rows) == p.batchSize

		ids := make([]uuid.UUID, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}

		claimedIDs, err := p.ledger.Claim(ctx, ids)
		if err != nil {
			p.abort(ctx, campaignID)
			return fmt.Errorf("claim batch: %w", err)
		}
		if len(claimedIDs) == 0 {
			// Another run owns this slice; the next select skips past it.
			continue
		}
		claimed := filterClaimed(rows, claimedIDs)

		if err := p.sendBatch(ctx, campaign, claimed, claimedIDs); err != nil {
			p.abort(ctx, campaignID)
			return err
		}
	}

	status, err := p.tracker.Finalize(ctx, campaignID)
	if err != nil {
		p.abort(ctx, campaignID)
		return fmt.Errorf("finalize campaign: %w", err)
	}

	dispatchCampaignsCounter.WithLabelValues(string(status)).Inc()
	p.log.Info("dispatch finished", "campaign_id", campaignID, "status", status)
	return nil
}

// sendBatch submits one claimed batch and resolves every row with the
// batch-granular verdict. The upstream call is atomic at the wire
// level, so a rejection fails the whole submitted group.
func (p *Processor) sendBatch(ctx context.Context, campaign *domain.Campaign, claimed []domain.Recipient, claimedIDs []uuid.UUID) error {
	start := time.Now()
	result := p.provider.Send(ctx, campaign.SenderID, campaign.Body, claimed)
	aggregatorRequestDurationHist.Observe(time.Since(start).Seconds())

	var outcome domain.Outcome
	if result.Accepted {
		outcome = domain.SentOutcome(result.ProviderMessageID)
		dispatchBatchesCounter.WithLabelValues("accepted").Inc()
		p.log.Info("batch accepted",
			"campaign_id", campaign.ID,
			"rows", len(claimed),
			"provider_message_id", result.ProviderMessageID,
		)
	} else {
		outcome = domain.FailedOutcome(result.Reason)
		dispatchBatchesCounter.WithLabelValues("rejected").Inc()
		p.log.Warn("batch rejected",
			"campaign_id", campaign.ID,
			"rows", len(claimed),
			"reason", result.Reason,
		)
	}

	if err := p.ledger.Resolve(ctx, claimedIDs, outcome); err != nil {
		return fmt.Errorf("resolve batch: %w", err)
	}
	dispatchRecipientsCounter.WithLabelValues(string(outcome.State)).Add(float64(len(claimedIDs)))
	return nil
}

// abort forces the campaign out of processing when a structural error
// ends the run early. Best effort: the error that got us here is the
// one worth surfacing.
func (p *Processor) abort(ctx context.Context, campaignID uuid.UUID) {
	// Detach from the caller's cancellation so a cancelled run can still
	// record that it ended partial.
	ctx = context.WithoutCancel(ctx)
	if err := p.ledger.UpdateCampaignStatus(ctx, campaignID, domain.CampaignPartial); err != nil {
		p.log.Error("mark campaign partial failed", "campaign_id", campaignID, "err", err)
	}
	dispatchCampaignsCounter.WithLabelValues(string(domain.CampaignPartial)).Inc()
}

// filterClaimed keeps the rows this run actually owns, in batch order.
func filterClaimed(rows []domain.Recipient, claimedIDs []uuid.UUID) []domain.Recipient {
	owned := make(map[uuid.UUID]struct{}, len(claimedIDs))
	for _, id := range claimedIDs {
		owned[id] = struct{}{}
	}

	out := make([]domain.Recipient, 0, len(claimedIDs))
	for _, r := range rows {
		if _, ok := owned[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}
