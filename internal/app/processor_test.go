package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/db/memory"
	"github.com/jumbenylon/sakuragroup-sub001/internal/app"
	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"
	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBatchSize = 100

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAggregator scripts batch verdicts and records every submission.
type fakeAggregator struct {
	results []ports.BatchResult // consumed in order; last one repeats
	calls   [][]domain.Recipient
}

func (f *fakeAggregator) Send(_ context.Context, _, _ string, batch []domain.Recipient) ports.BatchResult {
	copied := make([]domain.Recipient, len(batch))
	copy(copied, batch)
	f.calls = append(f.calls, copied)

	idx := len(f.calls) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx]
}

// countingPacer records throttle waits.
type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

// failingLedger wraps the memory ledger and fails Claim after a given
// number of successful claims, to simulate a structural mid-run error.
type failingLedger struct {
	*memory.Ledger
	failAfter int
	claims    int
}

func (l *failingLedger) Claim(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if l.claims >= l.failAfter {
		return nil, errors.New("ledger unavailable")
	}
	l.claims++
	return l.Ledger.Claim(ctx, ids)
}

func seedCampaign(t *testing.T, ledger ports.Ledger, recipients int) domain.Campaign {
	t.Helper()

	campaign := domain.NewCampaign(uuid.New(), "august promo", "hello {dest_addr}", "AXIS")
	require.NoError(t, ledger.SaveCampaign(context.Background(), campaign))

	rows := make([]domain.Recipient, 0, recipients)
	for i := 0; i < recipients; i++ {
		rows = append(rows, domain.NewRecipient(campaign.ID, fmt.Sprintf("+255700%06d", i), "hello"))
	}
	require.NoError(t, ledger.SaveRecipients(context.Background(), rows))
	return campaign
}

func TestProcessSendsEverythingAndCompletes(t *testing.T) {
	ledger := memory.NewLedger()
	campaign := seedCampaign(t, ledger, 2*testBatchSize+50) // 3 batches, last partial
	agg := &fakeAggregator{results: []ports.BatchResult{ports.Accepted("req-1")}}
	pacer := &countingPacer{}

	p := app.NewProcessor(ledger, agg, pacer, testBatchSize, discardLogger())
	require.NoError(t, p.Process(context.Background(), campaign.ID))

	assert.Len(t, agg.calls, 3)
	assert.Len(t, agg.calls[0], testBatchSize)
	assert.Len(t, agg.calls[2], 50)

	counts, err := ledger.CountByState(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2*testBatchSize+50), counts[domain.RecipientSent])
	assert.Zero(t, counts[domain.RecipientPending])
	assert.Zero(t, counts[domain.RecipientFailed])

	stored, err := ledger.Campaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignComplete, stored.Status)
}

func TestProcessRecordsProviderMetadata(t *testing.T) {
	ledger := memory.NewLedger()
	campaign := seedCampaign(t, ledger, 3)
	agg := &fakeAggregator{results: []ports.BatchResult{ports.Accepted("req-9")}}

	p := app.NewProcessor(ledger, agg, &countingPacer{}, testBatchSize, discardLogger())
	require.NoError(t, p.Process(context.Background(), campaign.ID))

	for _, r := range agg.calls[0] {
		stored, ok := ledger.Recipient(r.ID)
		require.True(t, ok)
		assert.Equal(t, domain.RecipientSent, stored.State)
		assert.Equal(t, "req-9", stored.ProviderMessageID)
		require.NotNil(t, stored.AttemptedAt)
		assert.WithinDuration(t, time.Now().UTC(), *stored.AttemptedAt, 5*time.Second)
	}
}

func TestProcessThrottlesBetweenFullBatchesOnly(t *testing.T) {
	ledger := memory.NewLedger()
	campaign := seedCampaign(t, ledger, 2*testBatchSize) // exactly 2 full batches
	agg := &fakeAggregator{results: []ports.BatchResult{ports.Accepted("req-1")}}
	pacer := &countingPacer{}

	p := app.NewProcessor(ledger, agg, pacer, testBatchSize, discardLogger())
	require.NoError(t, p.Process(context.Background(), campaign.ID))

	assert.Len(t, agg.calls, 2)
	// One wait between the two batches; none after the final one.
	assert.Equal(t, 1, pacer.waits)
}

func TestProcessRejectedBatchFailsWholeGroupAndContinues(t *testing.T) {
	ledger := memory.NewLedger()
	campaign := seedCampaign(t, ledger, testBatchSize+25)
	agg := &fakeAggregator{results: []ports.BatchResult{
		ports.Rejected("sender id not provisioned"),
		ports.Accepted("req-2"),
	}}

	p := app.NewProcessor(ledger, agg, &countingPacer{}, testBatchSize, discardLogger())
	require.NoError(t, p.Process(context.Background(), campaign.ID))

	// Both batches were attempted despite the first rejection.
	assert.Len(t, agg.calls, 2)

	counts, err := ledger.CountByState(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(testBatchSize), counts[domain.RecipientFailed])
	assert.Equal(t, int64(25), counts[domain.RecipientSent])

	// Every failed row carries the same batch-granular reason.
	for _, r := range agg.calls[0] {
		stored, ok := ledger.Recipient(r.ID)
		require.True(t, ok)
		assert.Equal(t, domain.RecipientFailed, stored.State)
		assert.Equal(t, "sender id not provisioned", stored.ProviderError)
	}

	stored, err := ledger.Campaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignPartial, stored.Status)
}

func TestProcessStructuralFailureLeavesConsistentState(t *testing.T) {
	inner := memory.NewLedger()
	ledger := &failingLedger{Ledger: inner, failAfter: 2}
	campaign := seedCampaign(t, inner, 3*testBatchSize)
	agg := &fakeAggregator{results: []ports.BatchResult{ports.Accepted("req-1")}}

	p := app.NewProcessor(ledger, agg, &countingPacer{}, testBatchSize, discardLogger())
	err := p.Process(context.Background(), campaign.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim batch")

	// The first two batches resolved before the failure; nothing was
	// attempted out of order and no row is stuck in processing.
	counts, cErr := inner.CountByState(context.Background(), campaign.ID)
	require.NoError(t, cErr)
	assert.Equal(t, int64(2*testBatchSize), counts[domain.RecipientSent])
	assert.Equal(t, int64(testBatchSize), counts[domain.RecipientPending])
	assert.Zero(t, counts[domain.RecipientProcessing])

	stored, sErr := inner.Campaign(context.Background(), campaign.ID)
	require.NoError(t, sErr)
	assert.Equal(t, domain.CampaignPartial, stored.Status)
}

func TestProcessMissingCampaign(t *testing.T) {
	ledger := memory.NewLedger()
	agg := &fakeAggregator{results: []ports.BatchResult{ports.Accepted("req-1")}}

	p := app.NewProcessor(ledger, agg, &countingPacer{}, testBatchSize, discardLogger())
	err := p.Process(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrCampaignNotFound)
}

func TestProcessEmptyCampaignCompletesWithoutCalls(t *testing.T) {
	ledger := memory.NewLedger()
	campaign := domain.NewCampaign(uuid.New(), "empty", "hi", "AXIS")
	require.NoError(t, ledger.SaveCampaign(context.Background(), campaign))
	agg := &fakeAggregator{results: []ports.BatchResult{ports.Accepted("req-1")}}
	pacer := &countingPacer{}

	p := app.NewProcessor(ledger, agg, pacer, testBatchSize, discardLogger())
	require.NoError(t, p.Process(context.Background(), campaign.ID))

	assert.Empty(t, agg.calls)
	assert.Zero(t, pacer.waits)

	stored, err := ledger.Campaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignComplete, stored.Status)
}
