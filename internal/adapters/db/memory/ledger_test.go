package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/db/memory"
	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, ledger *memory.Ledger, n int) (domain.Campaign, []uuid.UUID) {
	t.Helper()

	campaign := domain.NewCampaign(uuid.New(), "seeded", "hi {dest_addr}", "AXIS")
	require.NoError(t, ledger.SaveCampaign(context.Background(), campaign))

	rows := make([]domain.Recipient, 0, n)
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		r := domain.NewRecipient(campaign.ID, fmt.Sprintf("+255710%06d", i), "hi")
		rows = append(rows, r)
		ids = append(ids, r.ID)
	}
	require.NoError(t, ledger.SaveRecipients(context.Background(), rows))
	return campaign, ids
}

func TestNextPendingIsStableAndBounded(t *testing.T) {
	ledger := memory.NewLedger()
	campaign, ids := seed(t, ledger, 10)

	first, err := ledger.NextPending(context.Background(), campaign.ID, 4)
	require.NoError(t, err)
	require.Len(t, first, 4)
	for i, r := range first {
		assert.Equal(t, ids[i], r.ID) // creation order
	}

	// Selection never mutates; the same slice comes back until claimed.
	again, err := ledger.NextPending(context.Background(), campaign.ID, 4)
	require.NoError(t, err)
	require.Len(t, again, 4)
	assert.Equal(t, first[0].ID, again[0].ID)
}

func TestClaimOnlyTransitionsPendingRows(t *testing.T) {
	ledger := memory.NewLedger()
	_, ids := seed(t, ledger, 3)

	claimed, err := ledger.Claim(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, claimed, 3)

	// A second claim over the same ids gets nothing back.
	claimed, err = ledger.Claim(context.Background(), ids)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestConcurrentClaimsNeverShareARow(t *testing.T) {
	ledger := memory.NewLedger()
	_, ids := seed(t, ledger, 500)

	const workers = 8
	results := make([][]uuid.UUID, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			claimed, err := ledger.Claim(context.Background(), ids)
			assert.NoError(t, err)
			results[w] = claimed
		}(w)
	}
	wg.Wait()

	seen := make(map[uuid.UUID]int)
	total := 0
	for _, claimed := range results {
		total += len(claimed)
		for _, id := range claimed {
			seen[id]++
		}
	}

	// Every row claimed exactly once across all workers.
	assert.Equal(t, len(ids), total)
	for id, n := range seen {
		assert.Equalf(t, 1, n, "row %s claimed %d times", id, n)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	ledger := memory.NewLedger()
	_, ids := seed(t, ledger, 2)

	claimed, err := ledger.Claim(context.Background(), ids)
	require.NoError(t, err)

	require.NoError(t, ledger.Resolve(context.Background(), claimed, domain.SentOutcome("req-1")))
	// Re-resolving overwrites, never errors.
	require.NoError(t, ledger.Resolve(context.Background(), claimed, domain.SentOutcome("req-2")))

	for _, id := range claimed {
		r, ok := ledger.Recipient(id)
		require.True(t, ok)
		assert.Equal(t, domain.RecipientSent, r.State)
		assert.Equal(t, "req-2", r.ProviderMessageID)
	}
}

func TestRequeueFailedResetsOutcome(t *testing.T) {
	ledger := memory.NewLedger()
	campaign, ids := seed(t, ledger, 4)

	claimed, err := ledger.Claim(context.Background(), ids[:2])
	require.NoError(t, err)
	require.NoError(t, ledger.Resolve(context.Background(), claimed, domain.FailedOutcome("gateway timeout")))

	n, err := ledger.RequeueFailed(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := ledger.CountByState(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[domain.RecipientPending])

	r, ok := ledger.Recipient(ids[0])
	require.True(t, ok)
	assert.Empty(t, r.ProviderError)
	assert.Nil(t, r.AttemptedAt)
}

func TestReleaseStaleOnlyTouchesOldProcessingRows(t *testing.T) {
	ledger := memory.NewLedger()
	campaign, ids := seed(t, ledger, 3)

	claimed, err := ledger.Claim(context.Background(), ids[:2])
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Freshly claimed rows are not stale yet.
	n, err := ledger.ReleaseStale(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	// With a zero age everything in processing is past the cutoff.
	time.Sleep(5 * time.Millisecond)
	n, err = ledger.ReleaseStale(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := ledger.CountByState(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[domain.RecipientPending])
}
