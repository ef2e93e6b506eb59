// Package memory implements ports.Ledger on in-process maps. It is the
// reference implementation of the claim semantics and backs the unit
// tests; everything is guarded by one mutex so claims stay atomic under
// concurrent callers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"

	"github.com/google/uuid"
)

// Ledger implements ports.Ledger in memory.
type Ledger struct {
	mu         sync.Mutex
	campaigns  map[uuid.UUID]domain.Campaign
	recipients map[uuid.UUID]domain.Recipient
	seq        map[uuid.UUID]int // insertion order, the stable batch order
	nextSeq    int
}

// NewLedger returns an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		campaigns:  make(map[uuid.UUID]domain.Campaign),
		recipients: make(map[uuid.UUID]domain.Recipient),
		seq:        make(map[uuid.UUID]int),
	}
}

func (l *Ledger) SaveCampaign(_ context.Context, c domain.Campaign) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.campaigns[c.ID] = c
	return nil
}

func (l *Ledger) Campaign(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return &c, nil
}

func (l *Ledger) UpdateCampaignStatus(_ context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.campaigns[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	l.campaigns[id] = c
	return nil
}

func (l *Ledger) SaveRecipients(_ context.Context, rows []domain.Recipient) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rows {
		l.recipients[r.ID] = r
		l.seq[r.ID] = l.nextSeq
		l.nextSeq++
	}
	return nil
}

func (l *Ledger) NextPending(_ context.Context, campaignID uuid.UUID, limit int) ([]domain.Recipient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var rows []domain.Recipient
	for _, r := range l.recipients {
		if r.CampaignID == campaignID && r.State == domain.RecipientPending {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return l.seq[rows[i].ID] < l.seq[rows[j].ID]
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (l *Ledger) Claim(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var claimed []uuid.UUID
	now := time.Now().UTC()
	for _, id := range ids {
		r, ok := l.recipients[id]
		if !ok || r.State != domain.RecipientPending {
			continue
		}
		r.State = domain.RecipientProcessing
		r.UpdatedAt = now
		l.recipients[id] = r
		claimed = append(claimed, id)
	}
	return claimed, nil
}

func (l *Ledger) Resolve(_ context.Context, ids []uuid.UUID, outcome domain.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	attemptedAt := outcome.AttemptedAt
	for _, id := range ids {
		r, ok := l.recipients[id]
		if !ok {
			continue
		}
		r.State = outcome.State
		r.ProviderMessageID = outcome.ProviderMessageID
		r.ProviderError = outcome.ProviderError
		r.AttemptedAt = &attemptedAt
		r.UpdatedAt = time.Now().UTC()
		l.recipients[id] = r
	}
	return nil
}

func (l *Ledger) CountByState(_ context.Context, campaignID uuid.UUID) (map[domain.RecipientState]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[domain.RecipientState]int64)
	for _, r := range l.recipients {
		if r.CampaignID == campaignID {
			counts[r.State]++
		}
	}
	return counts, nil
}

func (l *Ledger) RequeueFailed(_ context.Context, campaignID uuid.UUID) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for id, r := range l.recipients {
		if r.CampaignID == campaignID && r.State == domain.RecipientFailed {
			r.State = domain.RecipientPending
			r.ProviderMessageID = ""
			r.ProviderError = ""
			r.AttemptedAt = nil
			r.UpdatedAt = time.Now().UTC()
			l.recipients[id] = r
			n++
		}
	}
	return n, nil
}

func (l *Ledger) ReleaseStale(_ context.Context, olderThan time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var n int64
	for id, r := range l.recipients {
		if r.State == domain.RecipientProcessing && r.UpdatedAt.Before(cutoff) {
			r.State = domain.RecipientPending
			r.UpdatedAt = time.Now().UTC()
			l.recipients[id] = r
			n++
		}
	}
	return n, nil
}

// Recipient returns a copy of one ledger row, for assertions in tests.
func (l *Ledger) Recipient(id uuid.UUID) (domain.Recipient, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.recipients[id]
	return r, ok
}
