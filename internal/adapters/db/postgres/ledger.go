// Package postgres implements ports.Ledger on PostgreSQL via gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Ledger implements ports.Ledger using PostgreSQL.
type Ledger struct {
	db *gorm.DB
}

// New opens a PostgreSQL connection and returns a Ledger.
func New(dsn string) (*Ledger, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying connection pool.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveCampaign inserts a new campaign row.
func (l *Ledger) SaveCampaign(ctx context.Context, c domain.Campaign) error {
	if err := l.db.WithContext(ctx).Create(&c).Error; err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// Campaign retrieves a campaign by ID.
func (l *Ledger) Campaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	var c domain.Campaign
	err := l.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select campaign: %w", err)
	}
	return &c, nil
}

// UpdateCampaignStatus transitions a campaign to the given status.
func (l *Ledger) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	res := l.db.WithContext(ctx).Model(&domain.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update campaign status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// SaveRecipients inserts a batch of ledger rows inside one transaction,
// chunked to keep statements bounded for large recipient lists.
func (l *Ledger) SaveRecipients(ctx context.Context, rows []domain.Recipient) error {
	if len(rows) == 0 {
		return nil
	}
	if err := l.db.WithContext(ctx).CreateInBatches(rows, 1000).Error; err != nil {
		return fmt.Errorf("insert recipients: %w", err)
	}
	return nil
}

// NextPending returns up to limit pending rows for a campaign in
// creation order, so processing is deterministic and resumable. No row
// locks: the conditional claim below is the exclusivity mechanism.
func (l *Ledger) NextPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Recipient, error) {
	var rows []domain.Recipient
	err := l.db.WithContext(ctx).
		Where("campaign_id = ? AND state = ?", campaignID, domain.RecipientPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select pending recipients: %w", err)
	}
	return rows, nil
}

// Claim atomically transitions rows from pending to processing. The
// WHERE clause on state makes the update conditional, so an overlapping
// run can never claim a row twice; RETURNING reports which rows this
// caller actually owns.
func (l *Ledger) Claim(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const q = `
		UPDATE recipients
		SET state = ?, updated_at = ?
		WHERE id IN ? AND state = ?
		RETURNING id
	`
	var claimed []struct{ ID uuid.UUID }
	err := l.db.WithContext(ctx).
		Raw(q, domain.RecipientProcessing, time.Now().UTC(), ids, domain.RecipientPending).
		Scan(&claimed).Error
	if err != nil {
		return nil, fmt.Errorf("claim recipients: %w", err)
	}

	out := make([]uuid.UUID, 0, len(claimed))
	for _, row := range claimed {
		out = append(out, row.ID)
	}
	return out, nil
}

// Resolve transitions previously claimed rows to the outcome's terminal
// state. Unconditional and idempotent: re-resolving overwrites the
// stored outcome, which keeps a crash between claim and resolve from
// corrupting state on a later run.
func (l *Ledger) Resolve(ctx context.Context, ids []uuid.UUID, outcome domain.Outcome) error {
	if len(ids) == 0 {
		return nil
	}

	const q = `
		UPDATE recipients
		SET state = ?, provider_message_id = ?, provider_error = ?, attempted_at = ?, updated_at = ?
		WHERE id IN ?
	`
	err := l.db.WithContext(ctx).
		Exec(q, outcome.State, outcome.ProviderMessageID, outcome.ProviderError, outcome.AttemptedAt, time.Now().UTC(), ids).Error
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	return nil
}

// CountByState returns per-state row counts for a campaign.
func (l *Ledger) CountByState(ctx context.Context, campaignID uuid.UUID) (map[domain.RecipientState]int64, error) {
	const q = `
		SELECT state, COUNT(*) AS count
		FROM recipients
		WHERE campaign_id = ?
		GROUP BY state
	`
	var rows []struct {
		State domain.RecipientState
		Count int64
	}
	if err := l.db.WithContext(ctx).Raw(q, campaignID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count recipients by state: %w", err)
	}

	counts := make(map[domain.RecipientState]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// RequeueFailed resets a campaign's failed rows to pending, clearing the
// recorded outcome so the next run attempts them fresh.
func (l *Ledger) RequeueFailed(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	const q = `
		UPDATE recipients
		SET state = ?, provider_message_id = '', provider_error = '', attempted_at = NULL, updated_at = ?
		WHERE campaign_id = ? AND state = ?
	`
	res := l.db.WithContext(ctx).
		Exec(q, domain.RecipientPending, time.Now().UTC(), campaignID, domain.RecipientFailed)
	if res.Error != nil {
		return 0, fmt.Errorf("requeue failed recipients: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ReleaseStale resets rows stuck in processing for longer than olderThan
// back to pending, across all campaigns.
func (l *Ledger) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	const q = `
		UPDATE recipients
		SET state = ?, updated_at = ?
		WHERE state = ? AND updated_at < ?
	`
	res := l.db.WithContext(ctx).
		Exec(q, domain.RecipientPending, time.Now().UTC(), domain.RecipientProcessing, cutoff)
	if res.Error != nil {
		return 0, fmt.Errorf("release stale recipients: %w", res.Error)
	}
	return res.RowsAffected, nil
}
