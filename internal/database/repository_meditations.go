package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/presence-app/presence/pkg/models"
)

// Meditations

// GetMeditationByQuote retrieves the meditation cached for a quote, if any
func (r *Repository) GetMeditationByQuote(ctx context.Context, quoteID string) (*models.Meditation, error) {
	var m models.Meditation

	query := `
		SELECT id, quote_id, content, language, created_at
		FROM meditations
		WHERE quote_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, quoteID).Scan(
		&m.ID, &m.QuoteID, &m.Content, &m.Language, &m.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("meditation for quote %s: %w", quoteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meditation: %w", err)
	}

	return &m, nil
}

// CreateMeditation persists a generated meditation. The one-per-quote
// invariant is enforced by the unique index on quote_id: when a concurrent
// caller already inserted a row, that row is returned and created is false.
func (r *Repository) CreateMeditation(ctx context.Context, m *models.Meditation) (created bool, err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO meditations (id, quote_id, content, language)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (quote_id) DO NOTHING
		RETURNING created_at
	`

	err = r.db.Pool.QueryRow(ctx, query, m.ID, m.QuoteID, m.Content, m.Language).Scan(&m.CreatedAt)
	if err == pgx.ErrNoRows {
		// Lost the race: hand back the winner's row
		existing, getErr := r.GetMeditationByQuote(ctx, m.QuoteID)
		if getErr != nil {
			return false, getErr
		}
		*m = *existing
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create meditation: %w", err)
	}

	return true, nil
}

// GetLimitCount returns today's generation count for an identity, zero when
// no row exists yet.
func (r *Repository) GetLimitCount(ctx context.Context, identity models.Identity, date string) (int, error) {
	var count int

	query := `
		SELECT count FROM meditation_limits
		WHERE identifier = $1 AND identity_type = $2 AND date = $3
	`

	err := r.db.Pool.QueryRow(ctx, query, identity.Identifier, identity.Type, date).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get limit count: %w", err)
	}

	return count, nil
}

// ConsumeLimit atomically increments the daily counter for an identity and
// returns the post-increment count. The increment only happens while the
// counter is below max; ok is false when the quota is already spent. A single
// conditional upsert keeps concurrent requests from both taking the last slot.
func (r *Repository) ConsumeLimit(ctx context.Context, identity models.Identity, date string, max int) (count int, ok bool, err error) {
	query := `
		INSERT INTO meditation_limits (identifier, identity_type, date, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (identifier, identity_type, date)
		DO UPDATE SET count = meditation_limits.count + 1, updated_at = now()
		WHERE meditation_limits.count < $4
		RETURNING count
	`

	err = r.db.Pool.QueryRow(ctx, query, identity.Identifier, identity.Type, date, max).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to consume limit: %w", err)
	}

	return count, true, nil
}

// PruneLimits deletes daily counters older than the cutoff date. Past days
// no longer affect any quota, so the rows are pure dead weight.
func (r *Repository) PruneLimits(ctx context.Context, before string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM meditation_limits WHERE date < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune limits: %w", err)
	}
	return tag.RowsAffected(), nil
}
