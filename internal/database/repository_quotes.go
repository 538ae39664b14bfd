package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/presence-app/presence/pkg/models"
)

// Quotes

// CreateQuote creates a new quote record
func (r *Repository) CreateQuote(ctx context.Context, quote *models.Quote) error {
	if quote.ID == "" {
		quote.ID = uuid.New().String()
	}

	query := `
		INSERT INTO quotes (id, text, author, created_by, is_public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		quote.ID, quote.Text, quote.Author, quote.CreatedBy, quote.IsPublic,
	).Scan(&quote.CreatedAt, &quote.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}

	return nil
}

// GetQuote retrieves a quote by ID
func (r *Repository) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	query := quoteSelect + ` WHERE id = $1`

	quote, err := scanQuote(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	return quote, nil
}

// GetRandomPublicQuote retrieves a random public quote
func (r *Repository) GetRandomPublicQuote(ctx context.Context) (*models.Quote, error) {
	query := quoteSelect + ` WHERE is_public = TRUE ORDER BY random() LIMIT 1`

	quote, err := scanQuote(r.db.Pool.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("random quote: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get random quote: %w", err)
	}

	return quote, nil
}

// ListQuotesByAuthorPseudo retrieves the public quotes owned by the user with the given pseudo
func (r *Repository) ListQuotesByAuthorPseudo(ctx context.Context, pseudo string) ([]*models.Quote, error) {
	query := `
		SELECT q.id, q.text, q.author, q.created_by, q.is_public, q.created_at, q.updated_at
		FROM quotes q
		JOIN users u ON u.id = q.created_by
		WHERE u.pseudo = $1 AND q.is_public = TRUE
		ORDER BY q.created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, pseudo)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes by author: %w", err)
	}
	defer rows.Close()

	return collectQuotes(rows)
}

// ListQuotesByOwner retrieves all quotes created by a user, private included
func (r *Repository) ListQuotesByOwner(ctx context.Context, userID string) ([]*models.Quote, error) {
	query := quoteSelect + ` WHERE created_by = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes by owner: %w", err)
	}
	defer rows.Close()

	return collectQuotes(rows)
}

// UpdateQuote updates a quote's text and author, only when ownerID matches.
// ErrNotFound when the id matches no row owned by ownerID.
func (r *Repository) UpdateQuote(ctx context.Context, id, ownerID, text, author string) (*models.Quote, error) {
	query := `
		UPDATE quotes
		SET text = $3, author = $4, updated_at = now()
		WHERE id = $1 AND created_by = $2
		RETURNING id, text, author, created_by, is_public, created_at, updated_at
	`

	quote, err := scanQuote(r.db.Pool.QueryRow(ctx, query, id, ownerID, text, author))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}

	return quote, nil
}

// DeleteQuote deletes a quote owned by ownerID
func (r *Repository) DeleteQuote(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM quotes WHERE id = $1 AND created_by = $2`

	tag, err := r.db.Pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}

	return nil
}

// PublishQuotesByOwner flips all of a user's quotes public. Called when the
// owner's email is verified.
func (r *Repository) PublishQuotesByOwner(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE quotes SET is_public = TRUE, updated_at = now() WHERE created_by = $1 AND is_public = FALSE`

	tag, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to publish quotes: %w", err)
	}

	return tag.RowsAffected(), nil
}

const quoteSelect = `
	SELECT id, text, author, created_by, is_public, created_at, updated_at
	FROM quotes`

func scanQuote(row pgx.Row) (*models.Quote, error) {
	var quote models.Quote
	err := row.Scan(
		&quote.ID, &quote.Text, &quote.Author, &quote.CreatedBy,
		&quote.IsPublic, &quote.CreatedAt, &quote.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func collectQuotes(rows pgx.Rows) ([]*models.Quote, error) {
	var quotes []*models.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read quotes: %w", err)
	}

	return quotes, nil
}
