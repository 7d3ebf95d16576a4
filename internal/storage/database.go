// Package storage persists completed reviews and webhook comment deliveries.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/schema-warden/internal/core"
)

// Store defines the interface for all database operations.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store
type Store interface {
	SaveReview(ctx context.Context, review *core.Review) error
	GetReview(ctx context.Context, id string) (*core.Review, error)
	RecordDelivery(ctx context.Context, delivery *core.CommentDelivery) error
	HasDelivery(ctx context.Context, eventID string) (bool, error)
}

// sqlStore serves both postgres and sqlite. Queries use ? placeholders and are
// rebound to the driver's bind style.
type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

// SaveReview inserts a new review record into the database. A zero CreatedAt is
// set to the current time.
func (s *sqlStore) SaveReview(ctx context.Context, review *core.Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	query := s.db.Rebind(`INSERT INTO reviews (id, pr_url, filename, model, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, review.ID, review.PRURL, review.Filename, review.Model, review.Content, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save review %s: %w", review.ID, err)
	}
	return nil
}

// GetReview retrieves a review by its ID.
func (s *sqlStore) GetReview(ctx context.Context, id string) (*core.Review, error) {
	query := s.db.Rebind(`
		SELECT id, pr_url, filename, model, content, created_at
		FROM reviews
		WHERE id = ?`)

	var r core.Review
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}

// RecordDelivery remembers that an event produced a comment. Recording the same
// event twice keeps the first row.
func (s *sqlStore) RecordDelivery(ctx context.Context, delivery *core.CommentDelivery) error {
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}
	query := s.db.Rebind(`
		INSERT INTO comment_deliveries (event_id, pr_number, file_path, line_number, comment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`)
	_, err := s.db.ExecContext(ctx, query,
		delivery.EventID, delivery.PRNumber, delivery.FilePath, delivery.LineNumber, delivery.CommentID, delivery.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record delivery for event %s: %w", delivery.EventID, err)
	}
	return nil
}

// HasDelivery reports whether a comment was already posted for the event.
func (s *sqlStore) HasDelivery(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	query := s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM comment_deliveries WHERE event_id = ?)`)
	if err := s.db.GetContext(ctx, &exists, query, eventID); err != nil {
		return false, fmt.Errorf("failed to look up delivery for event %s: %w", eventID, err)
	}
	return exists, nil
}
