package storage

import (
	"context"
	"fmt"

	"github.com/sevigo/schema-warden/internal/core"
)

// nopStore is used when the database is disabled. Writes are dropped and every
// lookup misses.
type nopStore struct{}

// NewNopStore returns a Store that persists nothing.
func NewNopStore() Store {
	return nopStore{}
}

func (nopStore) SaveReview(context.Context, *core.Review) error { return nil }

func (nopStore) GetReview(_ context.Context, id string) (*core.Review, error) {
	return nil, fmt.Errorf("review %s: %w (storage disabled)", id, core.ErrNotFound)
}

func (nopStore) RecordDelivery(context.Context, *core.CommentDelivery) error { return nil }

func (nopStore) HasDelivery(context.Context, string) (bool, error) { return false, nil }
