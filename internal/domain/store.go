package domain

import (
	"context"
	"errors"
)

// EntityStore is the hierarchical entity store. Entities are serialized as
// JSON objects; property names in queries refer to their JSON field names.
type EntityStore interface {
	Get(ctx context.Context, key Key, dst any) error
	// GetMulti loads every key that exists, in key order. Missing keys are
	// skipped.
	GetMulti(ctx context.Context, keys []Key) ([]Record, error)
	Put(ctx context.Context, key Key, src any) error
	Delete(ctx context.Context, key Key) error
	// AllocateID reserves a new key of kind, optionally under parent.
	AllocateID(ctx context.Context, kind string, parent *Key) (Key, error)
	Query(ctx context.Context, q Query) ([]Record, error)
	// RunInTransaction runs fn against a consistent snapshot and commits its
	// buffered writes atomically. On a concurrent commit fn is re-run a
	// bounded number of times before ErrTxConflict is returned. An error
	// returned by fn aborts the transaction without writing.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// RetryOnTxConflict runs attempt until it succeeds, fails with an error other
// than ErrTxConflict, or has been tried maxAttempts times. Store backends use
// it to implement RunInTransaction.
func RetryOnTxConflict(ctx context.Context, maxAttempts int, attempt func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for i := 0; i < maxAttempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = attempt(ctx)
		if err == nil || !errors.Is(err, ErrTxConflict) {
			return err
		}
	}
	return err
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	Get(ctx context.Context, key Key, dst any) error
	Put(ctx context.Context, key Key, src any) error
}

// Cache is a shared string cache.
type Cache interface {
	Set(ctx context.Context, key, value string) error
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// Cache keys.
const (
	CacheKeyFeaturedSpeaker     = "FEATURED_SPEAKER"
	CacheKeyRecentAnnouncements = "RECENT_ANNOUNCEMENTS"
)

// TaskQueue accepts background tasks addressed to a named handler.
type TaskQueue interface {
	Enqueue(ctx context.Context, target string, payload map[string]string) error
}

// Task targets.
const (
	TaskSetFeaturedSpeaker    = "set_featured_speaker"
	TaskSendConfirmationEmail = "send_confirmation_email"
)
