// Package store keeps the allow-listed users, their download counters and the
// per-user pending download request behind a single lock.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/mediabot/core/logger"
)

// Store is the registry and session aggregate shared by all handlers.
type Store struct {
	mu      sync.Mutex
	users   map[int64]*UserRecord
	pending map[int64]Pending

	persistMu sync.Mutex
	snap      Snapshotter
	onFailure func(error)
}

// Option customizes a Store.
type Option func(*Store)

// WithPersistFailureHook registers fn to be called whenever a snapshot save fails.
func WithPersistFailureHook(fn func(error)) Option {
	return func(s *Store) { s.onFailure = fn }
}

// Open loads the last snapshot and returns a ready store.
func Open(ctx context.Context, snap Snapshotter, opts ...Option) (*Store, error) {
	if snap == nil {
		return nil, fmt.Errorf("store: nil snapshotter")
	}
	users, err := snap.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: load snapshot: %w", err)
	}
	s := &Store{
		users:   make(map[int64]*UserRecord, len(users)),
		pending: make(map[int64]Pending),
		snap:    snap,
	}
	for _, u := range users {
		rec := u
		s.users[rec.ID] = &rec
	}
	for _, opt := range opts {
		opt(s)
	}
	logger.Info(ctx, "store", "snapshot.loaded", slog.Int("users", len(s.users)))
	return s, nil
}

// persist saves the full registry. Failures are logged and reported through
// the failure hook; the in-memory state is kept either way.
func (s *Store) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	// Snapshot under the persist lock so the last save carries the newest state.
	users := s.List()

	start := time.Now()
	if err := s.snap.Save(ctx, users); err != nil {
		logger.Error(ctx, "store", "snapshot.save",
			slog.String("status", "fail"),
			slog.Int("users", len(users)),
			slog.Any("err", err),
		)
		if s.onFailure != nil {
			s.onFailure(err)
		}
		return
	}
	logger.Debug(ctx, "store", "snapshot.save",
		slog.String("status", "ok"),
		slog.Int("users", len(users)),
		slog.Duration("took_ms", logger.Took(start)),
	)
}
