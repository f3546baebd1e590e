package store

import (
	"context"
	"sort"
)

// Counts holds per-user successful delivery counters.
type Counts struct {
	Videos uint64
	Audios uint64
}

// UserRecord is one allow-listed user.
type UserRecord struct {
	ID     int64
	Alias  string
	Counts Counts
}

// Contains reports whether id is allow-listed.
func (s *Store) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}

// Add inserts or overwrites the record for id and persists the registry.
func (s *Store) Add(ctx context.Context, id int64, alias string) {
	s.mu.Lock()
	s.users[id] = &UserRecord{ID: id, Alias: alias}
	s.mu.Unlock()
	s.persist(ctx)
}

// Remove deletes the record for id and persists the registry.
func (s *Store) Remove(ctx context.Context, id int64) {
	s.mu.Lock()
	delete(s.users, id)
	delete(s.pending, id)
	s.mu.Unlock()
	s.persist(ctx)
}

// List returns a copy of all records ordered by ascending ID.
func (s *Store) List() []UserRecord {
	s.mu.Lock()
	out := make([]UserRecord, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordDownload increments the audio or video counter of id and persists.
// Unknown IDs are ignored.
func (s *Store) RecordDownload(ctx context.Context, id int64, audio bool) {
	s.mu.Lock()
	u, ok := s.users[id]
	if ok {
		if audio {
			u.Counts.Audios++
		} else {
			u.Counts.Videos++
		}
	}
	s.mu.Unlock()
	if ok {
		s.persist(ctx)
	}
}
