package store

// Pending is the unresolved link a user submitted, bound to the prompt
// message that offered the format choice.
type Pending struct {
	URL    string
	Prompt int
}

// SetPending stores p for id, replacing any earlier unresolved request.
func (s *Store) SetPending(id int64, p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = p
}

// TakePending removes and returns the pending request of id.
func (s *Store) TakePending(id int64) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return p, ok
}

// TakePendingFor removes and returns the pending URL of id only when it was
// offered on prompt. A newer request for the same user is left in place.
func (s *Store) TakePendingFor(id int64, prompt int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok || p.Prompt != prompt {
		return "", false
	}
	delete(s.pending, id)
	return p.URL, true
}
