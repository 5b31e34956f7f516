package engine

import (
	"slices"
	"sync"
)

// InFlight is the set of source paths with an un-retired WorkItem.
//
// A source path appears at most once. Claim is the only way in, so the
// check and the insert happen under one lock.
//
// Thread-safety: InFlight is safe for concurrent use.
type InFlight struct {
	mu    sync.Mutex
	items map[string]*WorkItem
}

// NewInFlight creates an empty set.
func NewInFlight() *InFlight {
	return &InFlight{items: make(map[string]*WorkItem)}
}

// Claim adds item keyed by its source path. It returns false and leaves the
// set unchanged when the path is already claimed.
func (s *InFlight) Claim(item *WorkItem) bool {
	return s.ClaimWith(item, nil)
}

// ClaimWith is Claim, but runs init on item under the lock once the claim
// has succeeded. A lost claim never calls init.
func (s *InFlight) ClaimWith(item *WorkItem, init func(*WorkItem)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.Source]; ok {
		return false
	}
	if init != nil {
		init(item)
	}
	s.items[item.Source] = item
	return true
}

// Retire removes source from the set. Retiring an unclaimed path is a no-op.
func (s *InFlight) Retire(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, source)
}

// Contains reports whether source is claimed.
func (s *InFlight) Contains(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[source]
	return ok
}

// Len returns the number of claimed paths.
func (s *InFlight) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Snapshot returns a copy of the claimed source paths.
func (s *InFlight) Snapshot() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]struct{}, len(s.items))
	for src := range s.items {
		out[src] = struct{}{}
	}
	return out
}

// Items returns the claimed items ordered by seq.
func (s *InFlight) Items() []WorkItem {
	s.mu.Lock()
	out := make([]WorkItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b WorkItem) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return out
}
