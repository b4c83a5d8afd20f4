package ignore

import "sync/atomic"

// Store publishes the current matcher. Readers get an immutable snapshot;
// writers replace it wholesale so in-flight comparisons keep their view.
type Store struct {
	current atomic.Pointer[Matcher]
}

// NewStore seeds a store with the supplied matcher (nil means "ignore nothing").
func NewStore(initial *Matcher) *Store {
	s := &Store{}
	if initial == nil {
		initial = New(nil)
	}
	s.current.Store(initial)
	return s
}

// Load returns the current matcher.
func (s *Store) Load() *Matcher {
	if s == nil {
		return nil
	}
	return s.current.Load()
}

// Replace swaps in a new matcher and returns the previous one.
func (s *Store) Replace(next *Matcher) *Matcher {
	if next == nil {
		next = New(nil)
	}
	return s.current.Swap(next)
}
