// Package optimistic applies local state changes ahead of a remote
// confirmation and undoes them if the confirmation fails.
//
// Every Apply captures its own inverse from the state it saw, so concurrent
// pending changes never share rollback data. The inverse is applied to the
// state current at revert time, not to a stale copy.
package optimistic

import "sync"

// Inverse undoes one change against the current state.
type Inverse[S any] func(S) S

// Change computes the new state and the inverse of that change.
type Change[S any] func(S) (S, Inverse[S])

// Store guards a state value. The zero value is ready to use.
type Store[S any] struct {
	mu    sync.Mutex
	state S
}

func NewStore[S any](initial S) *Store[S] {
	return &Store[S]{state: initial}
}

// Get returns the current state.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the state outside any pending change.
func (s *Store[S]) Set(state S) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Update applies fn without recording an inverse.
func (s *Store[S]) Update(fn func(S) S) S {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

// Apply runs change against the current state and returns the pending
// action holding its inverse.
func (s *Store[S]) Apply(change Change[S]) *Pending[S] {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, inverse := change(s.state)
	s.state = next
	return &Pending[S]{store: s, inverse: inverse}
}

// Pending is an applied but unconfirmed change.
type Pending[S any] struct {
	store *Store[S]

	once    sync.Once
	inverse Inverse[S]
}

// Commit keeps the change. Only the first Commit or Revert has effect.
func (p *Pending[S]) Commit() {
	p.once.Do(func() { p.inverse = nil })
}

// Revert undoes the change. Only the first Commit or Revert has effect.
func (p *Pending[S]) Revert() {
	p.once.Do(func() {
		inv := p.inverse
		p.inverse = nil
		if inv == nil {
			return
		}
		p.store.Update(func(s S) S { return inv(s) })
	})
}

// Settle commits when err is nil and reverts otherwise. It returns err.
func (p *Pending[S]) Settle(err error) error {
	if err != nil {
		p.Revert()
	} else {
		p.Commit()
	}
	return err
}
