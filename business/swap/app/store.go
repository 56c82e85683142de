package app

import (
	"sync"

	"github.com/fd1az/swap-router/business/swap/domain"
)

// Snapshot is the read model handed to reporters: the latest published
// round plus transient loading state.
type Snapshot struct {
	Round   domain.RoundSet
	Loading bool
}

// Selected returns the estimate the dispatcher would act on.
func (s Snapshot) Selected() *domain.Estimate {
	return s.Round.Selected()
}

// Store holds the single authoritative estimation state. Only the
// orchestrator writes rounds; readers subscribe for change
// notifications and never observe a half-published round.
type Store struct {
	mu      sync.RWMutex
	round   domain.RoundSet
	loading bool

	// user route override, reapplied on every publish while the
	// request keeps the same shape and the venue stays eligible
	override    *domain.Venue
	overrideReq domain.SwapRequest

	nextSubID int
	subs      map[int]chan Snapshot
}

func NewStore() *Store {
	return &Store{subs: make(map[int]chan Snapshot)}
}

// Subscribe registers a listener. The channel carries the latest
// snapshot; a slow consumer only ever misses intermediate states,
// never the most recent one. Cancel removes the subscription.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish atomically replaces the current round. A standing user
// override is reapplied when the new round serves the same request
// shape and the chosen venue is still eligible; otherwise it is
// dropped and the ranked best wins.
func (s *Store) Publish(round domain.RoundSet) {
	s.mu.Lock()
	if s.override != nil {
		if s.overrideReq.SameShape(round.Request) {
			if e := round.Find(*s.override); e != nil && e.CanSwap {
				round.Estimates = domain.Select(round.Estimates, *s.override)
			} else {
				s.override = nil
			}
		} else {
			s.override = nil
		}
	}
	s.round = round
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Clear drops all estimation state, including any user override.
func (s *Store) Clear() {
	s.mu.Lock()
	s.round = domain.RoundSet{}
	s.loading = false
	s.override = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetLoading flags that a new round is pending while the previous one
// stays visible.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	if s.loading == loading {
		s.mu.Unlock()
		return
	}
	s.loading = loading
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetOverride pins the user's venue choice. It survives re-estimation
// for the same request shape until cleared or invalidated.
func (s *Store) SetOverride(v domain.Venue) bool {
	s.mu.Lock()
	e := s.round.Find(v)
	if e == nil || !e.CanSwap {
		s.mu.Unlock()
		return false
	}
	s.override = &v
	s.overrideReq = s.round.Request
	s.round.Estimates = domain.Select(s.round.Estimates, v)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// ClearOverride reverts to automatic best-route selection.
func (s *Store) ClearOverride() {
	s.mu.Lock()
	s.override = nil
	s.round.Estimates = domain.Select(s.round.Estimates, domain.VenueNone)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	round := s.round
	round.Estimates = append([]domain.Estimate(nil), s.round.Estimates...)
	return Snapshot{Round: round, Loading: s.loading}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		// keep only the latest snapshot in the buffer
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
