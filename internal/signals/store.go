package signals

import (
	"sync"
)

// Store holds the last known value of each signal. Producers on different
// goroutines may call Update concurrently; readers get whole snapshots.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Change)
}

// NewStore creates a store with every signal at its unknown sentinel.
func NewStore() *Store {
	return &Store{
		snap: Snapshot{
			Battery: Battery{Unknown: true},
		},
	}
}

// OnChange registers a listener called after every applied change.
// Listeners run on the producer's goroutine, outside the store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update stores sig if it differs from the current value and notifies the
// listeners. It reports whether anything changed.
func (s *Store) Update(sig Signal) bool {
	s.mu.Lock()
	change, changed := s.apply(sig)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.snap.Version++
	change.Snapshot = s.snap
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return true
}

// apply must be called with the write lock held.
func (s *Store) apply(sig Signal) (Change, bool) {
	switch v := sig.(type) {
	case Battery:
		v = normalizeBattery(v)
		if s.snap.Battery == v {
			return Change{}, false
		}
		old := s.snap.Battery
		s.snap.Battery = v
		return Change{Kind: KindBattery, Old: old, New: v}, true

	case Link:
		if s.snap.LinkKnown && s.snap.Link == v {
			return Change{}, false
		}
		old := s.snap.Link
		profileChanged := s.snap.LinkKnown && old.ProfileIndex != v.ProfileIndex
		s.snap.Link = v
		s.snap.LinkKnown = true
		return Change{Kind: KindLink, Old: old, New: v, ProfileChanged: profileChanged}, true

	case CapsLock:
		if s.snap.CapsLockKnown && s.snap.CapsLock == v {
			return Change{}, false
		}
		old := s.snap.CapsLock
		s.snap.CapsLock = v
		s.snap.CapsLockKnown = true
		return Change{Kind: KindCapsLock, Old: old, New: v}, true

	case BootPhase:
		if s.snap.BootKnown && s.snap.Boot == v {
			return Change{}, false
		}
		old := s.snap.Boot
		s.snap.Boot = v
		s.snap.BootKnown = true
		return Change{Kind: KindBoot, Old: old, New: v}, true

	case Endpoint:
		if s.snap.Endpoint == v {
			return Change{}, false
		}
		old := s.snap.Endpoint
		s.snap.Endpoint = v
		return Change{Kind: KindEndpoint, Old: old, New: v}, true
	}
	return Change{}, false
}

// Snapshot returns a consistent copy of all signals.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func normalizeBattery(b Battery) Battery {
	if b.Unknown {
		return Battery{Unknown: true}
	}
	switch {
	case b.Percent < 0:
		b.Percent = 0
	case b.Percent > 100:
		b.Percent = 100
	}
	return b
}
