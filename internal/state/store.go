package state

import (
	"sync"

	"github.com/wordtrail/syncore/internal/learner"
)

// Event describes one mutation of the live store, delivered synchronously
// to subscribers after the mutation completes.
type Event struct {
	// LearnerID is the learner whose block changed ("" for process-wide
	// changes such as roster updates).
	LearnerID string

	// Switched is true when the whole learner block was replaced.
	Switched bool
}

// Store is the live state store: the in-memory, synchronously-readable
// source for all UI reads. Mutations run to completion under one mutex and
// notify subscribers before returning; no operation blocks on I/O.
type Store struct {
	mu         sync.Mutex
	roster     []learner.Learner
	active     *LearnerState
	generation uint64
	subs       map[int]func(Event)
	nextSubID  int
}

// New creates an empty live store with no active learner.
func New() *Store {
	return &Store{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for synchronous change notification. The returned
// function unsubscribes. Subscribers must not block: they run inline on the
// mutating caller.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// notifyLocked snapshots the subscriber list under the lock, then delivers
// outside it so a subscriber can re-read the store without deadlocking.
func (s *Store) notifyLocked(ev Event) func() {
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// SetRoster replaces the process-wide learner list.
func (s *Store) SetRoster(roster []learner.Learner) {
	s.mu.Lock()
	s.roster = append([]learner.Learner{}, roster...)
	notify := s.notifyLocked(Event{})
	s.mu.Unlock()
	notify()
}

// Roster returns a copy of the learner list.
func (s *Store) Roster() []learner.Learner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]learner.Learner{}, s.roster...)
}

// ActiveLearnerID returns the active learner's id, or "" when none.
func (s *Store) ActiveLearnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.LearnerID
}

// Generation returns the current switch generation. Async results issued
// under an older generation must be discarded by their callers.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// NextGeneration increments and returns the switch generation. Called once
// per switch request; incrementing supersedes every in-flight async result.
func (s *Store) NextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// ReplaceActive atomically swaps in a new learner block. The swap is
// applied only if gen is still the current generation; a stale swap is
// dropped and false is returned.
func (s *Store) ReplaceActive(ls *LearnerState, gen uint64) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.active = ls
	notify := s.notifyLocked(Event{LearnerID: ls.LearnerID, Switched: true})
	s.mu.Unlock()
	notify()
	return true
}

// ReplaceActiveIfPristine swaps in ls only when the active block belongs to
// the same learner, gen is current, and nothing local has been recorded
// since the switch. The check and swap run under one lock so a concurrent
// optimistic update can never be clobbered by the replacement.
func (s *Store) ReplaceActiveIfPristine(ls *LearnerState, gen uint64) bool {
	s.mu.Lock()
	if s.active == nil || gen != s.generation ||
		s.active.LearnerID != ls.LearnerID || !s.active.Pristine() {
		s.mu.Unlock()
		return false
	}
	s.active = ls
	notify := s.notifyLocked(Event{LearnerID: ls.LearnerID, Switched: true})
	s.mu.Unlock()
	notify()
	return true
}

// ClearActive drops the active learner block (logout/reset).
func (s *Store) ClearActive() {
	s.mu.Lock()
	s.active = nil
	s.generation++
	notify := s.notifyLocked(Event{Switched: true})
	s.mu.Unlock()
	notify()
}

// Active returns a deep copy of the active learner block, or nil when no
// learner is active. Copies keep readers isolated from later mutations.
func (s *Store) Active() *LearnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	return s.active.Clone()
}

// ApplyDelta folds a delta into the active learner block. A no-op when no
// learner is active or when gen is stale.
func (s *Store) ApplyDelta(d learner.Delta, gen uint64) bool {
	s.mu.Lock()
	if s.active == nil || gen != s.generation {
		s.mu.Unlock()
		return false
	}
	Apply(s.active, d)
	notify := s.notifyLocked(Event{LearnerID: s.active.LearnerID})
	s.mu.Unlock()
	notify()
	return true
}

// SetEntityStatus records an entity's lifecycle status for the active
// learner.
func (s *Store) SetEntityStatus(entityID string, status learner.Status, gen uint64) bool {
	s.mu.Lock()
	if s.active == nil || gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.active.Progress[entityID] = status
	notify := s.notifyLocked(Event{LearnerID: s.active.LearnerID})
	s.mu.Unlock()
	notify()
	return true
}

// SetSRSLevel records an entity's spaced-repetition level.
func (s *Store) SetSRSLevel(entityID string, level int, gen uint64) bool {
	s.mu.Lock()
	if s.active == nil || gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.active.SRSLevels[entityID] = level
	notify := s.notifyLocked(Event{LearnerID: s.active.LearnerID})
	s.mu.Unlock()
	notify()
	return true
}

// SetDueItems replaces the active learner's due-item list.
func (s *Store) SetDueItems(items []string, gen uint64) bool {
	s.mu.Lock()
	if s.active == nil || gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.active.DueItems = append([]string{}, items...)
	notify := s.notifyLocked(Event{LearnerID: s.active.LearnerID})
	s.mu.Unlock()
	notify()
	return true
}
