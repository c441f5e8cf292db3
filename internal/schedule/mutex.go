package schedule

import (
	"sync"

	"github.com/google/uuid"
)

// MutationKind scopes the lock set per operation family so a status change
// and an unblock on the same id never produce cross-kind false positives.
type MutationKind string

const (
	MutationStatus  MutationKind = "status"
	MutationUnblock MutationKind = "unblock"
)

// MutationLock tracks resources with a state-changing call in flight. It
// enforces at-most-one-in-flight per resource per kind: the second of two
// rapid duplicate requests acquires nothing and is silently dropped.
type MutationLock struct {
	mu   sync.Mutex
	held map[MutationKind]map[uuid.UUID]struct{}
}

// TryAcquire inserts id into the kind set. It returns false, without side
// effects, when the id is already held for that kind.
func (l *MutationLock) TryAcquire(kind MutationKind, id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[MutationKind]map[uuid.UUID]struct{})
	}
	set, ok := l.held[kind]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		l.held[kind] = set
	}
	if _, busy := set[id]; busy {
		return false
	}
	set[id] = struct{}{}
	return true
}

// Release removes id from the kind set unconditionally. Callers must release
// in a deferred path so a failed remote call never leaves the id locked.
func (l *MutationLock) Release(kind MutationKind, id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if set, ok := l.held[kind]; ok {
		delete(set, id)
	}
}

// Held reports whether id currently has an in-flight mutation of kind.
func (l *MutationLock) Held(kind MutationKind, id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[kind][id]
	return busy
}
