package schedule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMutationLockRejectsDuplicate(t *testing.T) {
	var l MutationLock
	id := uuid.New()

	assert.True(t, l.TryAcquire(MutationStatus, id))
	assert.False(t, l.TryAcquire(MutationStatus, id))

	l.Release(MutationStatus, id)
	assert.True(t, l.TryAcquire(MutationStatus, id))
}

func TestMutationLockKindsAreIndependent(t *testing.T) {
	var l MutationLock
	id := uuid.New()

	assert.True(t, l.TryAcquire(MutationStatus, id))
	assert.True(t, l.TryAcquire(MutationUnblock, id))
	assert.True(t, l.Held(MutationStatus, id))
	assert.True(t, l.Held(MutationUnblock, id))
}

func TestMutationLockReleaseIsUnconditional(t *testing.T) {
	var l MutationLock
	id := uuid.New()

	// Releasing something never acquired must not panic or lock anything.
	l.Release(MutationStatus, id)
	assert.True(t, l.TryAcquire(MutationStatus, id))
}
