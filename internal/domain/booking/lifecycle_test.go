package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleConfirmedPath(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	lc := NewLifecycle("lc-1", now)
	assert.Equal(t, StateIdle, lc.State())

	require.NoError(t, lc.BeginValidation(now))
	require.NoError(t, lc.BeginSubmission(now))
	require.NoError(t, lc.Confirm("booking-1", now.Add(time.Second)))

	snap := lc.Snapshot()
	assert.Equal(t, StateConfirmed, snap.State)
	assert.Equal(t, "booking-1", snap.BookingID)
	assert.Equal(t, []State{StateIdle, StateValidating, StateSubmitting, StateConfirmed}, snap.History)
	assert.True(t, snap.State.Terminal())
	assert.Equal(t, now.Add(time.Second), snap.UpdatedAt)
}

func TestLifecycleRejectedDuringValidation(t *testing.T) {
	now := time.Now()
	lc := NewLifecycle("lc-2", now)
	require.NoError(t, lc.BeginValidation(now))
	require.NoError(t, lc.Reject(ReasonPastDateRange, "", now))

	snap := lc.Snapshot()
	assert.Equal(t, StateRejected, snap.State)
	assert.Equal(t, ReasonPastDateRange, snap.Failure.Reason)
}

func TestLifecycleConflictAfterSubmit(t *testing.T) {
	now := time.Now()
	lc := NewLifecycle("lc-3", now)
	require.NoError(t, lc.BeginValidation(now))
	require.NoError(t, lc.BeginSubmission(now))
	require.NoError(t, lc.MarkConflictAfterSubmit("remote-7", now))

	snap := lc.Snapshot()
	assert.Equal(t, StateConflictAfterSubmit, snap.State)
	assert.Equal(t, ReasonConflictAfterSubmit, snap.Failure.Reason)
	assert.Equal(t, "remote-7", snap.BookingID)
}

func TestLifecycleRejectsSkippedAndRepeatedTransitions(t *testing.T) {
	now := time.Now()

	lc := NewLifecycle("skip", now)
	assert.ErrorIs(t, lc.BeginSubmission(now), ErrInvalidTransition, "idle cannot jump to submitting")
	assert.ErrorIs(t, lc.Confirm("x", now), ErrInvalidTransition)
	assert.ErrorIs(t, lc.Reject(ReasonRemoteError, "", now), ErrInvalidTransition)

	require.NoError(t, lc.BeginValidation(now))
	assert.ErrorIs(t, lc.Confirm("x", now), ErrInvalidTransition, "confirmation requires submitting")
	assert.ErrorIs(t, lc.MarkConflictAfterSubmit("x", now), ErrInvalidTransition)

	require.NoError(t, lc.BeginSubmission(now))
	require.NoError(t, lc.Reject(ReasonRemoteError, "boom", now))

	for _, attempt := range []func() error{
		func() error { return lc.BeginValidation(now) },
		func() error { return lc.BeginSubmission(now) },
		func() error { return lc.Confirm("x", now) },
		func() error { return lc.Reject(ReasonRemoteError, "", now) },
	} {
		assert.ErrorIs(t, attempt(), ErrInvalidTransition, "terminal lifecycles are not reused")
	}
	assert.Equal(t, StateRejected, lc.State())
	assert.Equal(t, "boom", lc.Snapshot().Failure.Detail)
}
