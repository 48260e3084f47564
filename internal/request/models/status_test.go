package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionTable(t *testing.T) {
	t.Run("terminal statuses allow nothing", func(t *testing.T) {
		for _, status := range []Status{
			StatusBarangayRejected, StatusCompleted, StatusPickedUp,
			StatusRejected, StatusCancelled,
		} {
			assert.True(t, status.IsTerminal(), "%s should be terminal", status)
			assert.Empty(t, status.Targets(), "%s should have no targets", status)
		}
	})

	t.Run("non-terminal statuses have targets", func(t *testing.T) {
		for _, status := range []Status{
			StatusPending, StatusBarangayProcessing, StatusBarangayApproved,
			StatusApproved, StatusProcessing, StatusReady,
		} {
			assert.False(t, status.IsTerminal(), "%s should not be terminal", status)
			assert.NotEmpty(t, status.Targets(), "%s should have targets", status)
		}
	})

	t.Run("completed request cannot reopen", func(t *testing.T) {
		assert.False(t, StatusCompleted.CanTransition(StatusProcessing))
		assert.False(t, StatusCompleted.CanTransition(StatusPending))
		assert.False(t, StatusPickedUp.CanTransition(StatusReady))
	})

	t.Run("pending fans out to both approval paths", func(t *testing.T) {
		assert.True(t, StatusPending.CanTransition(StatusApproved))
		assert.True(t, StatusPending.CanTransition(StatusBarangayProcessing))
		assert.True(t, StatusPending.CanTransition(StatusCancelled))
		assert.False(t, StatusPending.CanTransition(StatusReady))
		assert.False(t, StatusPending.CanTransition(StatusPickedUp))
	})

	t.Run("ready moves only forward or out", func(t *testing.T) {
		assert.True(t, StatusReady.CanTransition(StatusPickedUp))
		assert.True(t, StatusReady.CanTransition(StatusCompleted))
		assert.False(t, StatusReady.CanTransition(StatusProcessing))
	})

	t.Run("unknown status is invalid and immobile", func(t *testing.T) {
		bogus := Status("archived")
		assert.False(t, bogus.IsValid())
		assert.False(t, bogus.CanTransition(StatusPending))
	})
}

func TestBarangayReachable(t *testing.T) {
	assert.True(t, BarangayReachable(StatusBarangayProcessing))
	assert.True(t, BarangayReachable(StatusBarangayApproved))
	assert.True(t, BarangayReachable(StatusBarangayRejected))
	assert.True(t, BarangayReachable(StatusCancelled))

	assert.False(t, BarangayReachable(StatusApproved))
	assert.False(t, BarangayReachable(StatusProcessing))
	assert.False(t, BarangayReachable(StatusReady))
	assert.False(t, BarangayReachable(StatusPickedUp))
}

func TestRequiresCompleteEvidence(t *testing.T) {
	for _, status := range []Status{
		StatusApproved, StatusProcessing, StatusReady,
		StatusCompleted, StatusPickedUp, StatusBarangayApproved,
	} {
		assert.True(t, RequiresCompleteEvidence(status), "%s", status)
	}
	for _, status := range []Status{
		StatusPending, StatusBarangayProcessing, StatusRejected,
		StatusBarangayRejected, StatusCancelled,
	} {
		assert.False(t, RequiresCompleteEvidence(status), "%s", status)
	}
}
