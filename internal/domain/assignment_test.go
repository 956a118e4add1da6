package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssignmentIsOverdue(t *testing.T) {
	estimated := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	assignment := &TaskAssignment{Status: AssignmentStatusInProgress, EstimatedCompletion: &estimated}

	require.False(t, assignment.IsOverdue(estimated.Add(-time.Hour)))
	require.True(t, assignment.IsOverdue(estimated.Add(time.Hour)))

	assignment.Status = AssignmentStatusCompleted
	require.False(t, assignment.IsOverdue(estimated.Add(time.Hour)))

	assignment.Status = AssignmentStatusInProgress
	assignment.EstimatedCompletion = nil
	require.False(t, assignment.IsOverdue(estimated.Add(time.Hour)))
}

func TestAssignmentStatusTerminal(t *testing.T) {
	require.True(t, AssignmentStatusCompleted.Terminal())
	require.True(t, AssignmentStatusCancelled.Terminal())
	require.False(t, AssignmentStatusOnHold.Terminal())
	require.False(t, AssignmentStatus("BOGUS").Valid())
}
