package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestIsOverdueComparesByDate(t *testing.T) {
	expected := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	request := &ServiceRequest{Status: RequestStatusPending, ExpectedCompletion: &expected}

	// later the same day is not overdue yet
	require.False(t, request.IsOverdue(time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)))
	require.True(t, request.IsOverdue(time.Date(2025, 6, 11, 0, 30, 0, 0, time.UTC)))

	request.Status = RequestStatusCompleted
	require.False(t, request.IsOverdue(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)))

	request.Status = RequestStatusPending
	request.ExpectedCompletion = nil
	require.False(t, request.IsOverdue(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)))
}

func TestCanBeCancelledByCitizen(t *testing.T) {
	cancellable := []RequestStatus{RequestStatusPending, RequestStatusInReview, RequestStatusApproved}
	for _, status := range cancellable {
		request := &ServiceRequest{Status: status}
		require.True(t, request.CanBeCancelledByCitizen(), string(status))
	}
	locked := []RequestStatus{RequestStatusInProgress, RequestStatusCompleted, RequestStatusRejected, RequestStatusCancelled}
	for _, status := range locked {
		request := &ServiceRequest{Status: status}
		require.False(t, request.CanBeCancelledByCitizen(), string(status))
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	require.True(t, RequestStatusCompleted.Terminal())
	require.True(t, RequestStatusRejected.Terminal())
	require.True(t, RequestStatusCancelled.Terminal())
	require.False(t, RequestStatusInProgress.Terminal())
	require.False(t, RequestStatus("BOGUS").Valid())
}
