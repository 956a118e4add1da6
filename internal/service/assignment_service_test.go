package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/events"
	"github.com/civic-kit/municipal-services/internal/repository"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

type engineFixture struct {
	requests    *RequestService
	assignments *AssignmentService
	db          *memDB
	dispatcher  events.Dispatcher

	citizen    *domain.User
	manager    *domain.User
	technician *domain.User
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store, db, tx := newTestStore()
	dispatcher := events.NewInMemoryDispatcher()
	return &engineFixture{
		requests:    NewRequestService(RequestDependencies{Store: store, Tx: tx, Dispatcher: dispatcher}),
		assignments: NewAssignmentService(AssignmentDependencies{Store: store, Tx: tx, Dispatcher: dispatcher}),
		db:          db,
		dispatcher:  dispatcher,
		citizen:     seedUser(db, domain.RoleCitizen),
		manager:     seedUser(db, domain.RoleManager),
		technician:  seedUser(db, domain.RoleTechnician),
	}
}

func (f *engineFixture) newRequest(t *testing.T) *domain.ServiceRequest {
	return createRequest(t, f.requests, f.db, f.citizen)
}

func (f *engineFixture) assign(t *testing.T, request *domain.ServiceRequest) *domain.TaskAssignment {
	t.Helper()
	assignment, err := f.assignments.Create(context.Background(), f.manager, request.TicketNumber, AssignmentCreateInput{
		AssignedToID: f.technician.ID,
		Instructions: "bring the lift truck",
	})
	require.NoError(t, err)
	return assignment
}

func TestCreateAssignmentCascadesAndFansOut(t *testing.T) {
	f := newEngineFixture(t)
	request := f.newRequest(t)

	assignment := f.assign(t, request)
	require.Equal(t, domain.AssignmentStatusAssigned, assignment.Status)
	require.Equal(t, request.Priority, assignment.Priority)

	stored, _, _, err := f.requests.GetForActor(context.Background(), f.manager, request.TicketNumber)
	require.NoError(t, err)
	require.Equal(t, domain.RequestStatusInProgress, stored.Status)
	require.NotNil(t, stored.AssignedToID)
	require.Equal(t, f.technician.ID, *stored.AssignedToID)

	history, err := f.requests.History(context.Background(), f.manager, request.TicketNumber)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, f.manager.ID, history[1].ChangedByID)
	require.Equal(t, domain.RequestStatusInProgress, history[1].ToStatus)

	// exactly two notifications: technician and citizen
	require.Len(t, f.db.notifications, 2)
	recipients := map[string]bool{}
	for _, n := range f.db.notifications {
		require.Equal(t, domain.NotificationTaskAssigned, n.Type)
		require.NotNil(t, n.RelatedRequestID)
		require.Equal(t, request.ID, *n.RelatedRequestID)
		recipients[n.RecipientID] = true
	}
	require.True(t, recipients[f.technician.ID])
	require.True(t, recipients[f.citizen.ID])
}

func TestCreateAssignmentIsUniquePerRequest(t *testing.T) {
	f := newEngineFixture(t)
	request := f.newRequest(t)
	f.assign(t, request)

	_, err := f.assignments.Create(context.Background(), f.manager, request.TicketNumber, AssignmentCreateInput{
		AssignedToID: f.technician.ID,
	})
	require.True(t, apperrors.IsCode(err, "CONFLICT"))

	// no extra notifications from the failed attempt
	require.Len(t, f.db.notifications, 2)
}

func TestCreateAssignmentGuards(t *testing.T) {
	f := newEngineFixture(t)
	request := f.newRequest(t)

	_, err := f.assignments.Create(context.Background(), f.technician, request.TicketNumber, AssignmentCreateInput{
		AssignedToID: f.technician.ID,
	})
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = f.assignments.Create(context.Background(), f.manager, request.TicketNumber, AssignmentCreateInput{
		AssignedToID: f.citizen.ID,
	})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	inactive := seedUser(f.db, domain.RoleTechnician)
	f.db.mu.Lock()
	stale := f.db.users[inactive.ID]
	stale.Active = false
	f.db.users[inactive.ID] = stale
	f.db.mu.Unlock()

	_, err = f.assignments.Create(context.Background(), f.manager, request.TicketNumber, AssignmentCreateInput{
		AssignedToID: inactive.ID,
	})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestAcceptOnlyAssigneeAndIdempotentByIgnoring(t *testing.T) {
	f := newEngineFixture(t)
	assignment := f.assign(t, f.newRequest(t))
	otherTech := seedUser(f.db, domain.RoleTechnician)

	_, _, err := f.assignments.Accept(context.Background(), otherTech, assignment.ID)
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	accepted, warning, err := f.assignments.Accept(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Equal(t, domain.AssignmentStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	firstAcceptedAt := *accepted.AcceptedAt

	again, warning, err := f.assignments.Accept(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, WarnCannotAccept, warning)
	require.Equal(t, domain.AssignmentStatusAccepted, again.Status)
	require.NotNil(t, again.AcceptedAt)
	require.True(t, again.AcceptedAt.Equal(firstAcceptedAt))
}

func TestStartStampsAndWarnsOutOfWindow(t *testing.T) {
	f := newEngineFixture(t)
	assignment := f.assign(t, f.newRequest(t))

	// start directly from ASSIGNED, accept is optional
	started, warning, err := f.assignments.Start(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Equal(t, domain.AssignmentStatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	_, warning, err = f.assignments.Start(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, WarnCannotStart, warning)
}

func TestRecordProgressOverwritesStatus(t *testing.T) {
	f := newEngineFixture(t)
	assignment := f.assign(t, f.newRequest(t))

	hours := decimal.NewFromFloat(1.5)
	update, err := f.assignments.RecordProgress(context.Background(), f.technician, assignment.ID, ProgressInput{
		Status:             domain.AssignmentStatusOnHold,
		ProgressPercentage: 40,
		Description:        "waiting on replacement parts",
		HoursWorked:        &hours,
	})
	require.NoError(t, err)
	require.Equal(t, 40, update.ProgressPercentage)

	stored, _, err := f.assignments.GetDetail(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AssignmentStatusOnHold, stored.Status)

	_, err = f.assignments.RecordProgress(context.Background(), f.technician, assignment.ID, ProgressInput{
		Status:             domain.AssignmentStatusInProgress,
		ProgressPercentage: 140,
		Description:        "typo",
	})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.assignments.RecordProgress(context.Background(), f.technician, assignment.ID, ProgressInput{
		Status:             domain.AssignmentStatusInProgress,
		ProgressPercentage: 50,
	})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.assignments.RecordProgress(context.Background(), f.manager, assignment.ID, ProgressInput{
		Status:             domain.AssignmentStatusInProgress,
		ProgressPercentage: 50,
		Description:        "not my task",
	})
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestCompleteRequiresHoursAndNotesAndCascades(t *testing.T) {
	f := newEngineFixture(t)
	request := f.newRequest(t)
	assignment := f.assign(t, request)

	_, _, err := f.assignments.Start(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)

	_, _, err = f.assignments.Complete(context.Background(), f.technician, assignment.ID, CompleteInput{
		Notes: "done",
	})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	negative := decimal.NewFromInt(-1)
	_, _, err = f.assignments.Complete(context.Background(), f.technician, assignment.ID, CompleteInput{
		ActualHours: &negative,
		Notes:       "done",
	})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	hours := decimal.NewFromFloat(3.25)
	completed, warning, err := f.assignments.Complete(context.Background(), f.technician, assignment.ID, CompleteInput{
		ActualHours: &hours,
		Notes:       "replaced the ballast",
	})
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Equal(t, domain.AssignmentStatusCompleted, completed.Status)
	require.NotNil(t, completed.ActualCompletion)
	require.True(t, hours.Equal(*completed.ActualHours))

	stored, _, _, err := f.requests.GetForActor(context.Background(), f.manager, request.TicketNumber)
	require.NoError(t, err)
	require.Equal(t, domain.RequestStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	history, err := f.requests.History(context.Background(), f.manager, request.TicketNumber)
	require.NoError(t, err)
	last := history[len(history)-1]
	require.Equal(t, f.technician.ID, last.ChangedByID)
	require.Equal(t, domain.RequestStatusCompleted, last.ToStatus)

	// completing again is ignored with a warning
	_, warning, err = f.assignments.Complete(context.Background(), f.technician, assignment.ID, CompleteInput{
		ActualHours: &hours,
		Notes:       "again",
	})
	require.NoError(t, err)
	require.Equal(t, WarnAlreadyDone, warning)
}

func TestLifecycleTimestampsAreMonotonic(t *testing.T) {
	f := newEngineFixture(t)
	assignment := f.assign(t, f.newRequest(t))

	accepted, _, err := f.assignments.Accept(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)
	started, _, err := f.assignments.Start(context.Background(), f.technician, assignment.ID)
	require.NoError(t, err)
	hours := decimal.NewFromInt(2)
	completed, _, err := f.assignments.Complete(context.Background(), f.technician, assignment.ID, CompleteInput{
		ActualHours: &hours,
		Notes:       "all good",
	})
	require.NoError(t, err)

	require.False(t, accepted.AcceptedAt.After(*started.StartedAt))
	require.False(t, started.StartedAt.After(*completed.ActualCompletion))
}

func TestTechnicianListIsScopedToOwnAssignments(t *testing.T) {
	f := newEngineFixture(t)
	f.assign(t, f.newRequest(t))

	otherTech := seedUser(f.db, domain.RoleTechnician)
	otherRequest := f.newRequest(t)
	_, err := f.assignments.Create(context.Background(), f.manager, otherRequest.TicketNumber, AssignmentCreateInput{
		AssignedToID: otherTech.ID,
	})
	require.NoError(t, err)

	mine, err := f.assignments.List(context.Background(), f.technician, repository.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, f.technician.ID, mine[0].AssignedToID)

	all, err := f.assignments.List(context.Background(), f.manager, repository.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = f.assignments.List(context.Background(), f.citizen, repository.AssignmentFilter{})
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestCancelAssignmentManagerOnly(t *testing.T) {
	f := newEngineFixture(t)
	assignment := f.assign(t, f.newRequest(t))

	_, _, err := f.assignments.Cancel(context.Background(), f.technician, assignment.ID)
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	cancelled, warning, err := f.assignments.Cancel(context.Background(), f.manager, assignment.ID)
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Equal(t, domain.AssignmentStatusCancelled, cancelled.Status)

	_, warning, err = f.assignments.Cancel(context.Background(), f.manager, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, WarnAlreadyDone, warning)
}
