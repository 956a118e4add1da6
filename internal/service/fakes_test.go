package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/repository"
)

// memDB is the in-memory backing store shared by the fake repositories.
// Rows are copied on the way in and out so services mutate their own
// instances, like they would with a real database.
type memDB struct {
	mu            sync.Mutex
	seq           int
	users         map[string]domain.User
	serviceTypes  map[string]domain.ServiceType
	serviceAreas  map[string]domain.ServiceArea
	requests      map[string]domain.ServiceRequest
	history       []domain.RequestStatusHistory
	comments      []domain.RequestComment
	assignments   map[string]domain.TaskAssignment
	taskUpdates   []domain.TaskUpdate
	notifications []domain.Notification
}

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newMemDB() *memDB {
	return &memDB{
		users:        make(map[string]domain.User),
		serviceTypes: make(map[string]domain.ServiceType),
		serviceAreas: make(map[string]domain.ServiceArea),
		requests:     make(map[string]domain.ServiceRequest),
		assignments:  make(map[string]domain.TaskAssignment),
	}
}

// nextID also provides a strictly increasing clock so ordering
// assertions are deterministic.
func (db *memDB) nextID(prefix string) (string, time.Time) {
	db.seq++
	return prefix + "-" + strconv.Itoa(db.seq), testEpoch.Add(time.Duration(db.seq) * time.Second)
}

func newTestStore() (repository.Store, *memDB, repository.TxManager) {
	db := newMemDB()
	store := repository.Store{
		Users:         &memUserRepo{db},
		ServiceTypes:  &memServiceTypeRepo{db},
		ServiceAreas:  &memServiceAreaRepo{db},
		Requests:      &memRequestRepo{db},
		History:       &memHistoryRepo{db},
		Comments:      &memCommentRepo{db},
		Assignments:   &memAssignmentRepo{db},
		TaskUpdates:   &memTaskUpdateRepo{db},
		Notifications: &memNotificationRepo{db},
	}
	return store, db, &passthroughTx{store: store}
}

// passthroughTx satisfies TxManager without transactional semantics;
// the engine tests assert on effects, not isolation.
type passthroughTx struct {
	store repository.Store
}

func (t *passthroughTx) WithinTx(_ context.Context, fn func(s repository.Store) error) error {
	return fn(t.store)
}

type memUserRepo struct{ db *memDB }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	id, now := r.db.nextID("user")
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	r.db.users[id] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	user, ok := r.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, user := range r.db.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.User
	for _, user := range r.db.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type memServiceTypeRepo struct{ db *memDB }

func (r *memServiceTypeRepo) GetByID(_ context.Context, id string) (*domain.ServiceType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	st, ok := r.db.serviceTypes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &st, nil
}

func (r *memServiceTypeRepo) List(_ context.Context, activeOnly bool) ([]domain.ServiceType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.ServiceType
	for _, st := range r.db.serviceTypes {
		if activeOnly && !st.IsActive {
			continue
		}
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type memServiceAreaRepo struct{ db *memDB }

func (r *memServiceAreaRepo) GetByID(_ context.Context, id string) (*domain.ServiceArea, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	area, ok := r.db.serviceAreas[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &area, nil
}

func (r *memServiceAreaRepo) List(_ context.Context, activeOnly bool) ([]domain.ServiceArea, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.ServiceArea
	for _, area := range r.db.serviceAreas {
		if activeOnly && !area.IsActive {
			continue
		}
		result = append(result, area)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type memRequestRepo struct{ db *memDB }

func (r *memRequestRepo) Create(_ context.Context, request *domain.ServiceRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.nextID("req")
	request.ID = id
	request.CreatedAt = now
	request.UpdatedAt = now
	r.db.requests[id] = *request
	return nil
}

func (r *memRequestRepo) Update(_ context.Context, request *domain.ServiceRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.requests[request.ID]; !ok {
		return pgx.ErrNoRows
	}
	_, now := r.db.nextID("upd")
	request.UpdatedAt = now
	r.db.requests[request.ID] = *request
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	request, ok := r.db.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &request, nil
}

func (r *memRequestRepo) GetByTicketNumber(_ context.Context, ticketNumber string) (*domain.ServiceRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, request := range r.db.requests {
		if request.TicketNumber == ticketNumber {
			found := request
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memRequestRepo) ListWithFilter(_ context.Context, filter repository.RequestFilter) ([]domain.ServiceRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.ServiceRequest
	for _, request := range r.db.requests {
		if filter.CitizenID != nil && request.CitizenID != *filter.CitizenID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, request.Status) {
			continue
		}
		result = append(result, request)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *memRequestRepo) Stats(_ context.Context, citizenID *string) (*domain.RequestStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stats := &domain.RequestStats{}
	for _, request := range r.db.requests {
		if citizenID != nil && request.CitizenID != *citizenID {
			continue
		}
		stats.Total++
		switch request.Status {
		case domain.RequestStatusPending:
			stats.Pending++
		case domain.RequestStatusInProgress:
			stats.InProgress++
		case domain.RequestStatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

func containsStatus(statuses []domain.RequestStatus, status domain.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memHistoryRepo struct{ db *memDB }

func (r *memHistoryRepo) Create(_ context.Context, entry *domain.RequestStatusHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.nextID("hist")
	entry.ID = id
	entry.CreatedAt = now
	r.db.history = append(r.db.history, *entry)
	return nil
}

func (r *memHistoryRepo) ListByRequest(_ context.Context, requestID string) ([]domain.RequestStatusHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.RequestStatusHistory
	for _, entry := range r.db.history {
		if entry.RequestID == requestID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *memHistoryRepo) CountByRequest(_ context.Context, requestID string) (int64, error) {
	entries, _ := r.ListByRequest(context.Background(), requestID)
	return int64(len(entries)), nil
}

type memCommentRepo struct{ db *memDB }

func (r *memCommentRepo) Create(_ context.Context, comment *domain.RequestComment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.nextID("comment")
	comment.ID = id
	comment.CreatedAt = now
	r.db.comments = append(r.db.comments, *comment)
	return nil
}

func (r *memCommentRepo) ListByRequest(_ context.Context, requestID string, includeInternal bool) ([]domain.RequestComment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.RequestComment
	for _, comment := range r.db.comments {
		if comment.RequestID != requestID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

type memAssignmentRepo struct{ db *memDB }

func (r *memAssignmentRepo) Create(_ context.Context, assignment *domain.TaskAssignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.assignments {
		if existing.RequestID == assignment.RequestID {
			return repository.ErrDuplicateAssignment
		}
	}
	id, now := r.db.nextID("assign")
	assignment.ID = id
	assignment.AssignedAt = now
	r.db.assignments[id] = *assignment
	return nil
}

func (r *memAssignmentRepo) Update(_ context.Context, assignment *domain.TaskAssignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.assignments[assignment.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.db.assignments[assignment.ID] = *assignment
	return nil
}

func (r *memAssignmentRepo) GetByID(_ context.Context, id string) (*domain.TaskAssignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	assignment, ok := r.db.assignments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &assignment, nil
}

func (r *memAssignmentRepo) GetByRequestID(_ context.Context, requestID string) (*domain.TaskAssignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, assignment := range r.db.assignments {
		if assignment.RequestID == requestID {
			found := assignment
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAssignmentRepo) ListWithFilter(_ context.Context, filter repository.AssignmentFilter) ([]domain.TaskAssignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.TaskAssignment
	for _, assignment := range r.db.assignments {
		if filter.AssignedToID != nil && assignment.AssignedToID != *filter.AssignedToID {
			continue
		}
		result = append(result, assignment)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssignedAt.After(result[j].AssignedAt) })
	return result, nil
}

type memTaskUpdateRepo struct{ db *memDB }

func (r *memTaskUpdateRepo) Create(_ context.Context, update *domain.TaskUpdate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.nextID("taskupd")
	update.ID = id
	update.CreatedAt = now
	r.db.taskUpdates = append(r.db.taskUpdates, *update)
	return nil
}

func (r *memTaskUpdateRepo) ListByAssignment(_ context.Context, assignmentID string) ([]domain.TaskUpdate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.TaskUpdate
	for _, update := range r.db.taskUpdates {
		if update.AssignmentID == assignmentID {
			result = append(result, update)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

type memNotificationRepo struct{ db *memDB }

func (r *memNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.nextID("notif")
	notification.ID = id
	notification.CreatedAt = now
	notification.IsRead = false
	r.db.notifications = append(r.db.notifications, *notification)
	return nil
}

func (r *memNotificationRepo) ListByRecipient(_ context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	var result []domain.Notification
	for _, notification := range r.db.notifications {
		if notification.RecipientID == recipientID {
			result = append(result, notification)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, ids []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	for i := range r.db.notifications {
		if _, ok := idSet[r.db.notifications[i].ID]; ok {
			r.db.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, recipientID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for _, notification := range r.db.notifications {
		if notification.RecipientID == recipientID && !notification.IsRead {
			count++
		}
	}
	return count, nil
}

// seed helpers

func seedUser(db *memDB, role domain.Role) *domain.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, now := db.nextID("user")
	user := domain.User{
		ID:        id,
		Name:      string(role) + " " + id,
		Email:     id + "@example.test",
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.users[id] = user
	return &user
}

func seedServiceType(db *memDB, active bool) *domain.ServiceType {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, now := db.nextID("stype")
	st := domain.ServiceType{ID: id, Name: "Type " + id, IsActive: active, CreatedAt: now}
	db.serviceTypes[id] = st
	return &st
}

func seedServiceArea(db *memDB, active bool) *domain.ServiceArea {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, _ := db.nextID("area")
	area := domain.ServiceArea{ID: id, Name: "Area " + id, IsActive: active}
	db.serviceAreas[id] = area
	return &area
}
