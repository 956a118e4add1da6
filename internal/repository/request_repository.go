package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// RequestFilter captures search parameters for request listing.
type RequestFilter struct {
	CitizenID     *string
	AssignedToID  *string
	ServiceTypeID *string
	ServiceAreaID *string
	Statuses      []domain.RequestStatus
	Priorities    []domain.Priority
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// RequestRepository encapsulates service-request persistence.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.ServiceRequest) error
	Update(ctx context.Context, request *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.ServiceRequest, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error)
	Stats(ctx context.Context, citizenID *string) (*domain.RequestStats, error)
}

type requestRepository struct {
	q Querier
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(q Querier) RequestRepository {
	return &requestRepository{q: q}
}

const requestColumns = `id, ticket_number, citizen_id, service_type_id, service_area_id, request_type,
               title, description, address, latitude, longitude, status, priority,
               created_at, updated_at, expected_completion, completed_at,
               citizen_phone, citizen_email, notes, assigned_to_id, reviewed_by_id,
               estimated_cost, actual_cost`

func (r *requestRepository) Create(ctx context.Context, request *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (ticket_number, citizen_id, service_type_id, service_area_id,
            request_type, title, description, address, latitude, longitude, status, priority,
            expected_completion, citizen_phone, citizen_email, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		request.TicketNumber,
		request.CitizenID,
		request.ServiceTypeID,
		request.ServiceAreaID,
		request.RequestType,
		request.Title,
		request.Description,
		request.Address,
		request.Latitude,
		request.Longitude,
		request.Status,
		request.Priority,
		request.ExpectedCompletion,
		request.CitizenPhone,
		request.CitizenEmail,
		request.Notes,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.ServiceRequest) error {
	const query = `
        UPDATE service_requests SET status=$1, priority=$2, expected_completion=$3, completed_at=$4,
            assigned_to_id=$5, reviewed_by_id=$6, estimated_cost=$7, actual_cost=$8,
            title=$9, description=$10, address=$11, notes=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.q.Exec(ctx, query,
		request.Status,
		request.Priority,
		request.ExpectedCompletion,
		request.CompletedAt,
		request.AssignedToID,
		request.ReviewedByID,
		request.EstimatedCost,
		request.ActualCost,
		request.Title,
		request.Description,
		request.Address,
		request.Notes,
		request.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM service_requests WHERE id=$1", requestColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM service_requests WHERE ticket_number=$1", requestColumns)
	return r.fetchSingle(ctx, query, ticketNumber)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceRequest, error) {
	var request domain.ServiceRequest
	if err := scanRequest(r.q.QueryRow(ctx, query, arg), &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error) {
	base := fmt.Sprintf("SELECT %s FROM service_requests", requestColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CitizenID != nil {
		args = append(args, *filter.CitizenID)
		clauses = append(clauses, fmt.Sprintf("citizen_id=$%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if filter.ServiceTypeID != nil {
		args = append(args, *filter.ServiceTypeID)
		clauses = append(clauses, fmt.Sprintf("service_type_id=$%d", len(args)))
	}
	if filter.ServiceAreaID != nil {
		args = append(args, *filter.ServiceAreaID)
		clauses = append(clauses, fmt.Sprintf("service_area_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(ticket_number) LIKE %s OR LOWER(title) LIKE %s OR LOWER(description) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceRequest
	for rows.Next() {
		var request domain.ServiceRequest
		if err := scanRequest(rows, &request); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}

func (r *requestRepository) Stats(ctx context.Context, citizenID *string) (*domain.RequestStats, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='PENDING'),
               COUNT(*) FILTER (WHERE status='IN_PROGRESS'),
               COUNT(*) FILTER (WHERE status='COMPLETED'),
               COUNT(*) FILTER (WHERE expected_completion < NOW()
                                AND status NOT IN ('COMPLETED','REJECTED','CANCELLED'))
        FROM service_requests`
	args := []any{}
	if citizenID != nil {
		args = append(args, *citizenID)
		query += " WHERE citizen_id=$1"
	}

	var stats domain.RequestStats
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.InProgress,
		&stats.Completed,
		&stats.Overdue,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanRequest(row pgx.Row, request *domain.ServiceRequest) error {
	return row.Scan(
		&request.ID,
		&request.TicketNumber,
		&request.CitizenID,
		&request.ServiceTypeID,
		&request.ServiceAreaID,
		&request.RequestType,
		&request.Title,
		&request.Description,
		&request.Address,
		&request.Latitude,
		&request.Longitude,
		&request.Status,
		&request.Priority,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.ExpectedCompletion,
		&request.CompletedAt,
		&request.CitizenPhone,
		&request.CitizenEmail,
		&request.Notes,
		&request.AssignedToID,
		&request.ReviewedByID,
		&request.EstimatedCost,
		&request.ActualCost,
	)
}
