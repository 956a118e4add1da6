package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// ErrDuplicateAssignment signals that the request already has an
// assignment; the unique index on request_id enforces the 1:1 invariant.
var ErrDuplicateAssignment = errors.New("assignment already exists for request")

// AssignmentFilter captures search parameters for assignment listing.
type AssignmentFilter struct {
	AssignedToID *string
	Statuses     []domain.AssignmentStatus
	Limit        int
	Offset       int
}

// AssignmentRepository encapsulates task-assignment persistence.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.TaskAssignment) error
	Update(ctx context.Context, assignment *domain.TaskAssignment) error
	GetByID(ctx context.Context, id string) (*domain.TaskAssignment, error)
	GetByRequestID(ctx context.Context, requestID string) (*domain.TaskAssignment, error)
	ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]domain.TaskAssignment, error)
}

type assignmentRepository struct {
	q Querier
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(q Querier) AssignmentRepository {
	return &assignmentRepository{q: q}
}

const assignmentColumns = `id, request_id, assigned_by_id, assigned_to_id, status, priority,
               assigned_at, accepted_at, started_at, estimated_completion, actual_completion,
               instructions, notes, estimated_hours, actual_hours, materials_needed, materials_cost`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.TaskAssignment) error {
	const query = `
        INSERT INTO task_assignments (request_id, assigned_by_id, assigned_to_id, status, priority,
            estimated_completion, instructions, estimated_hours)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, assigned_at`
	err := r.q.QueryRow(ctx, query,
		assignment.RequestID,
		assignment.AssignedByID,
		assignment.AssignedToID,
		assignment.Status,
		assignment.Priority,
		assignment.EstimatedCompletion,
		assignment.Instructions,
		assignment.EstimatedHours,
	).Scan(&assignment.ID, &assignment.AssignedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAssignment
		}
		return err
	}
	return nil
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *domain.TaskAssignment) error {
	const query = `
        UPDATE task_assignments SET status=$1, priority=$2, accepted_at=$3, started_at=$4,
            estimated_completion=$5, actual_completion=$6, instructions=$7, notes=$8,
            estimated_hours=$9, actual_hours=$10, materials_needed=$11, materials_cost=$12
        WHERE id=$13`
	cmd, err := r.q.Exec(ctx, query,
		assignment.Status,
		assignment.Priority,
		assignment.AcceptedAt,
		assignment.StartedAt,
		assignment.EstimatedCompletion,
		assignment.ActualCompletion,
		assignment.Instructions,
		assignment.Notes,
		assignment.EstimatedHours,
		assignment.ActualHours,
		assignment.MaterialsNeeded,
		assignment.MaterialsCost,
		assignment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*domain.TaskAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM task_assignments WHERE id=$1", assignmentColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *assignmentRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.TaskAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM task_assignments WHERE request_id=$1", assignmentColumns)
	return r.fetchSingle(ctx, query, requestID)
}

func (r *assignmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.TaskAssignment, error) {
	var assignment domain.TaskAssignment
	if err := scanAssignment(r.q.QueryRow(ctx, query, arg), &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepository) ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]domain.TaskAssignment, error) {
	base := fmt.Sprintf("SELECT %s FROM task_assignments", assignmentColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY assigned_at DESC LIMIT %d OFFSET %d",
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TaskAssignment
	for rows.Next() {
		var assignment domain.TaskAssignment
		if err := scanAssignment(rows, &assignment); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row, assignment *domain.TaskAssignment) error {
	return row.Scan(
		&assignment.ID,
		&assignment.RequestID,
		&assignment.AssignedByID,
		&assignment.AssignedToID,
		&assignment.Status,
		&assignment.Priority,
		&assignment.AssignedAt,
		&assignment.AcceptedAt,
		&assignment.StartedAt,
		&assignment.EstimatedCompletion,
		&assignment.ActualCompletion,
		&assignment.Instructions,
		&assignment.Notes,
		&assignment.EstimatedHours,
		&assignment.ActualHours,
		&assignment.MaterialsNeeded,
		&assignment.MaterialsCost,
	)
}
