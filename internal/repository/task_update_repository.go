package repository

import (
	"context"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// TaskUpdateRepository stores technician progress notes.
type TaskUpdateRepository interface {
	Create(ctx context.Context, update *domain.TaskUpdate) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]domain.TaskUpdate, error)
}

type taskUpdateRepository struct {
	q Querier
}

// NewTaskUpdateRepository builds the repository.
func NewTaskUpdateRepository(q Querier) TaskUpdateRepository {
	return &taskUpdateRepository{q: q}
}

func (r *taskUpdateRepository) Create(ctx context.Context, update *domain.TaskUpdate) error {
	const query = `
        INSERT INTO task_updates (assignment_id, updated_by_id, status, progress_percentage, description, hours_worked)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		update.AssignmentID,
		update.UpdatedByID,
		update.Status,
		update.ProgressPercentage,
		update.Description,
		update.HoursWorked,
	).Scan(&update.ID, &update.CreatedAt)
}

func (r *taskUpdateRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]domain.TaskUpdate, error) {
	const query = `
        SELECT id, assignment_id, updated_by_id, status, progress_percentage, description, hours_worked, created_at
        FROM task_updates WHERE assignment_id=$1 ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TaskUpdate
	for rows.Next() {
		var update domain.TaskUpdate
		if err := rows.Scan(
			&update.ID,
			&update.AssignmentID,
			&update.UpdatedByID,
			&update.Status,
			&update.ProgressPercentage,
			&update.Description,
			&update.HoursWorked,
			&update.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}
