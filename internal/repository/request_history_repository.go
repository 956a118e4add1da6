package repository

import (
	"context"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// RequestHistoryRepository stores the append-only status audit trail.
// Rows are never updated or deleted.
type RequestHistoryRepository interface {
	Create(ctx context.Context, entry *domain.RequestStatusHistory) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestStatusHistory, error)
	CountByRequest(ctx context.Context, requestID string) (int64, error)
}

type requestHistoryRepository struct {
	q Querier
}

// NewRequestHistoryRepository builds the repository.
func NewRequestHistoryRepository(q Querier) RequestHistoryRepository {
	return &requestHistoryRepository{q: q}
}

func (r *requestHistoryRepository) Create(ctx context.Context, entry *domain.RequestStatusHistory) error {
	const query = `
        INSERT INTO request_status_history (request_id, from_status, to_status, changed_by_id, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		entry.RequestID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ChangedByID,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *requestHistoryRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestStatusHistory, error) {
	const query = `
        SELECT id, request_id, from_status, to_status, changed_by_id, reason, created_at
        FROM request_status_history WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestStatusHistory
	for rows.Next() {
		var entry domain.RequestStatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ChangedByID,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *requestHistoryRepository) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM request_status_history WHERE request_id=$1`
	var count int64
	if err := r.q.QueryRow(ctx, query, requestID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
