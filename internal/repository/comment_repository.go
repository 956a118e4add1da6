package repository

import (
	"context"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// CommentRepository stores remarks on service requests.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.RequestComment) error
	ListByRequest(ctx context.Context, requestID string, includeInternal bool) ([]domain.RequestComment, error)
}

type commentRepository struct {
	q Querier
}

// NewCommentRepository builds the repository.
func NewCommentRepository(q Querier) CommentRepository {
	return &commentRepository{q: q}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.RequestComment) error {
	const query = `
        INSERT INTO request_comments (request_id, user_id, comment, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		comment.RequestID,
		comment.UserID,
		comment.Comment,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByRequest(ctx context.Context, requestID string, includeInternal bool) ([]domain.RequestComment, error) {
	query := `
        SELECT id, request_id, user_id, comment, is_internal, created_at
        FROM request_comments WHERE request_id=$1`
	if !includeInternal {
		query += " AND NOT is_internal"
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestComment
	for rows.Next() {
		var comment domain.RequestComment
		if err := rows.Scan(
			&comment.ID,
			&comment.RequestID,
			&comment.UserID,
			&comment.Comment,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
