package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so a
// repository can run either standalone or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles every repository bound to one Querier.
type Store struct {
	Users         UserRepository
	ServiceTypes  ServiceTypeRepository
	ServiceAreas  ServiceAreaRepository
	Requests      RequestRepository
	History       RequestHistoryRepository
	Comments      CommentRepository
	Assignments   AssignmentRepository
	TaskUpdates   TaskUpdateRepository
	Notifications NotificationRepository
}

// NewStore builds a Store over the given Querier.
func NewStore(q Querier) Store {
	return Store{
		Users:         NewUserRepository(q),
		ServiceTypes:  NewServiceTypeRepository(q),
		ServiceAreas:  NewServiceAreaRepository(q),
		Requests:      NewRequestRepository(q),
		History:       NewRequestHistoryRepository(q),
		Comments:      NewCommentRepository(q),
		Assignments:   NewAssignmentRepository(q),
		TaskUpdates:   NewTaskUpdateRepository(q),
		Notifications: NewNotificationRepository(q),
	}
}

// TxManager runs a function within a single database transaction. The
// entity mutation, its audit append, cascading updates and notification
// rows commit or roll back together.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(s Store) error) error
}

type pgxTxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds a TxManager over a pgx pool.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgxTxManager{pool: pool}
}

func (m *pgxTxManager) WithinTx(ctx context.Context, fn func(s Store) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(NewStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
