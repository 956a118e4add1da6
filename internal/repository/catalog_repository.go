package repository

import (
	"context"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// ServiceTypeRepository handles the service-type reference data.
type ServiceTypeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ServiceType, error)
	List(ctx context.Context, activeOnly bool) ([]domain.ServiceType, error)
}

// ServiceAreaRepository handles the geographic service areas.
type ServiceAreaRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ServiceArea, error)
	List(ctx context.Context, activeOnly bool) ([]domain.ServiceArea, error)
}

type serviceTypeRepository struct {
	q Querier
}

// NewServiceTypeRepository instantiates the repository.
func NewServiceTypeRepository(q Querier) ServiceTypeRepository {
	return &serviceTypeRepository{q: q}
}

func (r *serviceTypeRepository) GetByID(ctx context.Context, id string) (*domain.ServiceType, error) {
	const query = `
        SELECT id, name, description, icon_class, is_active, created_at
        FROM service_types WHERE id=$1`
	var st domain.ServiceType
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&st.ID,
		&st.Name,
		&st.Description,
		&st.IconClass,
		&st.IsActive,
		&st.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *serviceTypeRepository) List(ctx context.Context, activeOnly bool) ([]domain.ServiceType, error) {
	query := `
        SELECT id, name, description, icon_class, is_active, created_at
        FROM service_types`
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY name ASC"

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceType
	for rows.Next() {
		var st domain.ServiceType
		if err := rows.Scan(
			&st.ID,
			&st.Name,
			&st.Description,
			&st.IconClass,
			&st.IsActive,
			&st.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

type serviceAreaRepository struct {
	q Querier
}

// NewServiceAreaRepository instantiates the repository.
func NewServiceAreaRepository(q Querier) ServiceAreaRepository {
	return &serviceAreaRepository{q: q}
}

func (r *serviceAreaRepository) GetByID(ctx context.Context, id string) (*domain.ServiceArea, error) {
	const query = `SELECT id, name, description, is_active FROM service_areas WHERE id=$1`
	var area domain.ServiceArea
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&area.ID,
		&area.Name,
		&area.Description,
		&area.IsActive,
	); err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *serviceAreaRepository) List(ctx context.Context, activeOnly bool) ([]domain.ServiceArea, error) {
	query := `SELECT id, name, description, is_active FROM service_areas`
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY name ASC"

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceArea
	for rows.Next() {
		var area domain.ServiceArea
		if err := rows.Scan(&area.ID, &area.Name, &area.Description, &area.IsActive); err != nil {
			return nil, err
		}
		result = append(result, area)
	}
	return result, rows.Err()
}
