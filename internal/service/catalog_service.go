package service

import (
	"context"

	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/repository"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

// CatalogService exposes the service-type and service-area reference
// data backing the request form.
type CatalogService struct {
	store repository.Store
}

// NewCatalogService constructs the service.
func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

// ServiceTypes lists service types; non-staff callers only see active
// ones.
func (s *CatalogService) ServiceTypes(ctx context.Context, actor *domain.User) ([]domain.ServiceType, error) {
	activeOnly := actor == nil || !actor.IsStaff()
	types, err := s.store.ServiceTypes.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return types, nil
}

// ServiceAreas lists service areas; non-staff callers only see active
// ones.
func (s *CatalogService) ServiceAreas(ctx context.Context, actor *domain.User) ([]domain.ServiceArea, error) {
	activeOnly := actor == nil || !actor.IsStaff()
	areas, err := s.store.ServiceAreas.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return areas, nil
}
