package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/municipal-services/internal/api/dto"
	"github.com/civic-kit/municipal-services/internal/auth"
	"github.com/civic-kit/municipal-services/internal/service"
)

// CatalogHandler exposes service-type and service-area reference data.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: catalogService}
}

// ServiceTypes GET /catalog/service-types.
func (h *CatalogHandler) ServiceTypes(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	types, err := h.service.ServiceTypes(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.ServiceTypeResponse, 0, len(types))
	for i := range types {
		items = append(items, dto.ServiceTypeResponse{
			ID:          types[i].ID,
			Name:        types[i].Name,
			Description: types[i].Description,
			IconClass:   types[i].IconClass,
			IsActive:    types[i].IsActive,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ServiceAreas GET /catalog/service-areas.
func (h *CatalogHandler) ServiceAreas(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	areas, err := h.service.ServiceAreas(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.ServiceAreaResponse, 0, len(areas))
	for i := range areas {
		items = append(items, dto.ServiceAreaResponse{
			ID:          areas[i].ID,
			Name:        areas[i].Name,
			Description: areas[i].Description,
			IsActive:    areas[i].IsActive,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
