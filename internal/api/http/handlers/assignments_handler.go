package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/municipal-services/internal/api/dto"
	"github.com/civic-kit/municipal-services/internal/auth"
	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/repository"
	"github.com/civic-kit/municipal-services/internal/service"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

// AssignmentsHandler manages work-order endpoints for managers and
// technicians.
type AssignmentsHandler struct {
	service *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignmentService *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{service: assignmentService}
}

// Create POST /requests/:ticket/assignments.
func (h *AssignmentsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	assignment, err := h.service.Create(c.Context(), actor, c.Params("ticket"), service.AssignmentCreateInput{
		AssignedToID:        req.AssignedToID,
		Priority:            req.Priority,
		EstimatedCompletion: req.EstimatedCompletion,
		EstimatedHours:      req.EstimatedHours,
		Instructions:        req.Instructions,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(assignment, time.Now())})
}

// List GET /assignments.
func (h *AssignmentsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	assignments, err := h.service.List(c.Context(), actor, parseAssignmentQuery(c))
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		items = append(items, assignmentResponse(&assignments[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /assignments/:id.
func (h *AssignmentsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	assignment, updates, err := h.service.GetDetail(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	updateItems := make([]dto.TaskUpdateResponse, 0, len(updates))
	for i := range updates {
		updateItems = append(updateItems, taskUpdateResponse(&updates[i]))
	}
	return c.JSON(fiber.Map{
		"data":    assignmentResponse(assignment, time.Now()),
		"updates": updateItems,
	})
}

// Accept POST /assignments/:id/accept.
func (h *AssignmentsHandler) Accept(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	assignment, warning, err := h.service.Accept(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(lifecycleResponse(assignment, warning))
}

// Start POST /assignments/:id/start.
func (h *AssignmentsHandler) Start(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	assignment, warning, err := h.service.Start(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(lifecycleResponse(assignment, warning))
}

// RecordProgress POST /assignments/:id/progress.
func (h *AssignmentsHandler) RecordProgress(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	update, err := h.service.RecordProgress(c.Context(), actor, c.Params("id"), service.ProgressInput{
		Status:             req.Status,
		ProgressPercentage: req.ProgressPercentage,
		Description:        req.Description,
		HoursWorked:        req.HoursWorked,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": taskUpdateResponse(update)})
}

// Complete POST /assignments/:id/complete.
func (h *AssignmentsHandler) Complete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	assignment, warning, err := h.service.Complete(c.Context(), actor, c.Params("id"), service.CompleteInput{
		ActualHours:   req.ActualHours,
		Notes:         req.Notes,
		MaterialsUsed: req.MaterialsUsed,
		MaterialsCost: req.MaterialsCost,
	})
	if err != nil {
		return err
	}
	return c.JSON(lifecycleResponse(assignment, warning))
}

// Cancel POST /assignments/:id/cancel.
func (h *AssignmentsHandler) Cancel(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	assignment, warning, err := h.service.Cancel(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(lifecycleResponse(assignment, warning))
}

func lifecycleResponse(assignment *domain.TaskAssignment, warning string) fiber.Map {
	resp := fiber.Map{"data": assignmentResponse(assignment, time.Now())}
	if warning != "" {
		resp["warning"] = warning
	}
	return resp
}

func parseAssignmentQuery(c *fiber.Ctx) repository.AssignmentFilter {
	filter := repository.AssignmentFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.AssignmentStatus(strings.TrimSpace(part)))
		}
	}
	if assignedTo := c.Query("assigned_to"); assignedTo != "" {
		filter.AssignedToID = &assignedTo
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func assignmentResponse(assignment *domain.TaskAssignment, now time.Time) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:                  assignment.ID,
		RequestID:           assignment.RequestID,
		AssignedByID:        assignment.AssignedByID,
		AssignedToID:        assignment.AssignedToID,
		Status:              assignment.Status,
		Priority:            assignment.Priority,
		AssignedAt:          assignment.AssignedAt,
		AcceptedAt:          assignment.AcceptedAt,
		StartedAt:           assignment.StartedAt,
		EstimatedCompletion: assignment.EstimatedCompletion,
		ActualCompletion:    assignment.ActualCompletion,
		Instructions:        assignment.Instructions,
		Notes:               assignment.Notes,
		EstimatedHours:      assignment.EstimatedHours,
		ActualHours:         assignment.ActualHours,
		MaterialsNeeded:     assignment.MaterialsNeeded,
		MaterialsCost:       assignment.MaterialsCost,
		IsOverdue:           assignment.IsOverdue(now),
	}
}

func taskUpdateResponse(update *domain.TaskUpdate) dto.TaskUpdateResponse {
	return dto.TaskUpdateResponse{
		ID:                 update.ID,
		AssignmentID:       update.AssignmentID,
		UpdatedByID:        update.UpdatedByID,
		Status:             update.Status,
		ProgressPercentage: update.ProgressPercentage,
		Description:        update.Description,
		HoursWorked:        update.HoursWorked,
		CreatedAt:          update.CreatedAt,
	}
}
