package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/municipal-services/internal/api/dto"
	"github.com/civic-kit/municipal-services/internal/auth"
	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/service"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

// RequestsHandler manages service-request endpoints. Requests are
// addressed by ticket number, the public identifier printed on receipts.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	request, err := h.service.Create(c.Context(), actor, service.RequestCreateInput{
		ServiceTypeID: req.ServiceTypeID,
		ServiceAreaID: req.ServiceAreaID,
		RequestType:   req.RequestType,
		Title:         req.Title,
		Description:   req.Description,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Priority:      req.Priority,
		CitizenPhone:  req.CitizenPhone,
		CitizenEmail:  req.CitizenEmail,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestSummary(request, time.Now())})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	requests, err := h.service.List(c.Context(), actor, parseRequestQuery(c))
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, requestSummary(&requests[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /requests/:ticket.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	request, comments, history, err := h.service.GetForActor(c.Context(), actor, c.Params("ticket"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request, comments, history)})
}

// ChangeStatus POST /requests/:ticket/status.
func (h *RequestsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	request, err := h.service.ChangeStatus(c.Context(), actor, c.Params("ticket"), service.ChangeStatusInput{
		NewStatus:          req.Status,
		Reason:             req.Reason,
		AssignedToID:       req.AssignedToID,
		ExpectedCompletion: req.ExpectedCompletion,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request, time.Now())})
}

// Cancel POST /requests/:ticket/cancel.
func (h *RequestsHandler) Cancel(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	request, err := h.service.Cancel(c.Context(), actor, c.Params("ticket"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request, time.Now())})
}

// AddComment POST /requests/:ticket/comments.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	comment, err := h.service.AddComment(c.Context(), actor, c.Params("ticket"), req.Comment, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// History GET /requests/:ticket/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	history, err := h.service.History(c.Context(), actor, c.Params("ticket"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

func parseRequestQuery(c *fiber.Ctx) service.RequestListFilter {
	filter := service.RequestListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.RequestStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.Priority(strings.TrimSpace(part)))
		}
	}
	if serviceType := c.Query("service_type"); serviceType != "" {
		filter.ServiceTypeID = &serviceType
	}
	if serviceArea := c.Query("service_area"); serviceArea != "" {
		filter.ServiceAreaID = &serviceArea
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func requestSummary(request *domain.ServiceRequest, now time.Time) dto.RequestSummary {
	return dto.RequestSummary{
		ID:                 request.ID,
		TicketNumber:       request.TicketNumber,
		Title:              request.Title,
		RequestType:        request.RequestType,
		Status:             request.Status,
		Priority:           request.Priority,
		ServiceTypeID:      request.ServiceTypeID,
		ServiceAreaID:      request.ServiceAreaID,
		Address:            request.Address,
		CreatedAt:          request.CreatedAt,
		UpdatedAt:          request.UpdatedAt,
		ExpectedCompletion: request.ExpectedCompletion,
		CompletedAt:        request.CompletedAt,
		IsOverdue:          request.IsOverdue(now),
	}
}

func requestDetail(request *domain.ServiceRequest, comments []domain.RequestComment, history []domain.RequestStatusHistory) dto.RequestDetailResponse {
	commentItems := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		commentItems = append(commentItems, commentResponse(&comments[i]))
	}
	return dto.RequestDetailResponse{
		RequestSummary: requestSummary(request, time.Now()),
		Description:    request.Description,
		Latitude:       request.Latitude,
		Longitude:      request.Longitude,
		CitizenID:      request.CitizenID,
		CitizenPhone:   request.CitizenPhone,
		CitizenEmail:   request.CitizenEmail,
		Notes:          request.Notes,
		AssignedToID:   request.AssignedToID,
		Comments:       commentItems,
		History:        historyResponses(history),
	}
}

func commentResponse(comment *domain.RequestComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		UserID:     comment.UserID,
		Comment:    comment.Comment,
		IsInternal: comment.IsInternal,
		CreatedAt:  comment.CreatedAt,
	}
}

func historyResponses(entries []domain.RequestStatusHistory) []dto.HistoryResponse {
	resp := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.HistoryResponse{
			ID:          entry.ID,
			FromStatus:  entry.FromStatus,
			ToStatus:    entry.ToStatus,
			ChangedByID: entry.ChangedByID,
			Reason:      entry.Reason,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}
