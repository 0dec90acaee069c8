package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/supportpilot/internal/ai"
	"github.com/spec-kit/supportpilot/internal/api/dto"
	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/environment"
	"github.com/spec-kit/supportpilot/internal/query"
	"github.com/spec-kit/supportpilot/internal/service"
	apperrors "github.com/spec-kit/supportpilot/pkg/util/errorutil"
)

// TicketsHandler serves the ticket workspace endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	analysis  *service.AnalysisService
	validator *dto.Validator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, analysis *service.AnalysisService, validator *dto.Validator) *TicketsHandler {
	if validator == nil {
		validator = dto.NewValidator()
	}
	return &TicketsHandler{tickets: tickets, analysis: analysis, validator: validator}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	state := query.DecodeString(string(c.Request().URI().QueryString()))
	res := h.tickets.List(c.UserContext(), state)
	return c.JSON(fiber.Map{"data": res.Items, "meta": dto.NewListMeta(res)})
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	detected := environment.Detect(c.Get(fiber.HeaderUserAgent))
	ticket := h.tickets.Create(c.UserContext(), req.ToInput(), detected)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticket})
}

// ClearTickets DELETE /api/tickets.
func (h *TicketsHandler) ClearTickets(c *fiber.Ctx) error {
	removed := h.tickets.Clear(c.UserContext())
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": removed}})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Status = strings.TrimSpace(req.Status)
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	ticket, err := h.tickets.UpdateStatus(c.UserContext(), c.Params("id"), domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.tickets.Delete(c.UserContext(), id) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	h.analysis.Forget(id)
	return c.SendStatus(fiber.StatusNoContent)
}

// GenerateAnalysis POST /api/tickets/:id/ai.
func (h *TicketsHandler) GenerateAnalysis(c *fiber.Ctx) error {
	ticket, err := h.analysis.Generate(c.UserContext(), c.Params("id"))
	if err != nil {
		var aiErr *ai.Error
		if errors.As(err, &aiErr) {
			return analysisError(aiErr)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// GenerationState GET /api/tickets/:id/ai.
func (h *TicketsHandler) GenerationState(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.tickets.Get(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.analysis.State(id)})
}

// RestoreVersion POST /api/tickets/:id/ai/restore.
func (h *TicketsHandler) RestoreVersion(c *fiber.Ctx) error {
	var req dto.RestoreVersionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	ticket, err := h.tickets.RestoreVersion(c.UserContext(), c.Params("id"), *req.Index)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// BulkUpdateStatus POST /api/tickets/bulk/status.
func (h *TicketsHandler) BulkUpdateStatus(c *fiber.Ctx) error {
	var req dto.BulkStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Status = strings.TrimSpace(req.Status)
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	ids, err := h.selection(c, req.IDs, req.PageQuery, req.SelectedOn)
	if err != nil {
		return err
	}

	res, err := h.tickets.BulkUpdateStatus(c.UserContext(), ids, domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

// BulkDelete POST /api/tickets/bulk/delete.
func (h *TicketsHandler) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkDeleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ids, err := h.selection(c, req.IDs, req.PageQuery, req.SelectedOn)
	if err != nil {
		return err
	}

	res := h.tickets.BulkDelete(c.UserContext(), ids, req.Confirm)
	if res.ConfirmationRequired {
		return apperrors.NewConfirmationRequired("bulk delete must be confirmed", map[string]any{"ids": ids})
	}
	for _, id := range ids {
		h.analysis.Forget(id)
	}
	return c.JSON(fiber.Map{"data": res})
}

// selection resolves explicit ids, or the visible page of pageQuery when no
// ids are given. Ids picked on a list state other than pageQuery are stale and
// rejected.
func (h *TicketsHandler) selection(c *fiber.Ctx, ids []string, pageQuery, selectedOn *string) ([]string, error) {
	if len(ids) == 0 && pageQuery == nil {
		return nil, apperrors.NewValidationError("ids or pageQuery required", nil)
	}

	origin := pageQuery
	if selectedOn != nil {
		origin = selectedOn
	}
	var sel *query.Selection
	if origin != nil {
		sel = query.NewSelection(query.DecodeString(*origin))
	} else {
		sel = query.NewSelection(query.Default())
	}
	for _, id := range ids {
		if id != "" && !sel.Has(id) {
			sel.Toggle(id)
		}
	}
	if len(ids) > 0 && sel.Len() == 0 {
		return nil, apperrors.NewValidationError("ids must not be empty", nil)
	}
	if pageQuery == nil {
		return sel.IDs(), nil
	}

	state := query.DecodeString(*pageQuery)
	if sel.Sync(state) {
		return nil, apperrors.NewConflict("selection was made on a different list state", map[string]any{
			"selectedOn": *selectedOn,
			"pageQuery":  *pageQuery,
		})
	}
	if len(ids) == 0 {
		sel.TogglePage(h.tickets.List(c.UserContext(), state).IDs())
	}
	return sel.IDs(), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := json.Unmarshal(c.Body(), out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func analysisError(aiErr *ai.Error) error {
	status := aiErr.Status
	if status == 0 {
		status = fiber.StatusBadGateway
	}
	details := map[string]any{
		"kind":      aiErr.Kind,
		"retryHint": aiErr.RetryHint(),
	}
	if aiErr.UpstreamStatus != 0 {
		details["upstreamStatus"] = aiErr.UpstreamStatus
	}
	if aiErr.Details != "" {
		details["details"] = aiErr.Details
	}
	return &apperrors.DomainError{
		Code:       "AI_" + strings.ToUpper(string(aiErr.Kind)),
		Message:    aiErr.Message,
		HTTPStatus: status,
		Details:    details,
		Err:        aiErr,
	}
}
