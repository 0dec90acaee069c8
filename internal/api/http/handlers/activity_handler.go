package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/supportpilot/internal/repository"
	"github.com/spec-kit/supportpilot/internal/service"
	apperrors "github.com/spec-kit/supportpilot/pkg/util/errorutil"
)

// ActivityHandler exposes the per-ticket activity log.
type ActivityHandler struct {
	tickets  *service.TicketService
	activity repository.ActivityRepository
}

// NewActivityHandler constructs handler.
func NewActivityHandler(tickets *service.TicketService, activity repository.ActivityRepository) *ActivityHandler {
	return &ActivityHandler{tickets: tickets, activity: activity}
}

// ListActivity GET /api/tickets/:id/activity?limit=N.
func (h *ActivityHandler) ListActivity(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.tickets.Get(c.UserContext(), id); err != nil {
		return err
	}

	limit := c.QueryInt("limit", repository.DefaultActivityLimit)
	entries, err := h.activity.ListByTicket(c.UserContext(), id, limit)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": entries})
}
