package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/supportpilot/internal/ai"
)

// AIHandler exposes the analysis gateway over HTTP.
type AIHandler struct {
	gateway *ai.Gateway
}

// NewAIHandler constructs handler.
func NewAIHandler(gateway *ai.Gateway) *AIHandler {
	return &AIHandler{gateway: gateway}
}

// AnalyzeTicket POST /api/ai/ticket-analysis.
func (h *AIHandler) AnalyzeTicket(c *fiber.Ctx) error {
	var req ai.AnalysisRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ai.ErrorBody{Error: "Invalid JSON payload."})
	}
	if req.Ticket == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ai.ErrorBody{Error: "Ticket title and description are required."})
	}

	result, err := h.gateway.Analyze(c.UserContext(), *req.Ticket)
	if err != nil {
		var aiErr *ai.Error
		if errors.As(err, &aiErr) {
			return c.Status(aiErr.Status).JSON(aiErr.Body())
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ai.ErrorBody{Error: "Unexpected server error."})
	}
	return c.JSON(result)
}
