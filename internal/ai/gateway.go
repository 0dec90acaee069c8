package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/domain"
)

const (
	schemaName   = "ticket_analysis"
	maxLogDetail = 2000
)

var systemPrompt = strings.Join([]string{
	"You are SupportPilot AI, an assistant that helps support teams draft responses and QA-ready summaries.",
	"Return output in JSON that matches the provided schema.",
	"Customer reply must be empathetic, concise, and ready to send to the customer.",
	"QA summary must be technical, structured, and include key details (summary, steps, expected vs actual, severity, tags).",
	"Follow-up questions must be short, actionable, and help unblock triage.",
	"Always respond in English.",
}, " ")

// Gateway calls the upstream model directly and validates what comes back.
type Gateway struct {
	client *Client
	model  string
	logger *zap.Logger
}

// NewGateway builds a gateway that sends requests for model through client.
func NewGateway(client *Client, model string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{client: client, model: model, logger: logger}
}

// Model is the model name recorded on saved outputs.
func (g *Gateway) Model() string {
	return g.model
}

// promptTicket is the ticket as shown to the model, without prior AI output.
type promptTicket struct {
	ID               string                `json:"id,omitempty"`
	Title            string                `json:"title"`
	Category         domain.TicketCategory `json:"category,omitempty"`
	Priority         domain.TicketPriority `json:"priority,omitempty"`
	Status           domain.TicketStatus   `json:"status,omitempty"`
	Channel          domain.TicketChannel  `json:"channel,omitempty"`
	Description      string                `json:"description"`
	StepsToReproduce string                `json:"stepsToReproduce,omitempty"`
	ExpectedResult   string                `json:"expectedResult,omitempty"`
	ActualResult     string                `json:"actualResult,omitempty"`
	Environment      domain.Environment    `json:"environment"`
	CreatedAt        domain.Timestamp      `json:"createdAt"`
	UpdatedAt        domain.Timestamp      `json:"updatedAt"`
}

// Analyze validates the ticket, asks the model and checks the answer
// against AnalysisSchema. Every failure is an *Error.
func (g *Gateway) Analyze(ctx context.Context, ticket domain.Ticket) (domain.AnalysisResult, error) {
	if strings.TrimSpace(ticket.Title) == "" || strings.TrimSpace(ticket.Description) == "" {
		return domain.AnalysisResult{}, &Error{
			Kind:    FailureInvalid,
			Status:  http.StatusBadRequest,
			Message: "Ticket title and description are required.",
		}
	}
	if g.client == nil || !g.client.Configured() {
		return domain.AnalysisResult{}, &Error{
			Kind:    FailureAuth,
			Status:  http.StatusInternalServerError,
			Message: "OpenAI API key is not configured.",
		}
	}

	ticketJSON, err := json.Marshal(promptTicket{
		ID:               ticket.ID,
		Title:            ticket.Title,
		Category:         ticket.Category,
		Priority:         ticket.Priority,
		Status:           ticket.Status,
		Channel:          ticket.Channel,
		Description:      ticket.Description,
		StepsToReproduce: ticket.StepsToReproduce,
		ExpectedResult:   ticket.ExpectedResult,
		ActualResult:     ticket.ActualResult,
		Environment:      ticket.Environment,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	})
	if err != nil {
		return domain.AnalysisResult{}, unexpected(err)
	}

	response, err := g.client.CreateResponse(ctx, ResponseRequest{
		Model:        g.model,
		Instructions: systemPrompt,
		Input: strings.Join([]string{
			"Analyze the support ticket below and produce the required JSON output.",
			"Ticket JSON:",
			string(ticketJSON),
		}, "\n"),
		Text: &TextOptions{Format: TextFormat{
			Type:   "json_schema",
			Name:   schemaName,
			Strict: true,
			Schema: json.RawMessage(AnalysisSchema),
		}},
	})
	if err != nil {
		var providerErr *ProviderError
		if errors.As(err, &providerErr) {
			g.logger.Warn("openai request failed",
				zap.String("ticket_id", ticket.ID),
				zap.Int("upstream_status", providerErr.StatusCode),
				zap.String("type", providerErr.Type),
				zap.String("code", providerErr.Code))
			return domain.AnalysisResult{}, fromProviderError(providerErr)
		}
		g.logger.Error("openai call failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return domain.AnalysisResult{}, unexpected(err)
	}

	text := response.Text()
	if text == "" {
		g.logger.Error("openai response missing output text", zap.String("ticket_id", ticket.ID), zap.String("response_id", response.ID))
		return domain.AnalysisResult{}, &Error{
			Kind:    FailureMalformed,
			Status:  http.StatusInternalServerError,
			Message: "Empty AI response.",
		}
	}

	analysis, err := DecodeAnalysis([]byte(text))
	if err != nil {
		message := "Invalid AI response shape."
		if errors.Is(err, ErrUnparsable) {
			message = "Failed to parse AI response."
		}
		g.logger.Error(message, zap.String("ticket_id", ticket.ID), zap.String("output", truncate(text, maxLogDetail)), zap.Error(err))
		return domain.AnalysisResult{}, &Error{
			Kind:    FailureMalformed,
			Status:  http.StatusInternalServerError,
			Message: message,
			Err:     err,
		}
	}
	return analysis, nil
}

func fromProviderError(providerErr *ProviderError) *Error {
	upstream := providerErr.StatusCode
	if upstream == 0 {
		upstream = http.StatusInternalServerError
	}
	status := upstream
	if upstream >= 500 {
		status = http.StatusBadGateway
	}

	message := "OpenAI request failed."
	switch upstream {
	case http.StatusTooManyRequests:
		message = "OpenAI quota/rate limit exceeded. Check OpenAI Platform billing/limits."
	case http.StatusUnauthorized, http.StatusForbidden:
		message = "OpenAI authentication failed."
	}

	details := providerErr.Raw
	if details == "" {
		details = providerErr.Message
	}
	return &Error{
		Kind:           KindForStatus(upstream),
		Status:         status,
		Message:        message,
		Details:        truncate(details, maxLogDetail),
		UpstreamStatus: upstream,
		Provider: &ProviderDetails{
			Message: providerErr.Message,
			Type:    providerErr.Type,
			Code:    providerErr.Code,
		},
		Err: providerErr,
	}
}

func unexpected(err error) *Error {
	kind := FailureUpstream
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isTransport(err) {
		kind = FailureNetwork
	}
	return &Error{
		Kind:    kind,
		Status:  http.StatusInternalServerError,
		Message: "Unexpected server error.",
		Err:     err,
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
