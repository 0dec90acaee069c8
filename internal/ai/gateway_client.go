package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/supportpilot/internal/domain"
)

// AnalysisPath is the gateway route for ticket analysis.
const AnalysisPath = "/api/ai/ticket-analysis"

const maxGatewayBody = 1 << 20

// AnalysisRequest is the gateway request body.
type AnalysisRequest struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// GatewayClient reaches a remote gateway over HTTP.
type GatewayClient struct {
	httpClient *http.Client
	endpoint   string
}

// NewGatewayClient targets the gateway served at baseURL.
func NewGatewayClient(baseURL string, timeout time.Duration, httpClient *http.Client) *GatewayClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &GatewayClient{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(baseURL, "/") + AnalysisPath,
	}
}

// Analyze posts the ticket and classifies any failure as an *Error.
func (c *GatewayClient) Analyze(ctx context.Context, ticket domain.Ticket) (domain.AnalysisResult, error) {
	forwarded := ticket.Clone()
	forwarded.AIOutput = nil
	forwarded.AIOutputHistory = nil
	forwarded.AIOutputVersionCounter = 0

	body, err := json.Marshal(AnalysisRequest{Ticket: &forwarded})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ai gateway: marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ai gateway: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return domain.AnalysisResult{}, &Error{
			Kind:    FailureNetwork,
			Status:  http.StatusBadGateway,
			Message: "AI gateway unreachable.",
			Err:     err,
		}
	}
	defer httpResponse.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxGatewayBody))
	if err != nil {
		return domain.AnalysisResult{}, &Error{
			Kind:    FailureNetwork,
			Status:  http.StatusBadGateway,
			Message: "AI gateway response interrupted.",
			Err:     err,
		}
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return domain.AnalysisResult{}, gatewayFailure(httpResponse.StatusCode, raw)
	}

	analysis, err := DecodeAnalysis(raw)
	if err != nil {
		return domain.AnalysisResult{}, &Error{
			Kind:    FailureMalformed,
			Status:  http.StatusBadGateway,
			Message: "Invalid AI response shape.",
			Err:     err,
		}
	}
	return analysis, nil
}

func gatewayFailure(status int, raw []byte) *Error {
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body = ErrorBody{Error: fmt.Sprintf("AI gateway returned HTTP %d.", status), Details: truncate(string(raw), maxLogDetail)}
	}
	kind := KindForStatus(status)
	if status == http.StatusBadRequest && body.UpstreamStatus == 0 {
		kind = FailureInvalid
	}
	return &Error{
		Kind:           kind,
		Status:         status,
		Message:        body.Error,
		Details:        body.Details,
		UpstreamStatus: body.UpstreamStatus,
		Provider:       body.OpenAI,
	}
}
