// Package ai turns a ticket into a customer reply, a QA summary and
// follow-up questions using a hosted language model.
package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spec-kit/supportpilot/internal/domain"
)

// Analyzer produces an analysis for one ticket.
type Analyzer interface {
	Analyze(ctx context.Context, ticket domain.Ticket) (domain.AnalysisResult, error)
}

// FailureKind classifies a failed analysis for the caller.
type FailureKind string

const (
	FailureAuth      FailureKind = "auth"
	FailureRateLimit FailureKind = "rate_limit"
	FailureUpstream  FailureKind = "upstream"
	FailureMalformed FailureKind = "malformed"
	FailureNetwork   FailureKind = "network"
	FailureInvalid   FailureKind = "invalid"
)

// KindForStatus classifies a non-2xx HTTP status.
func KindForStatus(status int) FailureKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureAuth
	case http.StatusTooManyRequests:
		return FailureRateLimit
	default:
		return FailureUpstream
	}
}

// ProviderDetails mirrors the provider's own error object.
type ProviderDetails struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error is a classified analysis failure. Status is the HTTP status the
// gateway answers with.
type Error struct {
	Kind           FailureKind
	Status         int
	Message        string
	Details        string
	UpstreamStatus int
	Provider       *ProviderDetails
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai %s (%d): %s: %v", e.Kind, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("ai %s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RetryHint is a short user-facing suggestion for the failure.
func (e *Error) RetryHint() string {
	switch e.Kind {
	case FailureAuth:
		return "Check the OpenAI API key configured for the gateway, then retry."
	case FailureRateLimit:
		return "Wait a moment or review OpenAI billing and limits, then retry."
	case FailureMalformed:
		return "The AI returned an unexpected response. Retry to generate a new one."
	case FailureNetwork:
		return "Check the connection to the AI gateway and retry."
	case FailureInvalid:
		return "Fill in the ticket title and description, then retry."
	default:
		return "Retry in a moment."
	}
}

// ErrorBody is the JSON document the gateway answers failures with.
type ErrorBody struct {
	Error          string           `json:"error"`
	Details        string           `json:"details,omitempty"`
	Status         int              `json:"status,omitempty"`
	UpstreamStatus int              `json:"upstreamStatus,omitempty"`
	OpenAI         *ProviderDetails `json:"openai,omitempty"`
}

// Body renders e for the wire.
func (e *Error) Body() ErrorBody {
	body := ErrorBody{Error: e.Message, Details: e.Details}
	if e.UpstreamStatus != 0 {
		body.Status = e.Status
		body.UpstreamStatus = e.UpstreamStatus
		body.OpenAI = e.Provider
	}
	return body
}
