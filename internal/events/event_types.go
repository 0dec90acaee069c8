package events

import (
	"time"

	"github.com/spec-kit/supportpilot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketAIOutputSaved    EventType = "ticket_ai_output_saved"
	EventTicketAIOutputRestored EventType = "ticket_ai_output_restored"
	EventTicketDeleted          EventType = "ticket_deleted"
	EventTicketsCleared         EventType = "tickets_cleared"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Channel  domain.TicketChannel  `json:"channel"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAIOutputSavedPayload payload.
type TicketAIOutputSavedPayload struct {
	Version      int                 `json:"version"`
	Model        string              `json:"model"`
	HistorySize  int                 `json:"history_size"`
	StatusBefore domain.TicketStatus `json:"status_before"`
}

// TicketAIOutputRestoredPayload payload.
type TicketAIOutputRestoredPayload struct {
	RestoredVersion int `json:"restored_version"`
	ReplacedVersion int `json:"replaced_version,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Title string `json:"title"`
}

// TicketsClearedPayload payload.
type TicketsClearedPayload struct {
	Count int `json:"count"`
}
