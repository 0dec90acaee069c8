package domain

import (
	"encoding/json"
	"time"
)

// ActivityEntry is one recorded change to a ticket.
type ActivityEntry struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"eventId"`
	TicketID  string          `json:"ticketId,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
