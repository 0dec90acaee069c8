package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityUrgent TicketPriority = "Urgent"
)

// TicketCategory classifies the reported problem.
type TicketCategory string

const (
	TicketCategoryBug            TicketCategory = "Bug"
	TicketCategoryPerformance    TicketCategory = "Performance"
	TicketCategoryBilling        TicketCategory = "Billing"
	TicketCategoryLogin          TicketCategory = "Login"
	TicketCategoryUI             TicketCategory = "UI"
	TicketCategoryFeatureRequest TicketCategory = "Feature Request"
	TicketCategoryOther          TicketCategory = "Other"
)

// TicketChannel is where the request came from.
type TicketChannel string

const (
	TicketChannelWeb     TicketChannel = "Web"
	TicketChannelMobile  TicketChannel = "Mobile"
	TicketChannelDesktop TicketChannel = "Desktop"
	TicketChannelOther   TicketChannel = "Other"
)

// DeviceType is the coarse client form factor.
type DeviceType string

const (
	DeviceTypeDesktop DeviceType = "Desktop"
	DeviceTypeMobile  DeviceType = "Mobile"
)

var (
	ticketStatuses   = []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved}
	ticketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent}
	ticketCategories = []TicketCategory{
		TicketCategoryBug,
		TicketCategoryPerformance,
		TicketCategoryBilling,
		TicketCategoryLogin,
		TicketCategoryUI,
		TicketCategoryFeatureRequest,
		TicketCategoryOther,
	}
	ticketChannels = []TicketChannel{TicketChannelWeb, TicketChannelMobile, TicketChannelDesktop, TicketChannelOther}
)

// TicketStatuses lists every status in display order.
func TicketStatuses() []TicketStatus { return append([]TicketStatus(nil), ticketStatuses...) }

// TicketPriorities lists every priority from lowest to highest.
func TicketPriorities() []TicketPriority { return append([]TicketPriority(nil), ticketPriorities...) }

// TicketCategories lists every category in display order.
func TicketCategories() []TicketCategory { return append([]TicketCategory(nil), ticketCategories...) }

// TicketChannels lists every channel in display order.
func TicketChannels() []TicketChannel { return append([]TicketChannel(nil), ticketChannels...) }

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range ticketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Active reports whether the ticket still needs work.
func (s TicketStatus) Active() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities Urgent > High > Medium > Low. Unknown values rank 0.
func (p TicketPriority) Rank() int {
	for i, candidate := range ticketPriorities {
		if candidate == p {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	for _, candidate := range ticketCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Valid reports whether c is a known channel.
func (c TicketChannel) Valid() bool {
	for _, candidate := range ticketChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// Valid reports whether d is a known device type.
func (d DeviceType) Valid() bool {
	return d == DeviceTypeDesktop || d == DeviceTypeMobile
}

// Environment is the client snapshot captured when the ticket was filed.
type Environment struct {
	Browser    string     `json:"browser,omitempty"`
	OS         string     `json:"os,omitempty"`
	DeviceType DeviceType `json:"deviceType,omitempty"`
	UserAgent  string     `json:"userAgent,omitempty"`
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     string         `json:"id"`
	Title                  string         `json:"title"`
	Category               TicketCategory `json:"category"`
	Priority               TicketPriority `json:"priority"`
	Status                 TicketStatus   `json:"status"`
	Channel                TicketChannel  `json:"channel"`
	Description            string         `json:"description"`
	StepsToReproduce       string         `json:"stepsToReproduce,omitempty"`
	ExpectedResult         string         `json:"expectedResult,omitempty"`
	ActualResult           string         `json:"actualResult,omitempty"`
	Environment            Environment    `json:"environment"`
	CreatedAt              Timestamp      `json:"createdAt"`
	UpdatedAt              Timestamp      `json:"updatedAt"`
	AIOutput               *AIOutput      `json:"aiOutput,omitempty"`
	AIOutputHistory        []AIOutput     `json:"aiOutputHistory,omitempty"`
	AIOutputVersionCounter int            `json:"aiOutputVersionCounter,omitempty"`
}

// CreateTicketInput carries the fields a caller supplies for a new ticket.
type CreateTicketInput struct {
	Title            string
	Category         TicketCategory
	Priority         TicketPriority
	Channel          TicketChannel
	Description      string
	StepsToReproduce string
	ExpectedResult   string
	ActualResult     string
	Environment      *Environment
}

// Answered reports whether an AI output is attached.
func (t *Ticket) Answered() bool {
	return t.AIOutput != nil
}

// SearchText is the haystack used by free-text search.
func (t *Ticket) SearchText() string {
	return strings.ToLower(t.Title + " " + t.Description)
}

// LastActivity is updatedAt falling back to createdAt.
func (t *Ticket) LastActivity() Timestamp {
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt
	}
	return t.CreatedAt
}

// Touch refreshes updatedAt, never moving it before createdAt.
func (t *Ticket) Touch(now time.Time) {
	if !t.CreatedAt.IsZero() && now.Before(t.CreatedAt.Time) {
		now = t.CreatedAt.Time
	}
	t.UpdatedAt = NewTimestamp(now)
}

// Clone returns a deep copy so callers cannot alias engine state.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AIOutput != nil {
		current := t.AIOutput.Clone()
		out.AIOutput = &current
	}
	if t.AIOutputHistory != nil {
		out.AIOutputHistory = make([]AIOutput, len(t.AIOutputHistory))
		for i, entry := range t.AIOutputHistory {
			out.AIOutputHistory[i] = entry.Clone()
		}
	}
	return out
}
