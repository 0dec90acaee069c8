package dto

import (
	"strings"

	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/query"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title            string              `json:"title" validate:"required,max=200"`
	Category         string              `json:"category" validate:"required,ticket_category"`
	Priority         string              `json:"priority" validate:"required,ticket_priority"`
	Channel          string              `json:"channel" validate:"required,ticket_channel"`
	Description      string              `json:"description" validate:"required"`
	StepsToReproduce string              `json:"stepsToReproduce"`
	ExpectedResult   string              `json:"expectedResult"`
	ActualResult     string              `json:"actualResult"`
	Environment      *EnvironmentRequest `json:"environment" validate:"omitempty"`
}

// EnvironmentRequest carries explicit environment overrides.
type EnvironmentRequest struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"deviceType" validate:"omitempty,device_type"`
	UserAgent  string `json:"userAgent"`
}

// Normalize trims every text field and drops an all-empty environment.
func (r *CreateTicketRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.TrimSpace(r.Category)
	r.Priority = strings.TrimSpace(r.Priority)
	r.Channel = strings.TrimSpace(r.Channel)
	r.Description = strings.TrimSpace(r.Description)
	r.StepsToReproduce = strings.TrimSpace(r.StepsToReproduce)
	r.ExpectedResult = strings.TrimSpace(r.ExpectedResult)
	r.ActualResult = strings.TrimSpace(r.ActualResult)
	if r.Environment != nil {
		r.Environment.Browser = strings.TrimSpace(r.Environment.Browser)
		r.Environment.OS = strings.TrimSpace(r.Environment.OS)
		r.Environment.DeviceType = strings.TrimSpace(r.Environment.DeviceType)
		r.Environment.UserAgent = strings.TrimSpace(r.Environment.UserAgent)
		if *r.Environment == (EnvironmentRequest{}) {
			r.Environment = nil
		}
	}
}

// ToInput converts a validated request.
func (r CreateTicketRequest) ToInput() domain.CreateTicketInput {
	input := domain.CreateTicketInput{
		Title:            r.Title,
		Category:         domain.TicketCategory(r.Category),
		Priority:         domain.TicketPriority(r.Priority),
		Channel:          domain.TicketChannel(r.Channel),
		Description:      r.Description,
		StepsToReproduce: r.StepsToReproduce,
		ExpectedResult:   r.ExpectedResult,
		ActualResult:     r.ActualResult,
	}
	if r.Environment != nil {
		input.Environment = &domain.Environment{
			Browser:    r.Environment.Browser,
			OS:         r.Environment.OS,
			DeviceType: domain.DeviceType(r.Environment.DeviceType),
			UserAgent:  r.Environment.UserAgent,
		}
	}
	return input
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,ticket_status"`
}

// RestoreVersionRequest payload.
type RestoreVersionRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// BulkStatusRequest targets explicit ids or the visible page of PageQuery.
// SelectedOn is the list query the ids were picked on; when it differs from
// PageQuery the selection is stale.
type BulkStatusRequest struct {
	IDs        []string `json:"ids"`
	PageQuery  *string  `json:"pageQuery"`
	SelectedOn *string  `json:"selectedOn"`
	Status    string   `json:"status" validate:"required,ticket_status"`
}

// BulkDeleteRequest targets explicit ids or the visible page of PageQuery.
type BulkDeleteRequest struct {
	IDs        []string `json:"ids"`
	PageQuery  *string  `json:"pageQuery"`
	SelectedOn *string  `json:"selectedOn"`
	Confirm    bool     `json:"confirm"`
}

// ListMeta describes the page returned by the list endpoint.
type ListMeta struct {
	Total             int         `json:"total"`
	Page              int         `json:"page"`
	PageSize          int         `json:"pageSize"`
	PageCount         int         `json:"pageCount"`
	Query             string      `json:"query"`
	PrevQuery         *string     `json:"prevQuery"`
	NextQuery         *string     `json:"nextQuery"`
	ClearFiltersQuery string      `json:"clearFiltersQuery"`
	ActiveFilters     []string    `json:"activeFilters"`
	Filters           FilterState `json:"filters"`
}

// FilterState is the decoded list state echoed back to the client.
type FilterState struct {
	Status   string `json:"status"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Answered string `json:"answered"`
	Search   string `json:"q"`
	Sort     string `json:"sort"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// NewListMeta builds the meta block for a derived page.
func NewListMeta(res query.Result) ListMeta {
	return ListMeta{
		Total:             res.Total,
		Page:              res.Page,
		PageSize:          res.PageSize,
		PageCount:         res.PageCount,
		Query:             res.State.String(),
		PrevQuery:         pageQuery(res, res.Page-1),
		NextQuery:         pageQuery(res, res.Page+1),
		ClearFiltersQuery: query.ClearFilters(res.State).String(),
		ActiveFilters:     res.ActiveFilters,
		Filters: FilterState{
			Status:   res.State.Status,
			Category: res.State.Category,
			Priority: res.State.Priority,
			Answered: string(res.State.Answered),
			Search:   res.State.Search,
			Sort:     string(res.State.Sort),
			Page:     res.State.Page,
			PageSize: res.State.PageSize,
		},
	}
}

func pageQuery(res query.Result, page int) *string {
	state, ok := res.PageLink(page)
	if !ok {
		return nil
	}
	encoded := state.String()
	return &encoded
}
