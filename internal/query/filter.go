// Package query derives the visible ticket list from a declarative filter
// state and serializes that state to and from URL query parameters.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/spec-kit/supportpilot/internal/domain"
)

// Query parameter names.
const (
	ParamStatus   = "status"
	ParamCategory = "category"
	ParamPriority = "priority"
	ParamAnswered = "answered"
	ParamSearch   = "q"
	ParamSort     = "sort"
	ParamPage     = "page"
	ParamPageSize = "pageSize"
)

// All is the passthrough value for the status, category and priority filters.
const All = "all"

// StatusActive matches Open and In Progress tickets.
const StatusActive = "active"

// Answered is the AI-answered ternary filter.
type Answered string

const (
	AnsweredAll     Answered = "all"
	AnsweredYes     Answered = "answered"
	AnsweredPending Answered = "pending"
)

// SortOrder selects the list ordering.
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortPriority SortOrder = "priority"
	SortUpdated  SortOrder = "updated"
)

// PageSizes are the selectable page sizes; the first is the default.
var PageSizes = []int{10, 20, 50}

// FilterState is the complete list state carried in the URL.
type FilterState struct {
	Status   string
	Category string
	Priority string
	Answered Answered
	Search   string
	Sort     SortOrder
	Page     int
	PageSize int
}

// Default is the state of a bare list URL.
func Default() FilterState {
	return FilterState{
		Status:   All,
		Category: All,
		Priority: All,
		Answered: AnsweredAll,
		Sort:     SortNewest,
		Page:     1,
		PageSize: PageSizes[0],
	}
}

// Normalize replaces every unknown or invalid field with its default.
func (s FilterState) Normalize() FilterState {
	def := Default()
	out := s

	if !validStatus(out.Status) {
		out.Status = def.Status
	}
	if out.Category != All && !domain.TicketCategory(out.Category).Valid() {
		out.Category = def.Category
	}
	if out.Priority != All && !domain.TicketPriority(out.Priority).Valid() {
		out.Priority = def.Priority
	}
	switch out.Answered {
	case AnsweredAll, AnsweredYes, AnsweredPending:
	default:
		out.Answered = def.Answered
	}
	out.Search = strings.TrimSpace(out.Search)
	switch out.Sort {
	case SortNewest, SortOldest, SortPriority, SortUpdated:
	default:
		out.Sort = def.Sort
	}
	if out.Page < 1 {
		out.Page = def.Page
	}
	if !validPageSize(out.PageSize) {
		out.PageSize = def.PageSize
	}
	return out
}

// Decode reads a filter state from query parameters. Absent, unknown or
// malformed values fall back to their defaults.
func Decode(values url.Values) FilterState {
	s := FilterState{
		Status:   values.Get(ParamStatus),
		Category: values.Get(ParamCategory),
		Priority: values.Get(ParamPriority),
		Answered: Answered(values.Get(ParamAnswered)),
		Search:   values.Get(ParamSearch),
		Sort:     SortOrder(values.Get(ParamSort)),
	}
	if page, err := strconv.Atoi(values.Get(ParamPage)); err == nil {
		s.Page = page
	}
	if size, err := strconv.Atoi(values.Get(ParamPageSize)); err == nil {
		s.PageSize = size
	}
	return s.Normalize()
}

// DecodeString parses a raw query string, tolerating a leading "?".
func DecodeString(raw string) FilterState {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Default()
	}
	return Decode(values)
}

// Encode writes s as query parameters, omitting every default value.
func Encode(s FilterState) url.Values {
	s = s.Normalize()
	def := Default()
	values := url.Values{}

	if s.Status != def.Status {
		values.Set(ParamStatus, s.Status)
	}
	if s.Category != def.Category {
		values.Set(ParamCategory, s.Category)
	}
	if s.Priority != def.Priority {
		values.Set(ParamPriority, s.Priority)
	}
	if s.Answered != def.Answered {
		values.Set(ParamAnswered, string(s.Answered))
	}
	if s.Search != "" {
		values.Set(ParamSearch, s.Search)
	}
	if s.Sort != def.Sort {
		values.Set(ParamSort, string(s.Sort))
	}
	if s.Page != def.Page {
		values.Set(ParamPage, strconv.Itoa(s.Page))
	}
	if s.PageSize != def.PageSize {
		values.Set(ParamPageSize, strconv.Itoa(s.PageSize))
	}
	return values
}

// String is the canonical query string for s, without a leading "?".
func (s FilterState) String() string {
	return Encode(s).Encode()
}

// Navigate applies a requested state change. Changing any filter, the sort
// order or the page size sends the user back to page 1.
func Navigate(prev, next FilterState) FilterState {
	prev = prev.Normalize()
	next = next.Normalize()
	if !sameQuery(prev, next) {
		next.Page = 1
	}
	return next
}

// ActiveFilters names the non-default parameters that narrow the list.
func ActiveFilters(s FilterState) []string {
	s = s.Normalize()
	def := Default()
	active := []string{}
	if s.Status != def.Status {
		active = append(active, ParamStatus)
	}
	if s.Category != def.Category {
		active = append(active, ParamCategory)
	}
	if s.Priority != def.Priority {
		active = append(active, ParamPriority)
	}
	if s.Answered != def.Answered {
		active = append(active, ParamAnswered)
	}
	if s.Search != "" {
		active = append(active, ParamSearch)
	}
	return active
}

// ClearFilters drops every narrowing filter, keeping sort and page size.
func ClearFilters(s FilterState) FilterState {
	s = s.Normalize()
	out := Default()
	out.Sort = s.Sort
	out.PageSize = s.PageSize
	return out
}

// sameQuery compares everything except the page number.
func sameQuery(a, b FilterState) bool {
	a.Page, b.Page = 0, 0
	return a == b
}

func validStatus(status string) bool {
	if status == All || status == StatusActive {
		return true
	}
	return domain.TicketStatus(status).Valid()
}

func validPageSize(size int) bool {
	for _, candidate := range PageSizes {
		if candidate == size {
			return true
		}
	}
	return false
}
