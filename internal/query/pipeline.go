package query

import (
	"sort"
	"strings"

	"github.com/spec-kit/supportpilot/internal/domain"
)

// Result is one derived page of the ticket list.
type Result struct {
	Items         []domain.Ticket
	Total         int
	Page          int
	PageSize      int
	PageCount     int
	State         FilterState
	ActiveFilters []string
}

// IDs lists the ids visible on the page, in display order.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Items))
	for i := range r.Items {
		ids[i] = r.Items[i].ID
	}
	return ids
}

// PageLink is the state showing page of the same list. It reports false when
// page is outside 1..PageCount.
func (r Result) PageLink(page int) (FilterState, bool) {
	if page < 1 || page > r.PageCount {
		return FilterState{}, false
	}
	next := r.State
	next.Page = page
	return Navigate(r.State, next), true
}

// Apply filters, sorts and paginates tickets. It does not modify tickets and
// returns the same ordered page for the same inputs. The page in the returned
// state is clamped to the available range.
func Apply(tickets []domain.Ticket, s FilterState) Result {
	s = s.Normalize()

	matched := make([]domain.Ticket, 0, len(tickets))
	needle := strings.ToLower(s.Search)
	for i := range tickets {
		if matches(&tickets[i], s, needle) {
			matched = append(matched, tickets[i])
		}
	}

	sortTickets(matched, s.Sort)

	total := len(matched)
	pageCount := (total + s.PageSize - 1) / s.PageSize
	if pageCount < 1 {
		pageCount = 1
	}
	if s.Page > pageCount {
		s.Page = pageCount
	}

	start := (s.Page - 1) * s.PageSize
	end := start + s.PageSize
	if end > total {
		end = total
	}
	items := make([]domain.Ticket, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, matched[i].Clone())
	}

	return Result{
		Items:         items,
		Total:         total,
		Page:          s.Page,
		PageSize:      s.PageSize,
		PageCount:     pageCount,
		State:         s,
		ActiveFilters: ActiveFilters(s),
	}
}

func matches(t *domain.Ticket, s FilterState, needle string) bool {
	switch s.Status {
	case All:
	case StatusActive:
		if !t.Status.Active() {
			return false
		}
	default:
		if string(t.Status) != s.Status {
			return false
		}
	}

	if s.Category != All && string(t.Category) != s.Category {
		return false
	}
	if s.Priority != All && string(t.Priority) != s.Priority {
		return false
	}

	switch s.Answered {
	case AnsweredYes:
		if !t.Answered() {
			return false
		}
	case AnsweredPending:
		if t.Answered() {
			return false
		}
	}

	if needle != "" && !strings.Contains(t.SearchText(), needle) {
		return false
	}
	return true
}

func sortTickets(tickets []domain.Ticket, order SortOrder) {
	var less func(a, b *domain.Ticket) bool
	switch order {
	case SortOldest:
		less = func(a, b *domain.Ticket) bool {
			return a.CreatedAt.UnixMilliOrZero() < b.CreatedAt.UnixMilliOrZero()
		}
	case SortPriority:
		less = func(a, b *domain.Ticket) bool {
			if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
				return ra > rb
			}
			return a.CreatedAt.UnixMilliOrZero() > b.CreatedAt.UnixMilliOrZero()
		}
	case SortUpdated:
		less = func(a, b *domain.Ticket) bool {
			return a.LastActivity().UnixMilliOrZero() > b.LastActivity().UnixMilliOrZero()
		}
	default:
		less = func(a, b *domain.Ticket) bool {
			return a.CreatedAt.UnixMilliOrZero() > b.CreatedAt.UnixMilliOrZero()
		}
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		return less(&tickets[i], &tickets[j])
	})
}
