package query

import "sort"

// Selection is the set of ticket ids picked for a bulk action. It belongs to
// the list state it was made on and empties itself when that state changes.
type Selection struct {
	state FilterState
	ids   map[string]struct{}
}

// NewSelection starts an empty selection for state.
func NewSelection(state FilterState) *Selection {
	return &Selection{state: state.Normalize(), ids: make(map[string]struct{})}
}

// Sync clears the selection when the visible page or any filter, sort or
// page-size parameter differs from the state it was made on. It reports
// whether the selection was cleared.
func (s *Selection) Sync(state FilterState) bool {
	state = state.Normalize()
	if state == s.state {
		return false
	}
	s.state = state
	cleared := s.Len() > 0
	s.Clear()
	return cleared
}

// Toggle flips one id.
func (s *Selection) Toggle(id string) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// TogglePage implements the "select all on this page" checkbox: when every
// visible id is already selected they are all deselected, otherwise all of
// them are selected. Ids outside visible are left alone.
func (s *Selection) TogglePage(visible []string) {
	if len(visible) == 0 {
		return
	}
	if s.AllSelected(visible) {
		for _, id := range visible {
			delete(s.ids, id)
		}
		return
	}
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

// AllSelected reports whether every id in visible is selected.
func (s *Selection) AllSelected(visible []string) bool {
	if len(visible) == 0 {
		return false
	}
	for _, id := range visible {
		if _, ok := s.ids[id]; !ok {
			return false
		}
	}
	return true
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len is the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
