package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTogglePage(t *testing.T) {
	sel := NewSelection(Default())
	sel.Toggle("x")

	sel.TogglePage([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b", "x"}, sel.IDs())
	assert.True(t, sel.AllSelected([]string{"a", "b"}))

	sel.TogglePage([]string{"a", "b"})
	assert.Equal(t, []string{"x"}, sel.IDs())

	sel.Toggle("a")
	sel.TogglePage([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b", "x"}, sel.IDs(), "partial page selects the rest")
}

func TestToggle(t *testing.T) {
	sel := NewSelection(Default())
	sel.Toggle("a")
	assert.True(t, sel.Has("a"))
	sel.Toggle("a")
	assert.False(t, sel.Has("a"))
	assert.Equal(t, 0, sel.Len())
}

func TestSyncClearsOnAnyStateChange(t *testing.T) {
	state := Default()
	sel := NewSelection(state)
	sel.Toggle("a")

	assert.False(t, sel.Sync(state))
	assert.Equal(t, 1, sel.Len())

	next := state
	next.Page = 2
	assert.True(t, sel.Sync(next))
	assert.Equal(t, 0, sel.Len())

	sel.Toggle("b")
	filtered := next
	filtered.Category = "Bug"
	assert.True(t, sel.Sync(filtered))
	assert.Empty(t, sel.IDs())

	assert.False(t, sel.Sync(filtered))
}
