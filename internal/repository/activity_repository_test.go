package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/supportpilot/internal/domain"
)

func TestMemoryActivityRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryActivityRepository(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		entry := &domain.ActivityEntry{
			EventID:   fmt.Sprintf("ev-%d", i),
			TicketID:  "t-1",
			Type:      "ticket_status_changed",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Append(ctx, entry))
		assert.Equal(t, int64(i+1), entry.ID)
	}
	require.NoError(t, repo.Append(ctx, &domain.ActivityEntry{EventID: "other", TicketID: "t-2"}))

	entries, err := repo.ListByTicket(ctx, "t-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3, "only the newest entries are kept")
	assert.Equal(t, "ev-4", entries[0].EventID)
	assert.Equal(t, "ev-2", entries[2].EventID)

	entries, err = repo.ListByTicket(ctx, "t-1", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = repo.ListByTicket(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestMemoryActivityRepositoryForget(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryActivityRepository(5)
	for _, ticketID := range []string{"t-1", "t-2", "t-3", ""} {
		require.NoError(t, repo.Append(ctx, &domain.ActivityEntry{TicketID: ticketID, Type: "ticket_created"}))
	}
	require.Equal(t, 4, repo.Tracked())

	require.NoError(t, repo.Forget(ctx, "t-1"))
	assert.Equal(t, 3, repo.Tracked())
	entries, err := repo.ListByTicket(ctx, "t-1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, repo.ForgetTickets(ctx))
	assert.Equal(t, 1, repo.Tracked(), "store-wide events are kept")
	entries, err = repo.ListByTicket(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
