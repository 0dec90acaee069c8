package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/supportpilot/internal/config"
	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/events"
	"github.com/spec-kit/supportpilot/internal/repository"
)

type failingActivity struct{}

func (failingActivity) Append(context.Context, *domain.ActivityEntry) error {
	return errors.New("disk full")
}

func (failingActivity) ListByTicket(context.Context, string, int) ([]domain.ActivityEntry, error) {
	return nil, nil
}

func TestNotificationServiceRecordsActivity(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher()
	activity := repository.NewMemoryActivityRepository(10)
	NewNotificationService(dispatcher, activity, nil, config.NotificationConfig{WebhookURL: "https://hooks.example.com"}).RegisterHandlers()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "ev-1",
		Type:      events.EventTicketStatusChanged,
		TicketID:  "t-1",
		Timestamp: at,
		Payload:   events.TicketStatusChangedPayload{OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusResolved},
	}))

	entries, err := activity.ListByTicket(ctx, "t-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ev-1", entries[0].EventID)
	assert.Equal(t, "ticket_status_changed", entries[0].Type)
	assert.Equal(t, at, entries[0].CreatedAt)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	assert.Equal(t, "Resolved", payload["new_status"])
}

func TestNotificationServiceSurfacesRecordFailure(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, failingActivity{}, nil, config.NotificationConfig{}).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketDeleted, TicketID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNotificationServiceWithoutActivity(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, nil, nil, config.NotificationConfig{}).RegisterHandlers()

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketsCleared}))
}

func TestNotificationServiceCoversEveryEventType(t *testing.T) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAIOutputSaved,
		events.EventTicketAIOutputRestored,
		events.EventTicketDeleted,
		events.EventTicketsCleared,
	} {
		_, ok := notifyChannels[eventType]
		assert.True(t, ok, "no notification channels for %s", eventType)
	}
}

func TestNotificationServicePrunesRemovedTickets(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher()
	activity := repository.NewMemoryActivityRepository(10)
	NewNotificationService(dispatcher, activity, nil, config.NotificationConfig{}).RegisterHandlers()

	for _, id := range []string{"t-1", "t-2", "t-3"} {
		require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: id}))
	}
	require.Equal(t, 3, activity.Tracked())

	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketDeleted, TicketID: "t-1"}))
	assert.Equal(t, 2, activity.Tracked())
	entries, err := activity.ListByTicket(ctx, "t-1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketsCleared}))
	assert.Equal(t, 1, activity.Tracked(), "only the store-wide clear event remains")
}
