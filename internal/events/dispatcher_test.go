package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketsCleared}))
}

func TestPublishRecoversPanicsAndRunsCatchAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []EventType

	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		panic("nil map")
	})
	d.SubscribeAll(func(_ context.Context, e Event) error {
		seen = append(seen, e.Type)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketDeleted})
	assert.EqualError(t, err, "ticket_deleted handler panicked: nil map")
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketsCleared}))
	assert.Equal(t, []EventType{EventTicketDeleted, EventTicketsCleared}, seen)
}
