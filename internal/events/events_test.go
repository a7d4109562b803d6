package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus()

	var created, cancelled []*Event
	bus.Subscribe(EventBookingCreated, func(e *Event) error {
		created = append(created, e)
		return nil
	})
	bus.Subscribe(EventBookingCancelled, func(e *Event) error {
		cancelled = append(cancelled, e)
		return nil
	})

	bus.Publish(&Event{Type: EventBookingCreated, Payload: []byte(`{}`)})
	bus.Publish(&Event{Type: EventBookingCreated, Payload: []byte(`{}`)})

	assert.Len(t, created, 2)
	assert.Empty(t, cancelled)
	assert.NotEmpty(t, created[0].ID, "publish stamps an id")
	assert.False(t, created[0].CreatedAt.IsZero())
}

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got *Event
	bus.Subscribe(EventBookingConfirmed, func(e *Event) error {
		got = e
		return nil
	})

	payload := BookingEventPayload{BookingID: 7, ProviderID: 1, Status: "confirmed"}
	require.NoError(t, bus.PublishJSON(EventBookingConfirmed, payload))

	require.NotNil(t, got)
	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(got.Payload, &decoded))
	assert.Equal(t, int64(7), decoded.BookingID)
	assert.Equal(t, "confirmed", decoded.Status)
}

func TestEventBus_NilBusIsSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, nil))
}

func TestEventTypeForStatus(t *testing.T) {
	assert.Equal(t, EventBookingConfirmed, EventTypeForStatus("confirmed"))
	assert.Equal(t, EventBookingRejected, EventTypeForStatus("rejected"))
	assert.Equal(t, EventBookingCancelled, EventTypeForStatus("cancelled"))
	assert.Equal(t, EventBookingCompleted, EventTypeForStatus("completed"))
	assert.Equal(t, EventBookingStarted, EventTypeForStatus("in_progress"))
	assert.Empty(t, EventTypeForStatus("pending"))
	assert.Empty(t, EventTypeForStatus("quote_sent"))
}
