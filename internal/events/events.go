package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted on successful lifecycle transitions. The notification
// subsystem consumes these; the core never renders message content.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingStarted   = "booking.started"
)

// BookingEventPayload is the minimal booking snapshot a template renderer
// needs.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	ProviderID  int64     `json:"provider_id"`
	CustomerID  int64     `json:"customer_id"`
	ServiceID   int64     `json:"service_id"`
	Date        time.Time `json:"date"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	ChangedBy   string    `json:"changed_by,omitempty"`
	ChangedByID int64     `json:"changed_by_id,omitempty"`
}

// Event is a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// EventTypeForStatus maps a lifecycle target status to its event type.
// Returns an empty string for statuses without a dedicated event.
func EventTypeForStatus(status string) string {
	switch status {
	case "confirmed":
		return EventBookingConfirmed
	case "rejected":
		return EventBookingRejected
	case "cancelled":
		return EventBookingCancelled
	case "completed":
		return EventBookingCompleted
	case "in_progress":
		return EventBookingStarted
	}
	return ""
}
