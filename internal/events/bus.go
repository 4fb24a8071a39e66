package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventCalculationCompleted EventType = "CALCULATION_COMPLETED"
	EventCalculationInvalid   EventType = "CALCULATION_INVALID"
	EventPreviewSuperseded    EventType = "PREVIEW_SUPERSEDED"
	EventClientConnected      EventType = "CLIENT_CONNECTED"
	EventClientDisconnected   EventType = "CLIENT_DISCONNECTED"
	EventError                EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishCalculationCompleted publishes a completed calculation event
func (eb *EventBus) PublishCalculationCompleted(sessionID string, seq uint64, valid bool, errorCount, warningCount int) {
	eventType := EventCalculationCompleted
	if !valid {
		eventType = EventCalculationInvalid
	}
	eb.Publish(Event{
		Type: eventType,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"seq":        seq,
			"valid":      valid,
			"errors":     errorCount,
			"warnings":   warningCount,
		},
	})
}

// PublishPreviewSuperseded publishes a superseded recalculation event
func (eb *EventBus) PublishPreviewSuperseded(sessionID string, supersededSeq, newSeq uint64) {
	eb.Publish(Event{
		Type: EventPreviewSuperseded,
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"superseded_seq": supersededSeq,
			"new_seq":        newSeq,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
