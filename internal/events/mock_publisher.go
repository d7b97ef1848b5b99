package events

import (
	"context"
	"log/slog"
	"sync"
)

// PublishedEvent is an event recorded by MockEventPublisher
type PublishedEvent struct {
	Topic string
	Event *Event
}

// MockEventPublisher records events instead of sending them
type MockEventPublisher struct {
	logger *slog.Logger
	err    error

	mu        sync.Mutex
	published []PublishedEvent
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

// FailWith makes every later Publish return err
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockEventPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.published = append(m.published, PublishedEvent{Topic: topic, Event: event})
	if m.logger != nil {
		m.logger.Debug("Mock event published", "topic", topic, "type", event.Type)
	}
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of everything published so far
func (m *MockEventPublisher) GetPublishedEvents() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishedEvent, len(m.published))
	copy(out, m.published)
	return out
}

// EventsOfType filters published events by type
func (m *MockEventPublisher) EventsOfType(eventType string) []*Event {
	var out []*Event
	for _, p := range m.GetPublishedEvents() {
		if p.Event.Type == eventType {
			out = append(out, p.Event)
		}
	}
	return out
}
