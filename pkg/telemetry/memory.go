package telemetry

import "sync"

// Memory captures emitted events in order. It exists for tests that assert
// on event sequencing.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (m *Memory) Emit(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of the captured events in emission order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Names returns the captured event names in emission order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.events))
	for i, e := range m.events {
		names[i] = e.Name
	}
	return names
}

// Reset discards all captured events.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// Ensure Memory satisfies Emitter.
var _ Emitter = (*Memory)(nil)
