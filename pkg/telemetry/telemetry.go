// Package telemetry defines the event sink consumed by the search loader.
//
// The core emits structured named events describing query performance and
// per-source health; delivery and durability are the sink's concern. The
// sink is an optional collaborator: construct components with [Noop] when
// no backend is configured and emission becomes a no-op, never an error.
package telemetry

import (
	"sort"

	charmlog "github.com/charmbracelet/log"
)

// Event is one structured telemetry checkpoint.
//
// Properties hold exportable key/value pairs (strings, numbers, booleans).
// PII holds values that identify the user or their input (e.g., raw query
// text); sinks must redact or hash them before leaving the machine.
type Event struct {
	Name       string
	Properties map[string]any
	PII        map[string]any
}

// Emitter accepts telemetry events. Implementations must be safe for
// concurrent use and must not block the caller on delivery.
type Emitter interface {
	Emit(e Event)
}

// Noop discards every event.
type Noop struct{}

// Emit implements Emitter.
func (Noop) Emit(Event) {}

// LogEmitter writes events to a charmbracelet logger at debug level.
// PII properties are replaced with "[redacted]" unless IncludePII is set.
type LogEmitter struct {
	Logger *charmlog.Logger

	// IncludePII logs raw PII values. Only enable for local debugging.
	IncludePII bool
}

// Emit implements Emitter.
func (e *LogEmitter) Emit(ev Event) {
	if e.Logger == nil {
		return
	}
	kv := make([]any, 0, 2*(len(ev.Properties)+len(ev.PII)))
	for _, k := range sortedKeys(ev.Properties) {
		kv = append(kv, k, ev.Properties[k])
	}
	for _, k := range sortedKeys(ev.PII) {
		v := ev.PII[k]
		if !e.IncludePII {
			v = "[redacted]"
		}
		kv = append(kv, k, v)
	}
	e.Logger.Debug("telemetry "+ev.Name, kv...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ensure implementations satisfy Emitter.
var (
	_ Emitter = Noop{}
	_ Emitter = (*LogEmitter)(nil)
)
