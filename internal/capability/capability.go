// Package capability defines the narrow interfaces through which the engine
// consumes external collaborators: model generation, and the fire-and-forget
// telemetry sink. Provider HTTP clients live behind these interfaces and are
// out of scope for this module.
package capability

import (
	"context"
	"time"
)

// Result is the output of a single model generation call.
type Result struct {
	Model   string        `json:"model"`
	Content string        `json:"content"`
	Tokens  int           `json:"tokens"`
	Latency time.Duration `json:"latency"`
}

// Generator is an opaque model capability: given a prompt and a model ID,
// produce text. Implementations may fail or time out; callers must treat
// any error as a recoverable single-model failure, never a fatal one.
type Generator interface {
	Generate(ctx context.Context, prompt string, modelID string) (*Result, error)
}

// Event is a single telemetry record emitted by the engine.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"event_type"`
	Component string         `json:"component"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Sink receives telemetry events. Record must never block the request path
// and must never fail it: implementations swallow their own errors.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events. Useful default when no sink is configured.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(Event) {}
