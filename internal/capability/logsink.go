package capability

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// LogSink writes telemetry events as single-line JSON through the standard
// logger. Marshaling failures are logged and dropped; a sink must never
// fail the main request path.
type LogSink struct {
	Component string
}

// NewLogSink creates a sink that stamps every event with the given
// component name.
func NewLogSink(component string) *LogSink {
	return &LogSink{Component: component}
}

// Record implements Sink.
func (s *LogSink) Record(event Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Component == "" {
		event.Component = s.Component
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[%s] Failed to marshal telemetry event %s: %v", s.Component, event.Type, err)
		return
	}
	log.Println(string(data))
}
