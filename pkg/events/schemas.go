package events

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var baseProperties = map[string]any{
	"id":         map[string]any{"type": "string", "minLength": 1},
	"type":       map[string]any{"type": "string", "minLength": 1},
	"timestamp":  map[string]any{"type": "string"},
	"process_id": map[string]any{"type": "string", "minLength": 1},
	"worker_id":  map[string]any{"type": "string"},
	"metadata":   map[string]any{"type": "object"},
}

func eventSchema(extraProperties map[string]any, required ...string) map[string]any {
	properties := make(map[string]any, len(baseProperties)+len(extraProperties))
	for name, schema := range baseProperties {
		properties[name] = schema
	}

	for name, schema := range extraProperties {
		properties[name] = schema
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   append([]string{"id", "type", "process_id"}, required...),
	}
}

var payloadSchemas = map[EventType]map[string]any{
	ProcessStartedEvent: eventSchema(map[string]any{
		"process_type": map[string]any{"type": "string", "minLength": 1},
	}, "process_type"),
	StepEnqueuedEvent: eventSchema(map[string]any{
		"step_id":   map[string]any{"type": "string", "minLength": 1},
		"step_type": map[string]any{"type": "string", "minLength": 1},
	}, "step_id", "step_type"),
	StepCompletedEvent: eventSchema(map[string]any{
		"step_id":   map[string]any{"type": "string", "minLength": 1},
		"step_type": map[string]any{"type": "string", "minLength": 1},
		"status":    map[string]any{"type": "string", "minLength": 1},
		"message":   map[string]any{"type": "string"},
	}, "step_id", "step_type", "status"),
	ProcessFinishedEvent: eventSchema(nil),
}

// ValidatePayload checks an incoming event payload against the schema for its
// type, so malformed messages are rejected before a handler sees them.
func ValidatePayload(eventType EventType, payload []byte) error {
	schema, ok := payloadSchemas[eventType]
	if !ok {
		return fmt.Errorf("no payload schema for event type '%s'", eventType)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("failed to validate event payload: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, validationError := range result.Errors() {
			details = append(details, validationError.String())
		}

		return fmt.Errorf("event payload validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}
