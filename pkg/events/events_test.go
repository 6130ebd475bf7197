package events_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venohr/stepflow/pkg/events"
	"github.com/venohr/stepflow/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	t.Parallel()

	base := events.NewBaseEvent(events.StepEnqueuedEvent, "process-1")

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, events.StepEnqueuedEvent, base.Type)
	assert.Equal(t, "process-1", base.ProcessID)
	assert.False(t, base.Timestamp.IsZero())
}

func TestValidatePayload(t *testing.T) {
	t.Parallel()

	event := events.StepEnqueued{
		BaseEvent: events.NewBaseEvent(events.StepEnqueuedEvent, "process-1"),
		StepID:    "step-1",
		StepType:  models.StepClientCreation,
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NoError(t, events.ValidatePayload(events.StepEnqueuedEvent, payload))
}

func TestValidatePayload_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		eventType events.EventType
		payload   string
	}{
		{
			name:      "missing step fields",
			eventType: events.StepEnqueuedEvent,
			payload:   `{"id":"e1","type":"process.step.enqueued","process_id":"p1"}`,
		},
		{
			name:      "missing process id",
			eventType: events.ProcessFinishedEvent,
			payload:   `{"id":"e1","type":"process.finished"}`,
		},
		{
			name:      "completed without status",
			eventType: events.StepCompletedEvent,
			payload:   `{"id":"e1","type":"process.step.completed","process_id":"p1","step_id":"s1","step_type":"CLIENT_CREATION"}`,
		},
		{
			name:      "unknown event type",
			eventType: events.EventType("process.unknown"),
			payload:   `{}`,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Error(t, events.ValidatePayload(testCase.eventType, []byte(testCase.payload)))
		})
	}
}
