// Package events defines the event types published over the process event bus.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/venohr/stepflow/pkg/models"
)

type EventType string

// Topic is the Kafka topic carrying all process lifecycle events.
const Topic = "stepflow.process.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ProcessStartedEvent  EventType = "process.started"
	StepEnqueuedEvent    EventType = "process.step.enqueued"
	StepCompletedEvent   EventType = "process.step.completed"
	ProcessFinishedEvent EventType = "process.finished"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ProcessID string         `json:"process_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh event envelope for the given process.
func NewBaseEvent(eventType EventType, processID string) BaseEvent {
	id, err := uuid.NewV7()
	if err != nil {
		return BaseEvent{ID: uuid.NewString(), Type: eventType, Timestamp: time.Now().UTC(), ProcessID: processID}
	}

	return BaseEvent{
		ID:        id.String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ProcessID: processID,
	}
}

// ProcessStarted is published when a business operation opens a new process
// and seeds its first step.
type ProcessStarted struct {
	BaseEvent

	ProcessType models.ProcessType `json:"process_type"`
}

func (e ProcessStarted) GetType() EventType {
	return ProcessStartedEvent
}

// StepEnqueued is published whenever a TODO step appears, either as the first
// step of a process, as a successor, or through an operator retrigger. Workers
// treat it as a nudge to run the executor for the process.
type StepEnqueued struct {
	BaseEvent

	StepID   string          `json:"step_id"`
	StepType models.StepType `json:"step_type"`
}

func (e StepEnqueued) GetType() EventType {
	return StepEnqueuedEvent
}

// StepCompleted is published after a step reached a terminal status.
type StepCompleted struct {
	BaseEvent

	StepID   string            `json:"step_id"`
	StepType models.StepType   `json:"step_type"`
	Status   models.StepStatus `json:"status"`
	Message  string            `json:"message,omitempty"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

// ProcessFinished is published when an executor pass leaves no TODO step
// behind.
type ProcessFinished struct {
	BaseEvent
}

func (e ProcessFinished) GetType() EventType {
	return ProcessFinishedEvent
}
