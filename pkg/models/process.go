// Package models defines the core domain models for process step orchestration.
package models

import "time"

// ProcessType identifies the workflow family a process belongs to.
type ProcessType string

const (
	ProcessTypeOfferSubscription     ProcessType = "OFFER_SUBSCRIPTION"
	ProcessTypeIdentityProviderSetup ProcessType = "IDENTITYPROVIDER_PROVISIONING"
	ProcessTypeNetworkRegistration   ProcessType = "NETWORK_REGISTRATION"
)

// OwnerLabel returns the label used when a process is named in diagnostics,
// e.g. the ambiguous-TODO integrity error.
func (p ProcessType) OwnerLabel() string {
	switch p {
	case ProcessTypeOfferSubscription:
		return "Offers"
	case ProcessTypeIdentityProviderSetup:
		return "IdentityProviders"
	case ProcessTypeNetworkRegistration:
		return "Networks"
	default:
		return "Processes"
	}
}

// Process groups an ordered sequence of steps for one business workflow
// instance. A process has no status of its own: it is finished when no TODO
// step remains for it.
type Process struct {
	ID        string      `json:"id"`
	Type      ProcessType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

// ProcessStep is one unit of work the engine schedules. Steps are append-only;
// the only mutation a row ever sees is its status transition.
type ProcessStep struct {
	ID        string     `json:"id"`
	ProcessID string     `json:"process_id"`
	Type      StepType   `json:"step_type"`
	Status    StepStatus `json:"step_status"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
