package models

import "time"

// SubscriptionStatus is the coarse lifecycle state of an offer subscription.
// It is mutated only by the ACTIVATE_SUBSCRIPTION step, never generically by
// the engine.
type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "PENDING"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusInactive SubscriptionStatus = "INACTIVE"
)

// OfferSubscription is the business entity driven by the offer subscription
// activation workflow.
type OfferSubscription struct {
	ID             string             `json:"id"`
	OfferID        string             `json:"offer_id"        validate:"required"`
	OfferName      string             `json:"offer_name"      validate:"required,min=3"`
	CompanyID      string             `json:"company_id"      validate:"required"`
	RequesterID    string             `json:"requester_id"    validate:"required"`
	RequesterEmail string             `json:"requester_email,omitempty"`
	Status         SubscriptionStatus `json:"status"`
	SingleInstance bool               `json:"single_instance"`
	InstanceURL    string             `json:"instance_url,omitempty"`
	CallbackURL    string             `json:"callback_url,omitempty"`
	ClientID       *string            `json:"client_id,omitempty"`
	TechnicalUser  *string            `json:"technical_user_id,omitempty"`
	ProcessID      *string            `json:"process_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
