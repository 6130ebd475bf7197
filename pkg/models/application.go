package models

import "time"

// ApplicationStatus is the coarse onboarding state of a company application.
type ApplicationStatus string

const (
	ApplicationStatusCreated   ApplicationStatus = "CREATED"
	ApplicationStatusSubmitted ApplicationStatus = "SUBMITTED"
	ApplicationStatusApproved  ApplicationStatus = "APPROVED"
	ApplicationStatusDeclined  ApplicationStatus = "DECLINED"
)

// CompanyApplication is the business entity driven by the network
// registration workflow. The onboarding service provider (OSP) that submitted
// the application is notified of decisions through the CALLBACK_OSP_* steps.
type CompanyApplication struct {
	ID             string            `json:"id"`
	CompanyID      string            `json:"company_id"     validate:"required"`
	CompanyName    string            `json:"company_name"   validate:"required"`
	Status         ApplicationStatus `json:"status"`
	ExternalUserID string            `json:"external_user_id,omitempty"`
	OspCallbackURL string            `json:"osp_callback_url,omitempty"`
	ProcessID      *string           `json:"process_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
