package models

import "time"

// IdentityProvider is the business entity driven by the identity provider
// federation setup workflow. Enabled flips to true only through the
// ENABLE_CENTRAL_IDP step.
type IdentityProvider struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"company_id"   validate:"required"`
	CompanyName    string    `json:"company_name" validate:"required"`
	Alias          string    `json:"alias"        validate:"required,min=3"`
	Enabled        bool      `json:"enabled"`
	RedirectURL    string    `json:"redirect_url,omitempty"`
	InviteEmail    string    `json:"invite_email,omitempty"`
	ServiceAccount *string   `json:"service_account_id,omitempty"`
	OrgMapperID    *string   `json:"org_mapper_id,omitempty"`
	RealmClientID  *string   `json:"realm_client_id,omitempty"`
	ProcessID      *string   `json:"process_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
