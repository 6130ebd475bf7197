package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/venohr/stepflow/pkg/classify"
)

// HTTPProvisioning talks to the provisioning service that manages OAuth
// clients, service accounts and identity provider configuration.
type HTTPProvisioning struct {
	api *httpAPI
}

func NewHTTPProvisioning(baseURL string, logger *slog.Logger) *HTTPProvisioning {
	return &HTTPProvisioning{api: newHTTPAPI(baseURL, logger.With("module", "provisioning_client"))}
}

func (p *HTTPProvisioning) CreateClient(ctx context.Context, name, redirectURL string) (*Client, error) {
	var client Client

	err := p.api.do(ctx, http.MethodPost, "/api/v1/clients", map[string]string{
		"name":         name,
		"redirect_url": redirectURL,
	}, &client)
	if err != nil {
		return nil, err
	}

	return &client, nil
}

func (p *HTTPProvisioning) GetClientByName(ctx context.Context, name string) (*Client, error) {
	var client Client

	err := p.api.do(ctx, http.MethodGet, "/api/v1/clients/by-name/"+url.PathEscape(name), nil, &client)
	if err != nil {
		if classify.Classify(err) == classify.KindNotFound {
			return nil, nil
		}

		return nil, err
	}

	return &client, nil
}

func (p *HTTPProvisioning) CreateTechnicalUser(ctx context.Context, companyID, name string) (*TechnicalUser, error) {
	var user TechnicalUser

	err := p.api.do(ctx, http.MethodPost, "/api/v1/technical-users", map[string]string{
		"company_id": companyID,
		"name":       name,
	}, &user)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (p *HTTPProvisioning) CreateInstanceDetails(ctx context.Context, subscriptionID, instanceURL string) error {
	return p.api.do(ctx, http.MethodPost, "/api/v1/instances", map[string]string{
		"subscription_id": subscriptionID,
		"instance_url":    instanceURL,
	}, nil)
}

func (p *HTTPProvisioning) CreateServiceAccount(ctx context.Context, alias string) (*ServiceAccount, error) {
	var account ServiceAccount

	err := p.api.do(ctx, http.MethodPost, "/api/v1/identity-providers/"+url.PathEscape(alias)+"/service-accounts", nil, &account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (p *HTTPProvisioning) UpdateCentralIDPURLs(ctx context.Context, alias, redirectURL string) error {
	return p.api.do(ctx, http.MethodPut, "/api/v1/identity-providers/"+url.PathEscape(alias)+"/urls", map[string]string{
		"redirect_url": redirectURL,
	}, nil)
}

func (p *HTTPProvisioning) CreateOrgMapper(ctx context.Context, alias, companyName string) (string, error) {
	var mapper struct {
		ID string `json:"id"`
	}

	err := p.api.do(ctx, http.MethodPost, "/api/v1/identity-providers/"+url.PathEscape(alias)+"/org-mappers", map[string]string{
		"company_name": companyName,
	}, &mapper)
	if err != nil {
		return "", err
	}

	return mapper.ID, nil
}

func (p *HTTPProvisioning) CreateRealmClient(ctx context.Context, alias string) (string, error) {
	var client Client

	err := p.api.do(ctx, http.MethodPost, "/api/v1/identity-providers/"+url.PathEscape(alias)+"/realm-clients", nil, &client)
	if err != nil {
		return "", err
	}

	return client.ID, nil
}

func (p *HTTPProvisioning) EnableIdentityProvider(ctx context.Context, alias string) error {
	return p.api.do(ctx, http.MethodPut, "/api/v1/identity-providers/"+url.PathEscape(alias)+"/enable", nil, nil)
}

func (p *HTTPProvisioning) CreateDatabaseIdentityProvider(ctx context.Context, alias, companyID string) error {
	return p.api.do(ctx, http.MethodPost, "/api/v1/database-identity-providers", map[string]string{
		"alias":      alias,
		"company_id": companyID,
	}, nil)
}

func (p *HTTPProvisioning) CreateUser(ctx context.Context, alias, email string) error {
	return p.api.do(ctx, http.MethodPost, "/api/v1/identity-providers/"+url.PathEscape(alias)+"/users", map[string]string{
		"email": email,
	}, nil)
}

func (p *HTTPProvisioning) SynchronizeUser(ctx context.Context, externalUserID string) error {
	return p.api.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/users/%s/synchronize", url.PathEscape(externalUserID)), nil, nil)
}
