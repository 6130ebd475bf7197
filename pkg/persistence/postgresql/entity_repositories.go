package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
)

// SubscriptionRepository handles offer subscription database operations.
type SubscriptionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSubscriptionRepository(db *sql.DB, logger *slog.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, logger: logger}
}

func (r *SubscriptionRepository) Save(ctx context.Context, subscription *models.OfferSubscription) error {
	if err := stampEntity(&subscription.ID, &subscription.CreatedAt, &subscription.UpdatedAt); err != nil {
		return err
	}

	query := `
		INSERT INTO offer_subscriptions (id, offer_id, offer_name, company_id, requester_id, requester_email,
			status, single_instance, instance_url, callback_url, client_id, technical_user_id, process_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			instance_url = EXCLUDED.instance_url,
			callback_url = EXCLUDED.callback_url,
			client_id = EXCLUDED.client_id,
			technical_user_id = EXCLUDED.technical_user_id,
			process_id = EXCLUDED.process_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		subscription.ID,
		subscription.OfferID,
		subscription.OfferName,
		subscription.CompanyID,
		subscription.RequesterID,
		subscription.RequesterEmail,
		subscription.Status,
		subscription.SingleInstance,
		subscription.InstanceURL,
		subscription.CallbackURL,
		subscription.ClientID,
		subscription.TechnicalUser,
		subscription.ProcessID,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save offer subscription: %w", err)
	}

	return nil
}

const subscriptionColumns = `id, offer_id, offer_name, company_id, requester_id, requester_email,
	status, single_instance, instance_url, callback_url, client_id, technical_user_id, process_id, created_at, updated_at`

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.OfferSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM offer_subscriptions WHERE id = $1`

	return scanSubscription(r.db.QueryRowContext(ctx, query, id))
}

func (r *SubscriptionRepository) GetByProcessID(ctx context.Context, processID string) (*models.OfferSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM offer_subscriptions WHERE process_id = $1`

	return scanSubscription(r.db.QueryRowContext(ctx, query, processID))
}

func scanSubscription(row *sql.Row) (*models.OfferSubscription, error) {
	var subscription models.OfferSubscription

	err := row.Scan(
		&subscription.ID,
		&subscription.OfferID,
		&subscription.OfferName,
		&subscription.CompanyID,
		&subscription.RequesterID,
		&subscription.RequesterEmail,
		&subscription.Status,
		&subscription.SingleInstance,
		&subscription.InstanceURL,
		&subscription.CallbackURL,
		&subscription.ClientID,
		&subscription.TechnicalUser,
		&subscription.ProcessID,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSubscriptionNotFound
		}

		return nil, fmt.Errorf("failed to scan offer subscription: %w", err)
	}

	return &subscription, nil
}

// ApplicationRepository handles company application database operations.
type ApplicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewApplicationRepository(db *sql.DB, logger *slog.Logger) *ApplicationRepository {
	return &ApplicationRepository{db: db, logger: logger}
}

func (r *ApplicationRepository) Save(ctx context.Context, application *models.CompanyApplication) error {
	if err := stampEntity(&application.ID, &application.CreatedAt, &application.UpdatedAt); err != nil {
		return err
	}

	query := `
		INSERT INTO company_applications (id, company_id, company_name, status, external_user_id, osp_callback_url, process_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			external_user_id = EXCLUDED.external_user_id,
			osp_callback_url = EXCLUDED.osp_callback_url,
			process_id = EXCLUDED.process_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		application.ID,
		application.CompanyID,
		application.CompanyName,
		application.Status,
		application.ExternalUserID,
		application.OspCallbackURL,
		application.ProcessID,
		application.CreatedAt,
		application.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save company application: %w", err)
	}

	return nil
}

const applicationColumns = `id, company_id, company_name, status, external_user_id, osp_callback_url, process_id, created_at, updated_at`

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.CompanyApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM company_applications WHERE id = $1`

	return scanApplication(r.db.QueryRowContext(ctx, query, id))
}

func (r *ApplicationRepository) GetByProcessID(ctx context.Context, processID string) (*models.CompanyApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM company_applications WHERE process_id = $1`

	return scanApplication(r.db.QueryRowContext(ctx, query, processID))
}

func scanApplication(row *sql.Row) (*models.CompanyApplication, error) {
	var application models.CompanyApplication

	err := row.Scan(
		&application.ID,
		&application.CompanyID,
		&application.CompanyName,
		&application.Status,
		&application.ExternalUserID,
		&application.OspCallbackURL,
		&application.ProcessID,
		&application.CreatedAt,
		&application.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrApplicationNotFound
		}

		return nil, fmt.Errorf("failed to scan company application: %w", err)
	}

	return &application, nil
}

// IdentityProviderRepository handles identity provider database operations.
type IdentityProviderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewIdentityProviderRepository(db *sql.DB, logger *slog.Logger) *IdentityProviderRepository {
	return &IdentityProviderRepository{db: db, logger: logger}
}

func (r *IdentityProviderRepository) Save(ctx context.Context, provider *models.IdentityProvider) error {
	if err := stampEntity(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt); err != nil {
		return err
	}

	query := `
		INSERT INTO identity_providers (id, company_id, company_name, alias, enabled, redirect_url, invite_email,
			service_account_id, org_mapper_id, realm_client_id, process_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			redirect_url = EXCLUDED.redirect_url,
			service_account_id = EXCLUDED.service_account_id,
			org_mapper_id = EXCLUDED.org_mapper_id,
			realm_client_id = EXCLUDED.realm_client_id,
			process_id = EXCLUDED.process_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		provider.ID,
		provider.CompanyID,
		provider.CompanyName,
		provider.Alias,
		provider.Enabled,
		provider.RedirectURL,
		provider.InviteEmail,
		provider.ServiceAccount,
		provider.OrgMapperID,
		provider.RealmClientID,
		provider.ProcessID,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save identity provider: %w", err)
	}

	return nil
}

const identityProviderColumns = `id, company_id, company_name, alias, enabled, redirect_url, invite_email,
	service_account_id, org_mapper_id, realm_client_id, process_id, created_at, updated_at`

func (r *IdentityProviderRepository) GetByID(ctx context.Context, id string) (*models.IdentityProvider, error) {
	query := `SELECT ` + identityProviderColumns + ` FROM identity_providers WHERE id = $1`

	return scanIdentityProvider(r.db.QueryRowContext(ctx, query, id))
}

func (r *IdentityProviderRepository) GetByProcessID(ctx context.Context, processID string) (*models.IdentityProvider, error) {
	query := `SELECT ` + identityProviderColumns + ` FROM identity_providers WHERE process_id = $1`

	return scanIdentityProvider(r.db.QueryRowContext(ctx, query, processID))
}

func scanIdentityProvider(row *sql.Row) (*models.IdentityProvider, error) {
	var provider models.IdentityProvider

	err := row.Scan(
		&provider.ID,
		&provider.CompanyID,
		&provider.CompanyName,
		&provider.Alias,
		&provider.Enabled,
		&provider.RedirectURL,
		&provider.InviteEmail,
		&provider.ServiceAccount,
		&provider.OrgMapperID,
		&provider.RealmClientID,
		&provider.ProcessID,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrIdentityProviderNotFound
		}

		return nil, fmt.Errorf("failed to scan identity provider: %w", err)
	}

	return &provider, nil
}

func stampEntity(id *string, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()

	if *id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate entity ID: %w", err)
		}

		*id = generated.String()
	}

	if createdAt.IsZero() {
		*createdAt = now
	}

	*updatedAt = now

	return nil
}
