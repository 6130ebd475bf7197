package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/venohr/stepflow/pkg/classify"
)

// HTTPCallback posts process outcomes to callback URLs registered by app
// providers and onboarding service providers. Unlike the portal-internal
// collaborators the target is an arbitrary external endpoint, so failures
// carry a fixed message instead of echoing the remote body.
type HTTPCallback struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPCallback(logger *slog.Logger) *HTTPCallback {
	return &HTTPCallback{
		client: &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger: logger.With("module", "callback_client"),
	}
}

func (c *HTTPCallback) NotifyProvider(ctx context.Context, callbackURL string, payload CallbackPayload) error {
	return c.post(ctx, callbackURL, payload)
}

func (c *HTTPCallback) NotifyOsp(ctx context.Context, callbackURL, applicationID, status string) error {
	return c.post(ctx, callbackURL, map[string]string{
		"application_id": applicationID,
		"status":         status,
	})
}

func (c *HTTPCallback) post(ctx context.Context, callbackURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create callback request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	c.logger.DebugContext(ctx, "Posting callback", "url", callbackURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify.NewError(resp.StatusCode, "Request failed")
	}

	return nil
}
