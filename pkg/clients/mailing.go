package clients

import (
	"context"
	"log/slog"
	"net/http"
)

// HTTPMailer sends templated emails through the mailing service.
type HTTPMailer struct {
	api *httpAPI
}

func NewHTTPMailer(baseURL string, logger *slog.Logger) *HTTPMailer {
	return &HTTPMailer{api: newHTTPAPI(baseURL, logger.With("module", "mailing_client"))}
}

func (m *HTTPMailer) Send(ctx context.Context, recipient, template string, parameters map[string]string) error {
	return m.api.do(ctx, http.MethodPost, "/api/v1/mails", map[string]any{
		"recipient":  recipient,
		"template":   template,
		"parameters": parameters,
	}, nil)
}
