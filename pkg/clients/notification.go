package clients

import (
	"context"
	"log/slog"
	"net/http"
)

// HTTPNotifier delivers in-portal notifications through the notification
// service.
type HTTPNotifier struct {
	api *httpAPI
}

func NewHTTPNotifier(baseURL string, logger *slog.Logger) *HTTPNotifier {
	return &HTTPNotifier{api: newHTTPAPI(baseURL, logger.With("module", "notification_client"))}
}

func (n *HTTPNotifier) Notify(ctx context.Context, recipientID, topic, content string) error {
	return n.api.do(ctx, http.MethodPost, "/api/v1/notifications", map[string]string{
		"recipient_id": recipientID,
		"topic":        topic,
		"content":      content,
	}, nil)
}
