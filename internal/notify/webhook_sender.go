package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookSender delivers messages by POSTing them to the chat transport
// process. A 429 from the transport surfaces as a rate-limit error so the
// broadcaster can pause and retry.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender builds a sender pointed at the transport webhook.
func NewWebhookSender(url string, timeout time.Duration) (*WebhookSender, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type webhookPayload struct {
	UserID    int64   `json:"user_id"`
	Text      string  `json:"text"`
	OrderID   int64   `json:"order_id,omitempty"`
	Action    string  `json:"action,omitempty"`
	PhotoPath *string `json:"photo_path,omitempty"`
}

func (s *WebhookSender) Send(ctx context.Context, userID int64, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		UserID:    userID,
		Text:      msg.Text,
		OrderID:   msg.OrderID,
		Action:    string(msg.Action),
		PhotoPath: msg.PhotoPath,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "transport webhook unreachable")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeRateLimit, "transport throttled delivery").
			WithDetails(map[string]any{"user_id": userID})
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return pkgerrors.New(pkgerrors.CodeDelivery, "transport rejected delivery").
			WithDetails(map[string]any{"user_id": userID, "status": resp.StatusCode})
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. It keeps
// local development working without a transport process.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, userID int64, msg Message) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": userID,
		"action":  string(msg.Action),
		"text":    msg.Text,
	})
	s.logg.Info(logCtx, "notification logged (no transport configured)")
	return nil
}
