package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
)

func TestWebhookSenderDeliversPayload(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender, err := NewWebhookSender(server.URL, 0)
	require.NoError(t, err)

	photo := "files/photos/7.jpg"
	err = sender.Send(context.Background(), 42, Message{
		Text:      "Your order #7 is ready for pickup!",
		OrderID:   7,
		Action:    ActionConfirmPickup,
		PhotoPath: &photo,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, int64(7), got.OrderID)
	assert.Equal(t, string(ActionConfirmPickup), got.Action)
	require.NotNil(t, got.PhotoPath)
	assert.Equal(t, photo, *got.PhotoPath)
}

func TestWebhookSenderMapsThrottlingToRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender, err := NewWebhookSender(server.URL, 0)
	require.NoError(t, err)

	err = sender.Send(context.Background(), 42, Message{Text: "hello"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeRateLimit, appErr.Code())
}

func TestWebhookSenderMapsRejectionToDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender, err := NewWebhookSender(server.URL, 0)
	require.NoError(t, err)

	err = sender.Send(context.Background(), 42, Message{Text: "hello"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeDelivery, appErr.Code())
}

func TestWebhookSenderRequiresURL(t *testing.T) {
	_, err := NewWebhookSender("", 0)
	require.Error(t, err)
}
