package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierPostsArchiveURL(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(zerolog.Nop())
	err := n.Notify(context.Background(), &NotificationSettings{
		Method:      NotificationMethodHTTP,
		CallbackURL: server.URL,
	}, "http://localhost:8080/v1/discoveries/x/results.tar.gz")
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"archive_url": "http://localhost:8080/v1/discoveries/x/results.tar.gz",
	}, got)
}

func TestWebhookNotifierRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(zerolog.Nop())
	err := n.Notify(context.Background(), &NotificationSettings{
		Method:      NotificationMethodHTTP,
		CallbackURL: server.URL,
	}, "http://example.com/a.tar.gz")
	require.Error(t, err)
}

func TestWebhookNotifierUnsupportedMethods(t *testing.T) {
	n := NewWebhookNotifier(zerolog.Nop())

	err := n.Notify(context.Background(), &NotificationSettings{
		Method: NotificationMethodEmail,
		Email:  "user@example.com",
	}, "http://example.com/a.tar.gz")
	require.ErrorIs(t, err, ErrNotSupported)

	err = n.Notify(context.Background(), &NotificationSettings{Method: "pigeon"}, "x")
	require.ErrorIs(t, err, ErrNotSupported)

	// nil settings mean the caller asked for no notification
	require.NoError(t, n.Notify(context.Background(), nil, "x"))
}
