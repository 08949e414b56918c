package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendBackend(t *testing.T) {
	t.Run("sends the message", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/emails", r.URL.Path)
			assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"email_123"}`))
		}))
		defer srv.Close()

		backend, err := NewResendBackend(ResendConfig{APIKey: "re_test", Sender: "owner@example.com", BaseURL: srv.URL + "/"})
		require.NoError(t, err)

		require.NoError(t, backend.Send(context.Background(), testMessage()))
		assert.Equal(t, "owner@example.com", got["from"])
		assert.Equal(t, "New contact form submission from Al", got["subject"])
		assert.Equal(t, "<p>Hello</p>", got["html"])
		assert.Equal(t, "Hello", got["text"])
	})

	t.Run("rejected key is an auth failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"statusCode":401,"name":"validation_error","message":"API key is invalid"}`))
		}))
		defer srv.Close()

		backend, err := NewResendBackend(ResendConfig{APIKey: "re_bad", Sender: "owner@example.com", BaseURL: srv.URL + "/"})
		require.NoError(t, err)

		err = backend.Send(context.Background(), testMessage())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, KindAuth, Classify(err))
	})

	t.Run("missing key", func(t *testing.T) {
		backend, err := NewResendBackend(ResendConfig{})
		require.NoError(t, err)
		assert.ErrorIs(t, backend.Ready(), ErrNotConfigured)
		assert.ErrorIs(t, backend.Send(context.Background(), testMessage()), ErrNotConfigured)
	})

	t.Run("missing sender is a configuration failure before any request", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		backend, err := NewResendBackend(ResendConfig{APIKey: "re_x", BaseURL: srv.URL + "/"})
		require.NoError(t, err)
		assert.ErrorIs(t, backend.Ready(), ErrNotConfigured)

		msg, err := BuildContactMessage(Addresses{}, ContactData{SenderName: "Al", SenderEmail: "al@example.com", Message: "Hello there, friend."})
		require.NoError(t, err)

		err = NewDispatcher(backend, time.Second).Send(context.Background(), msg)
		assert.Equal(t, KindConfiguration, Classify(err))
		assert.Zero(t, calls)
	})
}
