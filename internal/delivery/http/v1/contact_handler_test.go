package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"contact-relay-backend/config"
	"contact-relay-backend/internal/delivery/http/response"
	v1 "contact-relay-backend/internal/delivery/http/v1"
	"contact-relay-backend/internal/usecase"
	"contact-relay-backend/pkg/email"
	"contact-relay-backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend records delivered messages and can be made to fail or hang.
type fakeBackend struct {
	mu       sync.Mutex
	sent     []*email.Message
	readyErr error
	sendErr  error
	delay    time.Duration
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Ready() error { return b.readyErr }

func (b *fakeBackend) Send(ctx context.Context, msg *email.Message) error {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.sendErr != nil {
		return b.sendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
	return nil
}

func (b *fakeBackend) Sent() []*email.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*email.Message(nil), b.sent...)
}

func newTestRouter(t *testing.T, backend email.Backend, timeout time.Duration, appEnv string) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		AppEnv:         appEnv,
		EmailProvider:  config.ProviderSMTP,
		CORSOrigins:    []string{"*"},
		BodyLimitBytes: 1 << 10,
	}
	dispatcher := email.NewDispatcher(backend, timeout)
	contactUC := usecase.NewContactUsecase(usecase.ContactDeps{
		Mailer:    dispatcher,
		Limiter:   ratelimit.NewLedger(ratelimit.DefaultConfig()),
		Addresses: email.Addresses{From: "owner@example.com"},
	})

	r, err := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		HealthUC:  usecase.NewHealthUsecase(usecase.HealthDeps{Mailer: dispatcher}),
		Config:    cfg,
	})
	require.NoError(t, err)
	return r
}

func postJSON(r http.Handler, body string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp response.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

const validBody = `{"name":"Al","email":"al@example.com","message":"Hello, this is a test message."}`

func TestSendEmail(t *testing.T) {
	t.Run("valid submission is relayed", func(t *testing.T) {
		backend := &fakeBackend{}
		r := newTestRouter(t, backend, time.Second, "production")

		rec, resp := postJSON(r, validBody)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
		assert.Equal(t, v1.MsgSent, resp.Message)
		assert.NotEmpty(t, resp.RequestID)
		assert.Equal(t, resp.RequestID, rec.Header().Get("X-Request-ID"))

		sent := backend.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "al@example.com", sent[0].ReplyTo)
		assert.Equal(t, []string{"owner@example.com"}, sent[0].To)
	})

	t.Run("short message cites the minimum length", func(t *testing.T) {
		backend := &fakeBackend{}
		r := newTestRouter(t, backend, time.Second, "production")

		rec, resp := postJSON(r, `{"name":"Al","email":"al@example.com","message":"short"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, "Message must be at least 10 characters long", resp.Message)
		assert.Empty(t, backend.Sent())
	})

	t.Run("sixth request from the same client is rate limited", func(t *testing.T) {
		backend := &fakeBackend{}
		r := newTestRouter(t, backend, time.Second, "production")

		for i := 0; i < 5; i++ {
			rec, _ := postJSON(r, validBody)
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}
		rec, resp := postJSON(r, validBody)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, v1.MsgRateLimited, resp.Message)
		assert.Len(t, backend.Sent(), 5)
	})

	t.Run("dispatch timeout maps to 503", func(t *testing.T) {
		backend := &fakeBackend{delay: 200 * time.Millisecond}
		r := newTestRouter(t, backend, 20*time.Millisecond, "production")

		rec, resp := postJSON(r, validBody)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, v1.MsgUnavailable, resp.Message)
		assert.Empty(t, resp.Error)
	})

	t.Run("missing credentials map to 500 configuration error", func(t *testing.T) {
		backend := &fakeBackend{readyErr: email.ErrNotConfigured}
		r := newTestRouter(t, backend, time.Second, "production")

		rec, resp := postJSON(r, validBody)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, v1.MsgConfigurationError, resp.Message)
		assert.Empty(t, resp.Error)
	})

	t.Run("diagnostic error field outside production", func(t *testing.T) {
		backend := &fakeBackend{sendErr: errors.New("boom")}
		r := newTestRouter(t, backend, time.Second, "development")

		rec, resp := postJSON(r, validBody)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, v1.MsgSendFailed, resp.Message)
		assert.Contains(t, resp.Error, "boom")
	})

	t.Run("non-object body is rejected", func(t *testing.T) {
		r := newTestRouter(t, &fakeBackend{}, time.Second, "production")

		for _, body := range []string{`["a"]`, `not json`, ``, `null`, `"text"`, validBody + ` trailing`, validBody + validBody} {
			rec, resp := postJSON(r, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
			assert.Equal(t, v1.MsgInvalidBody, resp.Message)
		}
	})

	t.Run("trailing whitespace after the object is accepted", func(t *testing.T) {
		r := newTestRouter(t, &fakeBackend{}, time.Second, "production")

		rec, _ := postJSON(r, validBody+"\n  ")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing sender address maps to 500 configuration error", func(t *testing.T) {
		backend, err := email.NewResendBackend(email.ResendConfig{APIKey: "re_x"})
		require.NoError(t, err)
		r := newTestRouter(t, backend, time.Second, "production")

		rec, resp := postJSON(r, validBody)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, v1.MsgConfigurationError, resp.Message)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		r := newTestRouter(t, &fakeBackend{}, time.Second, "production")

		body := `{"name":"Al","email":"al@example.com","message":"` + strings.Repeat("x", 2<<10) + `"}`
		rec, _ := postJSON(r, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestToAppErrorClassification(t *testing.T) {
	r := newTestRouter(t, &fakeBackend{sendErr: &email.APIError{StatusCode: http.StatusUnauthorized, Err: errors.New("invalid api key")}}, time.Second, "production")

	rec, resp := postJSON(r, validBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, v1.MsgAuthError, resp.Message)
}

func TestSwaggerServedWithoutStrictCSP(t *testing.T) {
	r := newTestRouter(t, &fakeBackend{}, time.Second, "development")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestRouterMeta(t *testing.T) {
	r := newTestRouter(t, &fakeBackend{}, time.Second, "production")

	for _, tc := range []struct {
		path string
		code int
	}{
		{"/", http.StatusOK},
		{"/api/health", http.StatusOK},
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/swagger/index.html", http.StatusNotFound},
		{"/nope", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, bytes.NewReader(nil)))
		assert.Equal(t, tc.code, rec.Code, tc.path)
	}
}
