package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"contact-relay-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheck(t *testing.T) {
	t.Run("all dependencies ready", func(t *testing.T) {
		mailer := new(MockMailer)
		mailer.On("Ready").Return(nil)

		h := usecase.NewHealthUsecase(usecase.HealthDeps{Mailer: mailer})
		got := h.Check(context.Background())

		assert.Equal(t, "ok", got["status"])
		assert.Equal(t, "ok", got["mail"])
		assert.NotContains(t, got, "redis")
	})

	t.Run("failing dependency degrades status", func(t *testing.T) {
		mailer := new(MockMailer)
		mailer.On("Ready").Return(nil)

		h := usecase.NewHealthUsecase(usecase.HealthDeps{
			Mailer: mailer,
			Redis:  func() error { return errors.New("connection refused") },
		})
		got := h.Check(context.Background())

		assert.Equal(t, "degraded", got["status"])
		assert.Equal(t, "connection refused", got["redis"])
	})
}

func TestHealthHandler(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("Ready").Return(errors.New("missing credentials"))
	h := usecase.NewHealthUsecase(usecase.HealthDeps{Mailer: mailer})

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
