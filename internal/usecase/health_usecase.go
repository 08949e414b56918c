package usecase

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
)

const healthCheckTimeout = 2 * time.Second

type HealthUsecase interface {
	// Check runs every readiness check and reports "ok" or the failure per check.
	Check(ctx context.Context) map[string]string
	// Handler serves /live and /ready.
	Handler() http.Handler
}

// HealthDeps lists the dependencies probed for readiness. Nil entries are skipped.
type HealthDeps struct {
	Mailer Mailer
	// Redis pings the shared rate-limit store when one is configured.
	Redis func() error
}

type healthUsecase struct {
	handler healthcheck.Handler
	checks  map[string]healthcheck.Check
}

func NewHealthUsecase(deps HealthDeps) HealthUsecase {
	u := &healthUsecase{
		handler: healthcheck.NewHandler(),
		checks:  make(map[string]healthcheck.Check),
	}

	u.handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))

	if deps.Mailer != nil {
		u.addReadiness("mail", deps.Mailer.Ready)
	}
	if deps.Redis != nil {
		u.addReadiness("redis", healthcheck.Timeout(deps.Redis, healthCheckTimeout))
	}
	return u
}

func (u *healthUsecase) addReadiness(name string, check healthcheck.Check) {
	u.checks[name] = check
	u.handler.AddReadinessCheck(name, check)
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	results := map[string]string{"status": "ok"}
	for name, check := range u.checks {
		if err := ctx.Err(); err != nil {
			results[name] = err.Error()
			results["status"] = "degraded"
			continue
		}
		if err := check(); err != nil {
			results[name] = err.Error()
			results["status"] = "degraded"
			continue
		}
		results[name] = "ok"
	}
	return results
}

func (u *healthUsecase) Handler() http.Handler {
	return u.handler
}
