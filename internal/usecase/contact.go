package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"contact-relay-backend/internal/domain"
	"contact-relay-backend/internal/metrics"
	"contact-relay-backend/pkg/email"
	"contact-relay-backend/pkg/ratelimit"
	"contact-relay-backend/pkg/security"
	"contact-relay-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// MaxFieldLength caps any single input field before field-specific checks run.
const MaxFieldLength = 5000

// Mailer is the delivery capability the contact usecase needs.
type Mailer interface {
	Ready() error
	Send(ctx context.Context, msg *email.Message) error
}

type ContactDeps struct {
	Mailer    Mailer
	Limiter   ratelimit.Limiter
	Validate  *validator.Validate
	Addresses email.Addresses
	Logger    *zap.Logger
	Security  *security.SecurityLogger
	Metrics   *metrics.Metrics
}

type contactUsecase struct {
	mailer    Mailer
	limiter   ratelimit.Limiter
	validate  *validator.Validate
	addresses email.Addresses
	logger    *zap.Logger
	security  *security.SecurityLogger
	metrics   *metrics.Metrics
}

// NewContactUsecase creates a new contact usecase
func NewContactUsecase(deps ContactDeps) domain.ContactUsecase {
	if deps.Validate == nil {
		deps.Validate = validation.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &contactUsecase{
		mailer:    deps.Mailer,
		limiter:   deps.Limiter,
		validate:  deps.Validate,
		addresses: deps.Addresses,
		logger:    deps.Logger.Named("contact"),
		security:  deps.Security,
		metrics:   deps.Metrics,
	}
}

// Submit runs validation, the configuration check, the rate limit and the send, in that order.
func (uc *contactUsecase) Submit(ctx context.Context, clientID string, req *domain.ContactRequest) error {
	requestID, _ := ctx.Value(domain.KeyRequestID).(string)

	submission, err := Validate(uc.validate, req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			uc.security.LogValidationFailed(ctx, clientID, requestID, verr.Field, verr.Reason)
		}
		uc.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		return err
	}

	// Credentials are checked before the submission consumes quota or a message is built.
	if err := uc.mailer.Ready(); err != nil {
		backend := ""
		var derr *email.DispatchError
		if errors.As(err, &derr) {
			backend = derr.Backend
		}
		uc.security.LogConfigMissing(ctx, backend, requestID, err)
		uc.metrics.ObserveSubmission(metrics.OutcomeFailed)
		return err
	}

	if !uc.limiter.Allow(ctx, clientID) {
		uc.security.LogRateLimitTriggered(ctx, clientID, requestID, "/api/send-email")
		uc.metrics.ObserveSubmission(metrics.OutcomeRateLimited)
		return domain.ErrRateLimited
	}

	msg, err := email.BuildContactMessage(uc.addresses, email.ContactData{
		SenderName:  submission.Name,
		SenderEmail: submission.Email,
		Message:     submission.Message,
	})
	if err != nil {
		uc.metrics.ObserveSubmission(metrics.OutcomeFailed)
		return fmt.Errorf("failed to build contact email: %w", err)
	}

	if err := uc.mailer.Send(ctx, msg); err != nil {
		uc.security.LogDispatchFailed(ctx, submission.Email, clientID, requestID, email.Classify(err).String(), err)
		uc.metrics.ObserveSubmission(metrics.OutcomeFailed)
		return err
	}

	uc.logger.Info("contact message relayed",
		zap.String("request_id", requestID),
		zap.String("reply_to", security.MaskEmail(submission.Email)),
	)
	uc.metrics.ObserveSubmission(metrics.OutcomeSent)
	return nil
}

// Sanitize normalizes one raw input value: non-strings become "", surrounding
// whitespace is trimmed and the result is cut to MaxFieldLength characters.
func Sanitize(raw any) string {
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxFieldLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxFieldLength]))
}

// ValidateEmail reports whether s is a syntactically plausible address of at most 254 characters.
func ValidateEmail(s string) bool {
	return validation.IsEmail(s)
}

type fieldCheck struct {
	field string
	value string
	tags  []string
}

// Validate sanitizes req and checks each field in order, returning the first
// failure as a *domain.ValidationError.
func Validate(v *validator.Validate, req *domain.ContactRequest) (domain.ContactSubmission, error) {
	if req == nil {
		req = &domain.ContactRequest{}
	}
	name := Sanitize(req.Name)
	emailAddr := strings.ToLower(Sanitize(req.Email))
	message := Sanitize(req.Message)

	checks := []fieldCheck{
		{field: "name", value: name, tags: []string{"required", "min=2", "max=100"}},
		{field: "email", value: emailAddr, tags: []string{"required", "contact_email"}},
		{field: "message", value: message, tags: []string{"required", "min=10", "max=5000"}},
	}
	for _, c := range checks {
		for _, tag := range c.tags {
			if err := v.Var(c.value, tag); err != nil {
				return domain.ContactSubmission{}, &domain.ValidationError{
					Field:  c.field,
					Reason: validation.FormatFieldError(c.field, err),
				}
			}
		}
	}

	return domain.ContactSubmission{Name: name, Email: emailAddr, Message: message}, nil
}
