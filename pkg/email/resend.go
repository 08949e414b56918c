package email

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds Resend API configuration.
type ResendConfig struct {
	APIKey string
	// Sender is the fixed From address; Ready fails without it.
	Sender string
	// BaseURL overrides the API endpoint; it must end with a slash.
	BaseURL string
}

// APIError is a non-2xx answer from a provider HTTP API.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider responded %d: %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ResendBackend delivers through the Resend transactional email API.
type ResendBackend struct {
	client *resend.Client
	apiKey string
	sender string
}

var _ Backend = (*ResendBackend)(nil)

// NewResendBackend builds the API client. It does not contact the API.
func NewResendBackend(cfg ResendConfig) (*ResendBackend, error) {
	httpClient := &http.Client{
		Timeout:   DefaultAPITimeout,
		Transport: statusTransport{base: http.DefaultTransport},
	}
	client := resend.NewCustomClient(httpClient, cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendBackend{client: client, apiKey: cfg.APIKey, sender: cfg.Sender}, nil
}

func (b *ResendBackend) Name() string { return "resend" }

func (b *ResendBackend) Ready() error {
	if b.apiKey == "" {
		return fmt.Errorf("resend: RESEND_API_KEY missing: %w", ErrNotConfigured)
	}
	if b.sender == "" {
		return fmt.Errorf("resend: EMAIL_FROM missing: %w", ErrNotConfigured)
	}
	return nil
}

// Send implements Backend.
func (b *ResendBackend) Send(ctx context.Context, msg *Message) error {
	if err := b.Ready(); err != nil {
		return err
	}

	var status int
	ctx = context.WithValue(ctx, statusKey{}, &status)

	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}

	_, err := b.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		if status >= http.StatusMultipleChoices {
			return &APIError{StatusCode: status, Err: err}
		}
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

type statusKey struct{}

// statusTransport records the HTTP status into the *int carried by the request
// context, so API errors can be classified by status instead of message text.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if p, ok := req.Context().Value(statusKey{}).(*int); ok {
		*p = resp.StatusCode
	}
	return resp, nil
}
