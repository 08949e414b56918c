package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultSMTPTimeout = 30 * time.Second
	DefaultAPITimeout  = 60 * time.Second
)

// Kind classifies a delivery failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindAuth
	KindTransport
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// DispatchError is the only error type returned by Dispatcher.Send.
type DispatchError struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("email dispatch via %s failed (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// ErrDispatchTimeout marks a send abandoned after the dispatcher deadline.
var ErrDispatchTimeout = errors.New("email: dispatch timed out")

// Dispatcher sends through a single backend with a hard wall-clock timeout.
// It never retries.
type Dispatcher struct {
	backend  Backend
	timeout  time.Duration
	logger   *zap.Logger
	duration *prometheus.HistogramVec
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for failed sends.
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDurationHistogram records send latency labelled by backend and outcome kind.
func WithDurationHistogram(h *prometheus.HistogramVec) DispatcherOption {
	return func(d *Dispatcher) {
		d.duration = h
	}
}

// NewDispatcher wraps backend. A non-positive timeout selects DefaultSMTPTimeout.
func NewDispatcher(backend Backend, timeout time.Duration, opts ...DispatcherOption) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}
	d := &Dispatcher{
		backend: backend,
		timeout: timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ready reports a configuration DispatchError when credentials are missing.
func (d *Dispatcher) Ready() error {
	if err := d.backend.Ready(); err != nil {
		return &DispatchError{Kind: KindConfiguration, Backend: d.backend.Name(), Err: err}
	}
	return nil
}

// Send delivers msg, racing the backend against the dispatcher timeout.
// When the timeout wins the backend call is left to finish on its own.
// Cancellation of ctx (a client disconnect) does not abort a send in flight.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) error {
	if err := d.Ready(); err != nil {
		return err
	}

	start := time.Now()
	err := d.send(ctx, msg)
	d.observe(start, err)
	if err == nil {
		return nil
	}

	derr := &DispatchError{Kind: Classify(err), Backend: d.backend.Name(), Err: err}
	d.logger.Error("email dispatch failed",
		zap.String("backend", derr.Backend),
		zap.String("kind", derr.Kind.String()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return derr
}

func (d *Dispatcher) send(ctx context.Context, msg *Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.backend.Send(ctx, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w after %s", ErrDispatchTimeout, d.timeout)
	}
}

func (d *Dispatcher) observe(start time.Time, err error) {
	if d.duration == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = Classify(err).String()
	}
	d.duration.WithLabelValues(d.backend.Name(), outcome).Observe(time.Since(start).Seconds())
}

// Classify maps a backend error onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var derr *DispatchError
	if errors.As(err, &derr) {
		return derr.Kind
	}

	if errors.Is(err, ErrNotConfigured) {
		return KindConfiguration
	}
	if errors.Is(err, ErrDispatchTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, ErrTransportBusy) {
		return KindTransport
	}

	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) {
		switch smtpErr.Code {
		case 530, 534, 535, 538:
			return KindAuth
		case 421:
			return KindTransport
		}
		return KindUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return KindAuth
		case apiErr.StatusCode >= 500:
			return KindTransport
		}
		return KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindTransport
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransport
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"), strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "authentication"):
		return KindAuth
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connection reset"):
		return KindTransport
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return KindTimeout
	}
	return KindUnknown
}
