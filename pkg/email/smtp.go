package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"golang.org/x/time/rate"
)

// TLS modes for SMTPConfig.TLSMode.
const (
	TLSModeStartTLS = "starttls"
	TLSModeImplicit = "implicit"
	TLSModeNone     = "none"
)

// ErrTransportBusy is returned when the send rate or connection cap cannot be
// satisfied before the context deadline.
var ErrTransportBusy = errors.New("smtp: transport busy")

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
	// Sender is the fixed From address; Ready fails without it.
	Sender string
	// AllowUnauthenticated permits a relay without credentials (local catchers).
	AllowUnauthenticated bool

	MaxConnections int // concurrent connections, default 5
	MaxMessages    int // messages per connection before it is recycled, default 100
	RateLimit      int // messages per RateWindow, default 5
	RateWindow     time.Duration
	CommandTimeout time.Duration
}

func (c SMTPConfig) withDefaults() SMTPConfig {
	if c.TLSMode == "" {
		c.TLSMode = TLSModeStartTLS
		if c.Port == 465 {
			c.TLSMode = TLSModeImplicit
		}
	}
	if c.Port == 0 {
		c.Port = 587
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = 100
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 5
	}
	if c.RateWindow <= 0 {
		c.RateWindow = 20 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultSMTPTimeout
	}
	return c
}

type pooledConn struct {
	client *gosmtp.Client
	sent   int
}

// SMTPBackend delivers through an SMTP relay over a small pool of reusable
// connections. Connections are dialed lazily on first use.
type SMTPBackend struct {
	cfg     SMTPConfig
	limiter *rate.Limiter
	slots   chan struct{}

	mu     sync.Mutex
	idle   []*pooledConn
	closed bool
}

var _ Backend = (*SMTPBackend)(nil)

// NewSMTPBackend creates the backend without dialing.
func NewSMTPBackend(cfg SMTPConfig) *SMTPBackend {
	cfg = cfg.withDefaults()
	return &SMTPBackend{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.RateWindow/time.Duration(cfg.RateLimit)), cfg.RateLimit),
		slots:   make(chan struct{}, cfg.MaxConnections),
	}
}

func (b *SMTPBackend) Name() string { return "smtp" }

func (b *SMTPBackend) Ready() error {
	if b.cfg.Host == "" {
		return fmt.Errorf("smtp: SMTP_HOST missing: %w", ErrNotConfigured)
	}
	if !b.cfg.AllowUnauthenticated && (b.cfg.Username == "" || b.cfg.Password == "") {
		return fmt.Errorf("smtp: SMTP_USERNAME/SMTP_PASSWORD missing: %w", ErrNotConfigured)
	}
	if b.cfg.Sender == "" {
		return fmt.Errorf("smtp: EMAIL_FROM missing: %w", ErrNotConfigured)
	}
	return nil
}

// Send implements Backend.
func (b *SMTPBackend) Send(ctx context.Context, msg *Message) error {
	if err := b.Ready(); err != nil {
		return err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportBusy, err)
	}

	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransportBusy, ctx.Err())
	}
	defer func() { <-b.slots }()

	raw, err := msg.Bytes(time.Now())
	if err != nil {
		return fmt.Errorf("smtp: failed to build message: %w", err)
	}

	pc, err := b.acquire()
	if err != nil {
		return err
	}
	if err := pc.client.SendMail(msg.From, msg.To, bytes.NewReader(raw)); err != nil {
		_ = pc.client.Close()
		return fmt.Errorf("smtp: send failed: %w", err)
	}
	pc.sent++
	b.release(pc)
	return nil
}

// Close quits every idle connection. Connections in use are closed when released.
func (b *SMTPBackend) Close() error {
	b.mu.Lock()
	idle := b.idle
	b.idle = nil
	b.closed = true
	b.mu.Unlock()

	var errs []error
	for _, pc := range idle {
		if err := pc.client.Quit(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *SMTPBackend) acquire() (*pooledConn, error) {
	for {
		b.mu.Lock()
		if len(b.idle) == 0 {
			b.mu.Unlock()
			break
		}
		pc := b.idle[len(b.idle)-1]
		b.idle = b.idle[:len(b.idle)-1]
		b.mu.Unlock()

		if err := pc.client.Noop(); err == nil {
			return pc, nil
		}
		_ = pc.client.Close()
	}

	client, err := b.dial()
	if err != nil {
		return nil, err
	}
	return &pooledConn{client: client}, nil
}

func (b *SMTPBackend) release(pc *pooledConn) {
	b.mu.Lock()
	if !b.closed && pc.sent < b.cfg.MaxMessages {
		b.idle = append(b.idle, pc)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	_ = pc.client.Quit()
}

func (b *SMTPBackend) dial() (*gosmtp.Client, error) {
	addr := net.JoinHostPort(b.cfg.Host, strconv.Itoa(b.cfg.Port))
	tlsConfig := &tls.Config{ServerName: b.cfg.Host, MinVersion: tls.VersionTLS12}

	var (
		client *gosmtp.Client
		err    error
	)
	switch b.cfg.TLSMode {
	case TLSModeImplicit:
		client, err = gosmtp.DialTLS(addr, tlsConfig)
	case TLSModeNone:
		client, err = gosmtp.Dial(addr)
	default:
		client, err = gosmtp.DialStartTLS(addr, tlsConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", addr, err)
	}
	client.CommandTimeout = b.cfg.CommandTimeout
	client.SubmissionTimeout = b.cfg.CommandTimeout

	if b.cfg.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", b.cfg.Username, b.cfg.Password)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp: auth: %w", err)
		}
	}
	return client, nil
}
