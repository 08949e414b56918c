// Package email renders contact messages and delivers them through one
// configured backend (SMTP relay or the Resend API).
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"
)

// ErrNotConfigured is returned when a backend lacks the credentials it needs.
var ErrNotConfigured = errors.New("email: backend credentials not configured")

// Message is a fully prepared outbound email. It is built per submission and never retained.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Backend delivers one message. Implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Ready reports ErrNotConfigured (wrapped) when required credentials are missing.
	Ready() error
	Send(ctx context.Context, msg *Message) error
}

// ContactData holds the validated fields of a contact submission.
type ContactData struct {
	SenderName  string
	SenderEmail string
	Message     string
}

// Addresses are the fixed owner addresses used for every contact message.
type Addresses struct {
	From string
	To   string
}

type contactTemplateData struct {
	SenderName  template.HTML
	SenderEmail template.HTML
	Message     template.HTML
}

// Values are pre-escaped with EscapeHTML and passed as template.HTML so that only
// the five markup characters are rewritten.
var contactEmailTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Contact Form Submission</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #0066cc; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background: #f9f9f9; }
        .field { margin-bottom: 15px; }
        .label { font-weight: bold; color: #555; }
        .message-box { background: white; padding: 15px; border-left: 4px solid #0066cc; margin-top: 10px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>New Contact Form Submission</h1>
        </div>
        <div class="content">
            <div class="field">
                <div class="label">Name:</div>
                <div>{{.SenderName}}</div>
            </div>
            <div class="field">
                <div class="label">Email:</div>
                <div>{{.SenderEmail}}</div>
            </div>
            <div class="field">
                <div class="label">Message:</div>
                <div class="message-box">{{.Message}}</div>
            </div>
        </div>
    </div>
</body>
</html>`))

// EscapeHTML rewrites & < > " ' to their entity forms.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// newlineToBreak converts CRLF, CR and LF line endings to <br>.
var newlineToBreak = strings.NewReplacer("\r\n", "<br>", "\r", "<br>", "\n", "<br>")

// BuildContactMessage renders the owner notification for a submission.
// The HTML body is escaped; the text body carries the raw values.
func BuildContactMessage(addr Addresses, data ContactData) (*Message, error) {
	var body bytes.Buffer
	err := contactEmailTemplate.Execute(&body, contactTemplateData{
		SenderName:  template.HTML(EscapeHTML(data.SenderName)),
		SenderEmail: template.HTML(EscapeHTML(data.SenderEmail)),
		Message:     template.HTML(newlineToBreak.Replace(EscapeHTML(data.Message))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute email template: %w", err)
	}

	text := fmt.Sprintf("New contact form submission\n\nName: %s\nEmail: %s\n\nMessage:\n%s\n",
		data.SenderName, data.SenderEmail, data.Message)

	to := addr.To
	if to == "" {
		to = addr.From
	}

	return &Message{
		From:    addr.From,
		To:      []string{to},
		ReplyTo: data.SenderEmail,
		Subject: fmt.Sprintf("New contact form submission from %s", data.SenderName),
		HTML:    body.String(),
		Text:    text,
	}, nil
}
