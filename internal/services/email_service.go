package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends plain notifications through SendGrid
type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewEmailService builds a SendGrid-backed sender
func NewEmailService(apiKey, fromEmail, fromName string) *EmailService {
	return &EmailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send implements Sender. A non-2xx response from SendGrid is an error.
func (s *EmailService) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email recipient is empty")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, body, plainToHTML(body))

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email to %s: %d", to, response.StatusCode)
	}
	return nil
}

// plainToHTML escapes the body and turns blank-line separated blocks into paragraphs
func plainToHTML(body string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(body), "\n\n") {
		lines := strings.Split(strings.TrimSpace(para), "\n")
		for i := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(lines[i]))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
