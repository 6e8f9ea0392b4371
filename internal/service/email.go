package service

import (
	"context"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/leadio/leadio-server/internal/model"
)

// ReportEmail is the payload for a "your report is ready" notification.
type ReportEmail struct {
	To             string
	ReportTitle    string
	WebsiteURL     string
	ReportURL      string
	UserName       string
	ExpirationDays int
}

// ReminderEmail is the payload for an expiration reminder covering one or
// more reports owned by the same user.
type ReminderEmail struct {
	To              string
	Reports         []*model.Report
	DaysUntilExpiry int
	UserName        string
}

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
}

func NewEmailService(apiKey, fromEmail string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
	}
}

// Configured reports whether emails will actually be dispatched.
func (s *EmailService) Configured() bool {
	return s.client != nil || s.isDev
}

// SendReport emails a finished report link to the user. An unconfigured
// provider is a logged skip, not an error: email must never block the
// report lifecycle.
func (s *EmailService) SendReport(ctx context.Context, email ReportEmail) error {
	if email.UserName == "" {
		email.UserName = "there"
	}
	subject, body := reportEmailTemplate(email)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "seo_report", "to", email.To, "subject", subject, "url", email.ReportURL)
		return nil
	}

	if s.client == nil {
		slog.Warn("email service not configured, skipping report email", "to", email.To)
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email.To},
		Subject: subject,
		Html:    body,
		Tags: []resend.Tag{
			{Name: "type", Value: "seo-report"},
		},
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", "seo_report", "to", email.To)
	}
	return err
}

// SendExpirationReminder emails a list of soon-to-expire reports. Same
// non-throwing-when-unconfigured contract as SendReport.
func (s *EmailService) SendExpirationReminder(ctx context.Context, reminder ReminderEmail) error {
	if reminder.UserName == "" {
		reminder.UserName = "there"
	}
	subject, body := reminderEmailTemplate(reminder)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "expiration_reminder", "to", reminder.To, "subject", subject, "reports", len(reminder.Reports))
		return nil
	}

	if s.client == nil {
		slog.Warn("email service not configured, skipping expiration reminder", "to", reminder.To)
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{reminder.To},
		Subject: subject,
		Html:    body,
		Tags: []resend.Tag{
			{Name: "type", Value: "expiration-reminder"},
		},
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", "expiration_reminder", "to", reminder.To)
	}
	return err
}
