package services

import (
	"context"
	"fmt"
	"log/slog"

	"conferencecentral/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendConferenceConfirmation sends the "conference_created" email.
func (s *emailService) SendConferenceConfirmation(ctx context.Context, data *domain.ConferenceConfirmationEmailData) error {
	if data == nil {
		return fmt.Errorf("conference confirmation data is nil")
	}
	if data.Email == "" {
		return fmt.Errorf("%w: recipient email is required", domain.ErrInvalidInput)
	}
	subject, htmlBody, textBody, err := s.renderer.Render("conference_created", data)
	if err != nil {
		return fmt.Errorf("failed to render conference_created template: %w", err)
	}
	msg := domain.EmailMessage{To: data.Email, Subject: subject, HTML: htmlBody, Text: textBody}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send conference confirmation email: %w", err)
	}
	s.logger.InfoContext(ctx, "conference confirmation email sent", "to", data.Email)
	return nil
}

// NewConfirmationEmailHandler adapts the email service to send_confirmation_email tasks.
func NewConfirmationEmailHandler(svc domain.EmailService) func(ctx context.Context, payload map[string]string) error {
	return func(ctx context.Context, payload map[string]string) error {
		return svc.SendConferenceConfirmation(ctx, &domain.ConferenceConfirmationEmailData{
			Email:          payload["email"],
			ConferenceInfo: payload["conference_info"],
		})
	}
}
