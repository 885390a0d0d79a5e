package domain

import "context"

// EmailMessage is a rendered email ready for delivery. Either body may be
// empty.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered emails.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// ConferenceConfirmationEmailData holds data for the conference-created email.
type ConferenceConfirmationEmailData struct {
	Email          string
	ConferenceInfo string
}

// Payload returns the queue payload for the confirmation email task.
func (d ConferenceConfirmationEmailData) Payload() map[string]string {
	return map[string]string{"email": d.Email, "conference_info": d.ConferenceInfo}
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendConferenceConfirmation(ctx context.Context, data *ConferenceConfirmationEmailData) error
}
