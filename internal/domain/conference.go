package domain

import (
	"context"
	"time"
)

// Defaults applied to omitted conference fields on creation.
var (
	DefaultConferenceCity   = "Default City"
	DefaultConferenceTopics = []string{"Default", "Topic"}
)

// Conference is owned by the organizer's Profile.
// swagger:model Conference
type Conference struct {
	Key             Key       `json:"-"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	OrganizerUserID string    `json:"organizer_user_id"`
	Topics          []string  `json:"topics"`
	City            string    `json:"city"`
	StartDate       string    `json:"start_date,omitempty"`
	EndDate         string    `json:"end_date,omitempty"`
	Month           int       `json:"month"`
	MaxAttendees    int       `json:"max_attendees"`
	SeatsAvailable  int       `json:"seats_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ConferenceInput carries the fields accepted on creation. Nil or empty
// fields take their defaults.
type ConferenceInput struct {
	Name         string
	Description  string
	Topics       []string
	City         string
	StartDate    string
	EndDate      string
	MaxAttendees *int
}

// ConferenceUpdate is a partial update; only non-nil fields are applied.
type ConferenceUpdate struct {
	Name         *string
	Description  *string
	Topics       []string
	City         *string
	StartDate    *string
	EndDate      *string
	MaxAttendees *int
}

// ConferenceWithOrganizer pairs a conference with its organizer's display name.
type ConferenceWithOrganizer struct {
	Conference           *Conference
	OrganizerDisplayName string
}

// ConferenceService defines conference creation, lookup and querying.
type ConferenceService interface {
	CreateConference(ctx context.Context, caller Identity, in ConferenceInput) (*ConferenceWithOrganizer, error)
	GetConference(ctx context.Context, websafeKey string) (*ConferenceWithOrganizer, error)
	UpdateConference(ctx context.Context, caller Identity, websafeKey string, upd ConferenceUpdate) (*ConferenceWithOrganizer, error)
	ConferencesCreated(ctx context.Context, caller Identity) ([]*ConferenceWithOrganizer, error)
	QueryConferences(ctx context.Context, filters []FilterSpec) ([]*ConferenceWithOrganizer, error)
}

// AnnouncementService maintains the "nearly sold out" announcement.
type AnnouncementService interface {
	Refresh(ctx context.Context) (string, error)
	Get(ctx context.Context) (string, error)
}

// RegistrationService links profiles to conferences and sessions.
type RegistrationService interface {
	RegisterForConference(ctx context.Context, caller Identity, websafeKey string) error
	// UnregisterFromConference reports false without error when the caller
	// was not registered.
	UnregisterFromConference(ctx context.Context, caller Identity, websafeKey string) (bool, error)
	AddSessionToWishlist(ctx context.Context, caller Identity, websafeKey string) error
	// RemoveSessionFromWishlist fails with ErrNotFoundInWishlist when the
	// session is not on the wishlist.
	RemoveSessionFromWishlist(ctx context.Context, caller Identity, websafeKey string) error
	ConferencesToAttend(ctx context.Context, caller Identity) ([]*ConferenceWithOrganizer, error)
	SessionsInWishlist(ctx context.Context, caller Identity) ([]*Session, error)
}
