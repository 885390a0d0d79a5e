package domain

import "context"

// Session is owned by its Conference and references a Speaker by websafe key.
// swagger:model Session
type Session struct {
	Key           Key    `json:"-"`
	Name          string `json:"name"`
	Highlights    string `json:"highlights"`
	SpeakerKey    string `json:"speaker_key"`
	ConferenceKey string `json:"conference_key"`
	Duration      int    `json:"duration"`
	TypeOfSession string `json:"type_of_session"`
	// Date is YYYY-MM-DD and StartTime HH:MM so both order lexicographically.
	Date      string `json:"date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
}

// SessionInput carries the fields accepted on session creation.
type SessionInput struct {
	Name          string
	Highlights    string
	SpeakerKey    string
	Duration      int
	TypeOfSession string
	Date          string
	StartTime     string
}

// SessionUpdate is a partial update; only non-nil fields are applied.
type SessionUpdate struct {
	Name          *string
	Highlights    *string
	SpeakerKey    *string
	Duration      *int
	TypeOfSession *string
	Date          *string
	StartTime     *string
}

// SessionService defines session creation and the session queries.
type SessionService interface {
	CreateSession(ctx context.Context, caller Identity, conferenceKey string, in SessionInput) (*Session, error)
	UpdateSession(ctx context.Context, caller Identity, sessionKey string, upd SessionUpdate) (*Session, error)
	ConferenceSessions(ctx context.Context, conferenceKey string) ([]*Session, error)
	ConferenceSessionsByType(ctx context.Context, conferenceKey, typeOfSession string) ([]*Session, error)
	SessionsBySpeaker(ctx context.Context, speakerKey string) ([]*Session, error)
	UpcomingSessions(ctx context.Context) ([]*Session, error)
	SessionsNotOfTypeBefore(ctx context.Context, typeOfSession, startTime string) ([]*Session, error)
}
