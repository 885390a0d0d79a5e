package controllers

import (
	"net/http"

	"conferencecentral/internal/delivery/http/helpers"
	"conferencecentral/internal/delivery/http/middleware"
	"conferencecentral/internal/domain"
)

// ConferenceResponse is the API view of a conference.
// swagger:model ConferenceResponse
type ConferenceResponse struct {
	WebsafeKey           string   `json:"websafe_key"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	OrganizerDisplayName string   `json:"organizer_display_name"`
	Topics               []string `json:"topics"`
	City                 string   `json:"city"`
	StartDate            string   `json:"start_date,omitempty"`
	EndDate              string   `json:"end_date,omitempty"`
	Month                int      `json:"month"`
	MaxAttendees         int      `json:"max_attendees"`
	SeatsAvailable       int      `json:"seats_available"`
}

func newConferenceResponse(cw *domain.ConferenceWithOrganizer) ConferenceResponse {
	c := cw.Conference
	topics := c.Topics
	if topics == nil {
		topics = []string{}
	}
	return ConferenceResponse{
		WebsafeKey:           c.Key.Encode(),
		Name:                 c.Name,
		Description:          c.Description,
		OrganizerDisplayName: cw.OrganizerDisplayName,
		Topics:               topics,
		City:                 c.City,
		StartDate:            c.StartDate,
		EndDate:              c.EndDate,
		Month:                c.Month,
		MaxAttendees:         c.MaxAttendees,
		SeatsAvailable:       c.SeatsAvailable,
	}
}

func newConferenceResponses(list []*domain.ConferenceWithOrganizer) []ConferenceResponse {
	out := make([]ConferenceResponse, 0, len(list))
	for _, cw := range list {
		out = append(out, newConferenceResponse(cw))
	}
	return out
}

// SessionResponse is the API view of a session.
// swagger:model SessionResponse
type SessionResponse struct {
	WebsafeKey    string `json:"websafe_key"`
	Name          string `json:"name"`
	Highlights    string `json:"highlights"`
	SpeakerKey    string `json:"speaker_key"`
	ConferenceKey string `json:"conference_key"`
	Duration      int    `json:"duration"`
	TypeOfSession string `json:"type_of_session"`
	Date          string `json:"date,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
}

func newSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		WebsafeKey:    s.Key.Encode(),
		Name:          s.Name,
		Highlights:    s.Highlights,
		SpeakerKey:    s.SpeakerKey,
		ConferenceKey: s.ConferenceKey,
		Duration:      s.Duration,
		TypeOfSession: s.TypeOfSession,
		Date:          s.Date,
		StartTime:     s.StartTime,
	}
}

func newSessionResponses(list []*domain.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, newSessionResponse(s))
	}
	return out
}

// SpeakerResponse is the API view of a speaker.
// swagger:model SpeakerResponse
type SpeakerResponse struct {
	WebsafeKey    string   `json:"websafe_key"`
	Name          string   `json:"name"`
	Bio           string   `json:"bio"`
	Sessions      []string `json:"sessions"`
	SessionsCount int      `json:"sessions_count"`
}

func newSpeakerResponse(s *domain.Speaker) SpeakerResponse {
	sessions := s.Sessions
	if sessions == nil {
		sessions = []string{}
	}
	return SpeakerResponse{
		WebsafeKey:    s.Key.Encode(),
		Name:          s.Name,
		Bio:           s.Bio,
		Sessions:      sessions,
		SessionsCount: s.SessionsCount,
	}
}

func newSpeakerResponses(list []*domain.Speaker) []SpeakerResponse {
	out := make([]SpeakerResponse, 0, len(list))
	for _, s := range list {
		out = append(out, newSpeakerResponse(s))
	}
	return out
}

// Success envelopes referenced by the swagger annotations.
type (
	ConferenceSuccessResponse struct {
		Data  ConferenceResponse `json:"data"`
		Error *helpers.APIError  `json:"error"`
	}
	ConferenceListSuccessResponse struct {
		Data  []ConferenceResponse `json:"data"`
		Error *helpers.APIError    `json:"error"`
	}
	SessionSuccessResponse struct {
		Data  SessionResponse   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	SessionListSuccessResponse struct {
		Data  []SessionResponse `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	SpeakerSuccessResponse struct {
		Data  SpeakerResponse   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	SpeakerListSuccessResponse struct {
		Data  []SpeakerResponse `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	ProfileSuccessResponse struct {
		Data  *domain.Profile   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	BoolSuccessResponse struct {
		Data  bool              `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	StringSuccessResponse struct {
		Data  string            `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
)

// callerFromRequest returns the authenticated caller or writes a 401.
func callerFromRequest(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return domain.Identity{}, false
	}
	return caller, true
}
