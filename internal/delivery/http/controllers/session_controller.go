package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"conferencecentral/internal/delivery/http/helpers"
	"conferencecentral/internal/domain"
)

// CreateSessionRequest is the request body for POST /conferences/{conferenceKey}/sessions.
// Date is YYYY-MM-DD and start_time is HH:MM (24h).
type CreateSessionRequest struct {
	Name          string `json:"name"`
	Highlights    string `json:"highlights"`
	SpeakerKey    string `json:"speaker_key"`
	Duration      int    `json:"duration"`
	TypeOfSession string `json:"type_of_session"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
}

// Validate implements Validator.
func (c CreateSessionRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(c.SpeakerKey) == "" {
		errs = append(errs, "speaker_key is required")
	}
	if c.Duration < 0 {
		errs = append(errs, "duration must not be negative")
	}
	return errs
}

// UpdateSessionRequest is the request body for PATCH /sessions/{sessionKey}.
type UpdateSessionRequest struct {
	Name          *string `json:"name"`
	Highlights    *string `json:"highlights"`
	SpeakerKey    *string `json:"speaker_key"`
	Duration      *int    `json:"duration"`
	TypeOfSession *string `json:"type_of_session"`
	Date          *string `json:"date"`
	StartTime     *string `json:"start_time"`
}

// Validate implements Validator.
func (u UpdateSessionRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if u.Duration != nil && *u.Duration < 0 {
		errs = append(errs, "duration must not be negative")
	}
	return errs
}

// SessionsNotOfTypeRequest is the request body for POST /sessions/not-like.
type SessionsNotOfTypeRequest struct {
	TypeOfSession string `json:"type_of_session"`
	StartTime     string `json:"start_time"`
}

// Validate implements Validator.
func (s SessionsNotOfTypeRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.TypeOfSession) == "" {
		errs = append(errs, "type_of_session is required")
	}
	if strings.TrimSpace(s.StartTime) == "" {
		errs = append(errs, "start_time is required")
	}
	return errs
}

type SessionController struct {
	Logger  *slog.Logger
	Service domain.SessionService
}

func NewSessionController(logger *slog.Logger, svc domain.SessionService) *SessionController {
	return &SessionController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateSession godoc
// @Summary Create a session in a conference
// @Description Only the conference organizer may add sessions. The speaker must exist. Queues a featured speaker check.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conferenceKey path string true "Conference websafe key"
// @Param body body CreateSessionRequest true "Session data"
// @Success 201 {object} controllers.SessionSuccessResponse "data contains the created session"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceKey}/sessions [post]
func (c *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("conferenceKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing conferenceKey")
		return
	}
	var req CreateSessionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	session, err := c.Service.CreateSession(r.Context(), caller, key, domain.SessionInput{
		Name:          req.Name,
		Highlights:    req.Highlights,
		SpeakerKey:    req.SpeakerKey,
		Duration:      req.Duration,
		TypeOfSession: req.TypeOfSession,
		Date:          req.Date,
		StartTime:     req.StartTime,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, newSessionResponse(session))
}

// UpdateSession godoc
// @Summary Update a session
// @Description Partial update; only the organizer of the owning conference may update.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionKey path string true "Session websafe key"
// @Param body body UpdateSessionRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.SessionSuccessResponse "data contains the updated session"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /sessions/{sessionKey} [patch]
func (c *SessionController) UpdateSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("sessionKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing sessionKey")
		return
	}
	var req UpdateSessionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	session, err := c.Service.UpdateSession(r.Context(), caller, key, domain.SessionUpdate{
		Name:          req.Name,
		Highlights:    req.Highlights,
		SpeakerKey:    req.SpeakerKey,
		Duration:      req.Duration,
		TypeOfSession: req.TypeOfSession,
		Date:          req.Date,
		StartTime:     req.StartTime,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSessionResponse(session))
}

// ConferenceSessions godoc
// @Summary List the sessions of a conference
// @Tags sessions
// @Produce json
// @Param conferenceKey path string true "Conference websafe key"
// @Success 200 {object} controllers.SessionListSuccessResponse "data contains the sessions"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceKey}/sessions [get]
func (c *SessionController) ConferenceSessions(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("conferenceKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing conferenceKey")
		return
	}
	sessions, err := c.Service.ConferenceSessions(r.Context(), key)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSessionResponses(sessions))
}

// ConferenceSessionsByType godoc
// @Summary List the sessions of a conference with the given type
// @Tags sessions
// @Produce json
// @Param conferenceKey path string true "Conference websafe key"
// @Param typeOfSession path string true "Session type, e.g. workshop"
// @Success 200 {object} controllers.SessionListSuccessResponse "data contains the sessions"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceKey}/sessions/type/{typeOfSession} [get]
func (c *SessionController) ConferenceSessionsByType(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("conferenceKey")
	typ := r.PathValue("typeOfSession")
	if key == "" || typ == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing conferenceKey or typeOfSession")
		return
	}
	sessions, err := c.Service.ConferenceSessionsByType(r.Context(), key, typ)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSessionResponses(sessions))
}

// SessionsBySpeaker godoc
// @Summary List the sessions given by a speaker
// @Tags speakers
// @Produce json
// @Param speakerKey path string true "Speaker websafe key"
// @Success 200 {object} controllers.SessionListSuccessResponse "data contains the sessions"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers/{speakerKey}/sessions [get]
func (c *SessionController) SessionsBySpeaker(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("speakerKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing speakerKey")
		return
	}
	sessions, err := c.Service.SessionsBySpeaker(r.Context(), key)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSessionResponses(sessions))
}

// UpcomingSessions godoc
// @Summary List the next sessions
// @Description Sessions dated today or later, earliest first, at most five.
// @Tags sessions
// @Produce json
// @Success 200 {object} controllers.SessionListSuccessResponse "data contains the sessions"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /sessions/upcoming [get]
func (c *SessionController) UpcomingSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := c.Service.UpcomingSessions(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSessionResponses(sessions))
}

// SessionsNotOfTypeBefore godoc
// @Summary List sessions of another type starting no later than a time
// @Description Returns sessions whose type differs from type_of_session and whose start_time is at or before start_time.
// @Tags sessions
// @Accept json
// @Produce json
// @Param body body SessionsNotOfTypeRequest true "Excluded type and latest start time"
// @Success 200 {object} controllers.SessionListSuccessResponse "data contains the sessions"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /sessions/not-like [post]
func (c *SessionController) SessionsNotOfTypeBefore(w http.ResponseWriter, r *http.Request) {
	var req SessionsNotOfTypeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	sessions, err := c.Service.SessionsNotOfTypeBefore(r.Context(), req.TypeOfSession, req.StartTime)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSessionResponses(sessions))
}
