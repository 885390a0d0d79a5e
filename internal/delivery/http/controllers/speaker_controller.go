package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"conferencecentral/internal/delivery/http/helpers"
	"conferencecentral/internal/domain"
)

// CreateSpeakerRequest is the request body for POST /speakers.
type CreateSpeakerRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// Validate implements Validator.
func (c CreateSpeakerRequest) Validate() []string {
	if strings.TrimSpace(c.Name) == "" {
		return []string{"name is required"}
	}
	return nil
}

// UpdateSpeakerRequest is the request body for PATCH /speakers/{speakerKey}.
type UpdateSpeakerRequest struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

// Validate implements Validator.
func (u UpdateSpeakerRequest) Validate() []string {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return []string{"name must not be empty"}
	}
	return nil
}

type SpeakerController struct {
	Logger  *slog.Logger
	Service domain.SpeakerService
}

func NewSpeakerController(logger *slog.Logger, svc domain.SpeakerService) *SpeakerController {
	return &SpeakerController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateSpeaker godoc
// @Summary Create a speaker
// @Tags speakers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateSpeakerRequest true "Speaker data"
// @Success 201 {object} controllers.SpeakerSuccessResponse "data contains the created speaker"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers [post]
func (c *SpeakerController) CreateSpeaker(w http.ResponseWriter, r *http.Request) {
	var req CreateSpeakerRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	speaker, err := c.Service.CreateSpeaker(r.Context(), domain.SpeakerInput{Name: req.Name, Bio: req.Bio})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, newSpeakerResponse(speaker))
}

// GetSpeaker godoc
// @Summary Get a speaker
// @Tags speakers
// @Produce json
// @Param speakerKey path string true "Speaker websafe key"
// @Success 200 {object} controllers.SpeakerSuccessResponse "data contains the speaker"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers/{speakerKey} [get]
func (c *SpeakerController) GetSpeaker(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("speakerKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing speakerKey")
		return
	}
	speaker, err := c.Service.GetSpeaker(r.Context(), key)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSpeakerResponse(speaker))
}

// UpdateSpeaker godoc
// @Summary Update a speaker
// @Tags speakers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param speakerKey path string true "Speaker websafe key"
// @Param body body UpdateSpeakerRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.SpeakerSuccessResponse "data contains the updated speaker"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers/{speakerKey} [patch]
func (c *SpeakerController) UpdateSpeaker(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("speakerKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing speakerKey")
		return
	}
	var req UpdateSpeakerRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	speaker, err := c.Service.UpdateSpeaker(r.Context(), key, domain.SpeakerUpdate{Name: req.Name, Bio: req.Bio})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSpeakerResponse(speaker))
}

// ListSpeakers godoc
// @Summary List all speakers
// @Tags speakers
// @Produce json
// @Success 200 {object} controllers.SpeakerListSuccessResponse "data contains the speakers ordered by name"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers [get]
func (c *SpeakerController) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	speakers, err := c.Service.ListSpeakers(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSpeakerResponses(speakers))
}

// BestSpeakers godoc
// @Summary List the speakers with the most sessions
// @Tags speakers
// @Produce json
// @Success 200 {object} controllers.SpeakerListSuccessResponse "data contains up to five speakers"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers/best [get]
func (c *SpeakerController) BestSpeakers(w http.ResponseWriter, r *http.Request) {
	speakers, err := c.Service.BestSpeakers(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSpeakerResponses(speakers))
}

// FeaturedSpeaker godoc
// @Summary Get the featured speaker announcement
// @Tags speakers
// @Produce json
// @Success 200 {object} controllers.StringSuccessResponse "data is the announcement or an empty string"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers/featured [get]
func (c *SpeakerController) FeaturedSpeaker(w http.ResponseWriter, r *http.Request) {
	text, err := c.Service.FeaturedSpeaker(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, text)
}
