package controllers

import (
	"log/slog"
	"net/http"

	"conferencecentral/internal/delivery/http/helpers"
	"conferencecentral/internal/domain"
)

type WishlistController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewWishlistController(logger *slog.Logger, svc domain.RegistrationService) *WishlistController {
	return &WishlistController{
		Logger:  logger,
		Service: svc,
	}
}

// ListWishlist godoc
// @Summary List the sessions on the caller's wishlist
// @Tags wishlist
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.SessionListSuccessResponse "data contains the sessions"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /wishlist [get]
func (c *WishlistController) ListWishlist(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	sessions, err := c.Service.SessionsInWishlist(r.Context(), caller)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newSessionResponses(sessions))
}

// AddToWishlist godoc
// @Summary Add a session to the caller's wishlist
// @Tags wishlist
// @Produce json
// @Security BearerAuth
// @Param sessionKey path string true "Session websafe key"
// @Success 201 {object} controllers.BoolSuccessResponse "data is true"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already on wishlist)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /wishlist/{sessionKey} [post]
func (c *WishlistController) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("sessionKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing sessionKey")
		return
	}
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	if err := c.Service.AddSessionToWishlist(r.Context(), caller, key); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, true)
}

// RemoveFromWishlist godoc
// @Summary Remove a session from the caller's wishlist
// @Description Fails with not_found when the session is not on the wishlist.
// @Tags wishlist
// @Produce json
// @Security BearerAuth
// @Param sessionKey path string true "Session websafe key"
// @Success 200 {object} controllers.BoolSuccessResponse "data is true"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /wishlist/{sessionKey} [delete]
func (c *WishlistController) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("sessionKey")
	if key == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing sessionKey")
		return
	}
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	if err := c.Service.RemoveSessionFromWishlist(r.Context(), caller, key); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, true)
}
