package http

import (
	"net/http"

	"conferencecentral/internal/delivery/http/controllers"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Profile    *controllers.ProfileController
	Conference *controllers.ConferenceController
	Session    *controllers.SessionController
	Speaker    *controllers.SpeakerController
	Wishlist   *controllers.WishlistController
}

// NewRouter initializes the HTTP router with all application routes.
// requireAuth wraps the handlers that act on behalf of the caller.
func NewRouter(c Controllers, requireAuth func(http.HandlerFunc) http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	// Profile
	mux.HandleFunc("GET /profile", requireAuth(c.Profile.GetProfile))
	mux.HandleFunc("PATCH /profile", requireAuth(c.Profile.SaveProfile))

	// Conferences
	mux.HandleFunc("POST /conferences", requireAuth(c.Conference.CreateConference))
	mux.HandleFunc("POST /conferences/query", c.Conference.QueryConferences)
	mux.HandleFunc("GET /conferences/created", requireAuth(c.Conference.ConferencesCreated))
	mux.HandleFunc("GET /conferences/attending", requireAuth(c.Conference.ConferencesToAttend))
	mux.HandleFunc("GET /conferences/announcement", c.Conference.Announcement)
	mux.HandleFunc("GET /conferences/{conferenceKey}", c.Conference.GetConference)
	mux.HandleFunc("PATCH /conferences/{conferenceKey}", requireAuth(c.Conference.UpdateConference))
	mux.HandleFunc("POST /conferences/{conferenceKey}/registration", requireAuth(c.Conference.Register))
	mux.HandleFunc("DELETE /conferences/{conferenceKey}/registration", requireAuth(c.Conference.Unregister))

	// Sessions
	mux.HandleFunc("POST /conferences/{conferenceKey}/sessions", requireAuth(c.Session.CreateSession))
	mux.HandleFunc("GET /conferences/{conferenceKey}/sessions", c.Session.ConferenceSessions)
	mux.HandleFunc("GET /conferences/{conferenceKey}/sessions/type/{typeOfSession}", c.Session.ConferenceSessionsByType)
	mux.HandleFunc("GET /sessions/upcoming", c.Session.UpcomingSessions)
	mux.HandleFunc("POST /sessions/not-like", c.Session.SessionsNotOfTypeBefore)
	mux.HandleFunc("PATCH /sessions/{sessionKey}", requireAuth(c.Session.UpdateSession))

	// Speakers
	mux.HandleFunc("POST /speakers", requireAuth(c.Speaker.CreateSpeaker))
	mux.HandleFunc("GET /speakers", c.Speaker.ListSpeakers)
	mux.HandleFunc("GET /speakers/best", c.Speaker.BestSpeakers)
	mux.HandleFunc("GET /speakers/featured", c.Speaker.FeaturedSpeaker)
	mux.HandleFunc("GET /speakers/{speakerKey}", c.Speaker.GetSpeaker)
	mux.HandleFunc("PATCH /speakers/{speakerKey}", requireAuth(c.Speaker.UpdateSpeaker))
	mux.HandleFunc("GET /speakers/{speakerKey}/sessions", c.Session.SessionsBySpeaker)

	// Wishlist
	mux.HandleFunc("GET /wishlist", requireAuth(c.Wishlist.ListWishlist))
	mux.HandleFunc("POST /wishlist/{sessionKey}", requireAuth(c.Wishlist.AddToWishlist))
	mux.HandleFunc("DELETE /wishlist/{sessionKey}", requireAuth(c.Wishlist.RemoveFromWishlist))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
