package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conferencecentral/internal/cache"
	"conferencecentral/internal/delivery/http/controllers"
	"conferencecentral/internal/delivery/http/helpers"
	"conferencecentral/internal/delivery/http/middleware"
	"conferencecentral/internal/domain"
	"conferencecentral/internal/repository/memory"
	"conferencecentral/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// userTokens treats the bearer token as the user id.
type userTokens struct{}

func (userTokens) Verify(token string) (domain.Identity, error) {
	if token == "expired" {
		return domain.Identity{}, errors.New("token is expired")
	}
	return domain.Identity{UserID: token, Email: token + "@example.com", Name: token}, nil
}

type discardTasks struct{}

func (discardTasks) Enqueue(context.Context, string, map[string]string) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewEntityStore(5)
	c := cache.NewMemoryCache()
	timeout := 5 * time.Second

	registrations := services.NewRegistrationService(store, timeout)
	sessions := services.NewSessionService(store, discardTasks{}, testLogger, timeout)
	mux := NewRouter(Controllers{
		Profile: controllers.NewProfileController(testLogger, services.NewProfileService(store, timeout)),
		Conference: controllers.NewConferenceController(testLogger,
			services.NewConferenceService(store, discardTasks{}, testLogger, timeout),
			registrations,
			services.NewAnnouncementService(store, c, timeout)),
		Session:  controllers.NewSessionController(testLogger, sessions),
		Speaker:  controllers.NewSpeakerController(testLogger, services.NewSpeakerService(store, c, timeout)),
		Wishlist: controllers.NewWishlistController(testLogger, registrations),
	}, middleware.RequireAuth(userTokens{}, testLogger))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type apiClient struct {
	t   *testing.T
	srv *httptest.Server
}

// do sends a request as user (empty for anonymous) and decodes the envelope
// data into dest when dest is non-nil.
func (c apiClient) do(method, path, user string, body any, dest any) (int, *helpers.APIError) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rd)
	require.NoError(c.t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&envelope))
	if dest != nil && envelope.Error == nil {
		require.NoError(c.t, json.Unmarshal(envelope.Data, dest))
	}
	return resp.StatusCode, envelope.Error
}

func TestRouter_RegistrationFlow(t *testing.T) {
	api := apiClient{t: t, srv: newTestServer(t)}

	var conf controllers.ConferenceResponse
	status, apiErr := api.do(http.MethodPost, "/conferences", "olga", map[string]any{
		"name": "DevFest", "city": "London", "start_date": "2030-06-01", "max_attendees": 1,
	}, &conf)
	require.Equal(t, http.StatusCreated, status, "%+v", apiErr)
	assert.Equal(t, 1, conf.SeatsAvailable)
	assert.Equal(t, 6, conf.Month)
	assert.Equal(t, "olga", conf.OrganizerDisplayName)

	status, apiErr = api.do(http.MethodGet, "/conferences/created", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, apiErr)
	assert.Equal(t, "missing authorization header", apiErr.Message)

	status, _ = api.do(http.MethodGet, "/conferences/created", "expired", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	regPath := "/conferences/" + conf.WebsafeKey + "/registration"
	status, _ = api.do(http.MethodPost, regPath, "alice", nil, nil)
	require.Equal(t, http.StatusCreated, status)

	status, apiErr = api.do(http.MethodPost, regPath, "alice", nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, apiErr)
	assert.Equal(t, helpers.ErrCodeConflict, apiErr.Code)

	status, apiErr = api.do(http.MethodPost, regPath, "bob", nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, apiErr)
	assert.Equal(t, helpers.ErrCodeCapacityExceeded, apiErr.Code)

	var got controllers.ConferenceResponse
	status, _ = api.do(http.MethodGet, "/conferences/"+conf.WebsafeKey, "", nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, got.SeatsAvailable)

	var attending []controllers.ConferenceResponse
	status, _ = api.do(http.MethodGet, "/conferences/attending", "alice", nil, &attending)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, attending, 1)
	assert.Equal(t, conf.WebsafeKey, attending[0].WebsafeKey)

	var removed bool
	status, _ = api.do(http.MethodDelete, regPath, "bob", nil, &removed)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, removed)

	status, _ = api.do(http.MethodDelete, regPath, "alice", nil, &removed)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, removed)

	var matches []controllers.ConferenceResponse
	status, _ = api.do(http.MethodPost, "/conferences/query", "", map[string]any{
		"filters": []map[string]string{{"field": "CITY", "operator": "EQ", "value": "London"}},
	}, &matches)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].SeatsAvailable)

	status, apiErr = api.do(http.MethodPost, "/conferences/query", "", map[string]any{
		"filters": []map[string]string{
			{"field": "MONTH", "operator": "GT", "value": "1"},
			{"field": "MAX_ATTENDEES", "operator": "LT", "value": "10"},
		},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, apiErr)
	assert.Equal(t, helpers.ErrCodeBadRequest, apiErr.Code)
}

func TestRouter_SessionsAndWishlist(t *testing.T) {
	api := apiClient{t: t, srv: newTestServer(t)}

	var conf controllers.ConferenceResponse
	status, _ := api.do(http.MethodPost, "/conferences", "olga", map[string]any{"name": "GopherCon"}, &conf)
	require.Equal(t, http.StatusCreated, status)

	var speaker controllers.SpeakerResponse
	status, _ = api.do(http.MethodPost, "/speakers", "olga", map[string]any{"name": "Grace"}, &speaker)
	require.Equal(t, http.StatusCreated, status)

	sessionsPath := "/conferences/" + conf.WebsafeKey + "/sessions"
	newSession := map[string]any{
		"name": "Compilers", "speaker_key": speaker.WebsafeKey, "type_of_session": "workshop",
		"date": "2030-06-01", "start_time": "9:30",
	}
	status, apiErr := api.do(http.MethodPost, sessionsPath, "mallory", newSession, nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, apiErr)

	var session controllers.SessionResponse
	status, _ = api.do(http.MethodPost, sessionsPath, "olga", newSession, &session)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "09:30", session.StartTime)

	var byType []controllers.SessionResponse
	status, _ = api.do(http.MethodGet, sessionsPath+"/type/workshop", "", nil, &byType)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, byType, 1)

	var bySpeaker []controllers.SessionResponse
	status, _ = api.do(http.MethodGet, "/speakers/"+speaker.WebsafeKey+"/sessions", "", nil, &bySpeaker)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, bySpeaker, 1)

	wishPath := "/wishlist/" + session.WebsafeKey
	status, _ = api.do(http.MethodPost, wishPath, "alice", nil, nil)
	require.Equal(t, http.StatusCreated, status)

	var wishlist []controllers.SessionResponse
	status, _ = api.do(http.MethodGet, "/wishlist", "alice", nil, &wishlist)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, wishlist, 1)
	assert.Equal(t, "Compilers", wishlist[0].Name)

	status, _ = api.do(http.MethodDelete, wishPath, "alice", nil, nil)
	require.Equal(t, http.StatusOK, status)
	status, apiErr = api.do(http.MethodDelete, wishPath, "alice", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, apiErr)
	assert.Equal(t, helpers.ErrCodeNotFound, apiErr.Code)

	var featured string
	status, _ = api.do(http.MethodGet, "/speakers/featured", "", nil, &featured)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, featured)

	status, _ = api.do(http.MethodGet, "/conferences/not-a-key", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
