package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"conferencecentral/internal/delivery/http/helpers"
	"conferencecentral/internal/delivery/http/middleware"
	"conferencecentral/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var testCaller = domain.Identity{UserID: "user-123", Email: "ada@example.com", Name: "Ada"}

var (
	organizerKey  = domain.ProfileKey("user-123")
	conferenceKey = domain.NewChildKey(organizerKey, domain.KindConference, "conf-1")
	sessionKey    = domain.NewChildKey(conferenceKey, domain.KindSession, "sess-1")
	speakerKey    = domain.NewKey(domain.KindSpeaker, "spk-1")
)

func withCaller(req *http.Request) *http.Request {
	return req.WithContext(middleware.SetIdentity(req.Context(), testCaller))
}

// decodeEnvelope decodes the response envelope and, when dest is non-nil,
// re-decodes its data into dest.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil {
		require.Nil(t, envelope.Error, "success response must have error nil")
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, dest))
	}
	return envelope
}

func sampleConference() *domain.ConferenceWithOrganizer {
	return &domain.ConferenceWithOrganizer{
		Conference: &domain.Conference{
			Key:             conferenceKey,
			Name:            "DevFest",
			OrganizerUserID: "user-123",
			Topics:          []string{"Go"},
			City:            "London",
			StartDate:       "2026-11-02",
			Month:           11,
			MaxAttendees:    10,
			SeatsAvailable:  4,
		},
		OrganizerDisplayName: "Ada",
	}
}

func sampleSession() *domain.Session {
	return &domain.Session{
		Key:           sessionKey,
		Name:          "Intro to Go",
		SpeakerKey:    speakerKey.Encode(),
		ConferenceKey: conferenceKey.Encode(),
		Duration:      45,
		TypeOfSession: "talk",
		Date:          "2026-11-02",
		StartTime:     "09:30",
	}
}

// fakeProfileService implements domain.ProfileService for handler tests.
type fakeProfileService struct {
	profile    *domain.Profile
	err        error
	lastCaller domain.Identity
	lastUpdate domain.ProfileUpdate
}

func (f *fakeProfileService) GetProfile(_ context.Context, caller domain.Identity) (*domain.Profile, error) {
	f.lastCaller = caller
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeProfileService) SaveProfile(_ context.Context, caller domain.Identity, upd domain.ProfileUpdate) (*domain.Profile, error) {
	f.lastCaller = caller
	f.lastUpdate = upd
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

// fakeConferenceService implements domain.ConferenceService for handler tests.
type fakeConferenceService struct {
	result      *domain.ConferenceWithOrganizer
	list        []*domain.ConferenceWithOrganizer
	err         error
	lastCaller  domain.Identity
	lastKey     string
	lastInput   domain.ConferenceInput
	lastUpdate  domain.ConferenceUpdate
	lastFilters []domain.FilterSpec
}

func (f *fakeConferenceService) CreateConference(_ context.Context, caller domain.Identity, in domain.ConferenceInput) (*domain.ConferenceWithOrganizer, error) {
	f.lastCaller = caller
	f.lastInput = in
	return f.result, f.err
}

func (f *fakeConferenceService) GetConference(_ context.Context, key string) (*domain.ConferenceWithOrganizer, error) {
	f.lastKey = key
	return f.result, f.err
}

func (f *fakeConferenceService) UpdateConference(_ context.Context, caller domain.Identity, key string, upd domain.ConferenceUpdate) (*domain.ConferenceWithOrganizer, error) {
	f.lastCaller = caller
	f.lastKey = key
	f.lastUpdate = upd
	return f.result, f.err
}

func (f *fakeConferenceService) ConferencesCreated(_ context.Context, caller domain.Identity) ([]*domain.ConferenceWithOrganizer, error) {
	f.lastCaller = caller
	return f.list, f.err
}

func (f *fakeConferenceService) QueryConferences(_ context.Context, filters []domain.FilterSpec) ([]*domain.ConferenceWithOrganizer, error) {
	f.lastFilters = filters
	return f.list, f.err
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	err         error
	removed     bool
	conferences []*domain.ConferenceWithOrganizer
	sessions    []*domain.Session
	lastCaller  domain.Identity
	lastKey     string
	lastCall    string
}

func (f *fakeRegistrationService) RegisterForConference(_ context.Context, caller domain.Identity, key string) error {
	f.lastCaller, f.lastKey, f.lastCall = caller, key, "register"
	return f.err
}

func (f *fakeRegistrationService) UnregisterFromConference(_ context.Context, caller domain.Identity, key string) (bool, error) {
	f.lastCaller, f.lastKey, f.lastCall = caller, key, "unregister"
	return f.removed, f.err
}

func (f *fakeRegistrationService) AddSessionToWishlist(_ context.Context, caller domain.Identity, key string) error {
	f.lastCaller, f.lastKey, f.lastCall = caller, key, "wishlist-add"
	return f.err
}

func (f *fakeRegistrationService) RemoveSessionFromWishlist(_ context.Context, caller domain.Identity, key string) error {
	f.lastCaller, f.lastKey, f.lastCall = caller, key, "wishlist-remove"
	return f.err
}

func (f *fakeRegistrationService) ConferencesToAttend(_ context.Context, caller domain.Identity) ([]*domain.ConferenceWithOrganizer, error) {
	f.lastCaller, f.lastCall = caller, "attending"
	return f.conferences, f.err
}

func (f *fakeRegistrationService) SessionsInWishlist(_ context.Context, caller domain.Identity) ([]*domain.Session, error) {
	f.lastCaller, f.lastCall = caller, "wishlist"
	return f.sessions, f.err
}

// fakeAnnouncementService implements domain.AnnouncementService for handler tests.
type fakeAnnouncementService struct {
	text string
	err  error
}

func (f *fakeAnnouncementService) Refresh(context.Context) (string, error) { return f.text, f.err }

func (f *fakeAnnouncementService) Get(context.Context) (string, error) { return f.text, f.err }

// fakeSessionService implements domain.SessionService for handler tests.
type fakeSessionService struct {
	result     *domain.Session
	list       []*domain.Session
	err        error
	lastCaller domain.Identity
	lastKey    string
	lastType   string
	lastTime   string
	lastInput  domain.SessionInput
	lastUpdate domain.SessionUpdate
}

func (f *fakeSessionService) CreateSession(_ context.Context, caller domain.Identity, key string, in domain.SessionInput) (*domain.Session, error) {
	f.lastCaller, f.lastKey, f.lastInput = caller, key, in
	return f.result, f.err
}

func (f *fakeSessionService) UpdateSession(_ context.Context, caller domain.Identity, key string, upd domain.SessionUpdate) (*domain.Session, error) {
	f.lastCaller, f.lastKey, f.lastUpdate = caller, key, upd
	return f.result, f.err
}

func (f *fakeSessionService) ConferenceSessions(_ context.Context, key string) ([]*domain.Session, error) {
	f.lastKey = key
	return f.list, f.err
}

func (f *fakeSessionService) ConferenceSessionsByType(_ context.Context, key, typ string) ([]*domain.Session, error) {
	f.lastKey, f.lastType = key, typ
	return f.list, f.err
}

func (f *fakeSessionService) SessionsBySpeaker(_ context.Context, key string) ([]*domain.Session, error) {
	f.lastKey = key
	return f.list, f.err
}

func (f *fakeSessionService) UpcomingSessions(context.Context) ([]*domain.Session, error) {
	return f.list, f.err
}

func (f *fakeSessionService) SessionsNotOfTypeBefore(_ context.Context, typ, startTime string) ([]*domain.Session, error) {
	f.lastType, f.lastTime = typ, startTime
	return f.list, f.err
}

// fakeSpeakerService implements domain.SpeakerService for handler tests.
type fakeSpeakerService struct {
	result     *domain.Speaker
	list       []*domain.Speaker
	featured   string
	err        error
	lastKey    string
	lastInput  domain.SpeakerInput
	lastUpdate domain.SpeakerUpdate
}

func (f *fakeSpeakerService) CreateSpeaker(_ context.Context, in domain.SpeakerInput) (*domain.Speaker, error) {
	f.lastInput = in
	return f.result, f.err
}

func (f *fakeSpeakerService) GetSpeaker(_ context.Context, key string) (*domain.Speaker, error) {
	f.lastKey = key
	return f.result, f.err
}

func (f *fakeSpeakerService) UpdateSpeaker(_ context.Context, key string, upd domain.SpeakerUpdate) (*domain.Speaker, error) {
	f.lastKey, f.lastUpdate = key, upd
	return f.result, f.err
}

func (f *fakeSpeakerService) ListSpeakers(context.Context) ([]*domain.Speaker, error) {
	return f.list, f.err
}

func (f *fakeSpeakerService) BestSpeakers(context.Context) ([]*domain.Speaker, error) {
	return f.list, f.err
}

func (f *fakeSpeakerService) FeaturedSpeaker(context.Context) (string, error) {
	return f.featured, f.err
}
