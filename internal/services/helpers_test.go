package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"conferencecentral/internal/cache"
	"conferencecentral/internal/domain"
	"conferencecentral/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const testTimeout = 5 * time.Second

var (
	organizer = domain.Identity{UserID: "organizer-1", Email: "org@example.com", Name: "Olga Organizer"}
	alice     = domain.Identity{UserID: "alice", Email: "alice@example.com", Name: "Alice"}
	bob       = domain.Identity{UserID: "bob", Email: "bob@example.com", Name: "Bob"}
)

type queuedTask struct {
	target  string
	payload map[string]string
}

// fakeTaskQueue records enqueued tasks instead of running them.
type fakeTaskQueue struct {
	mu    sync.Mutex
	tasks []queuedTask
	err   error
}

func (f *fakeTaskQueue) Enqueue(_ context.Context, target string, payload map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, queuedTask{target: target, payload: payload})
	return nil
}

func (f *fakeTaskQueue) byTarget(target string) []queuedTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []queuedTask
	for _, t := range f.tasks {
		if t.target == target {
			out = append(out, t)
		}
	}
	return out
}

// fixture wires every service over one in-memory store and cache.
type fixture struct {
	store         domain.EntityStore
	cache         domain.Cache
	tasks         *fakeTaskQueue
	profiles      domain.ProfileService
	conferences   domain.ConferenceService
	registrations domain.RegistrationService
	sessions      domain.SessionService
	speakers      domain.SpeakerService
	announcements domain.AnnouncementService
	featured      *FeaturedSpeakerHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewEntityStore(10)
	c := cache.NewMemoryCache()
	tasks := &fakeTaskQueue{}
	return &fixture{
		store:         store,
		cache:         c,
		tasks:         tasks,
		profiles:      NewProfileService(store, testTimeout),
		conferences:   NewConferenceService(store, tasks, testLogger, testTimeout),
		registrations: NewRegistrationService(store, testTimeout),
		sessions:      NewSessionService(store, tasks, testLogger, testTimeout),
		speakers:      NewSpeakerService(store, c, testTimeout),
		announcements: NewAnnouncementService(store, c, testTimeout),
		featured:      NewFeaturedSpeakerHandler(store, c, testLogger),
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func (f *fixture) createConference(t *testing.T, caller domain.Identity, name string, maxAttendees int) string {
	t.Helper()
	c, err := f.conferences.CreateConference(context.Background(), caller, domain.ConferenceInput{
		Name:         name,
		City:         "London",
		StartDate:    "2030-06-01",
		EndDate:      "2030-06-03",
		MaxAttendees: intPtr(maxAttendees),
	})
	require.NoError(t, err)
	return c.Conference.Key.Encode()
}

func (f *fixture) getConference(t *testing.T, key string) *domain.Conference {
	t.Helper()
	c, err := f.conferences.GetConference(context.Background(), key)
	require.NoError(t, err)
	return c.Conference
}

func (f *fixture) getProfile(t *testing.T, caller domain.Identity) *domain.Profile {
	t.Helper()
	p, err := f.profiles.GetProfile(context.Background(), caller)
	require.NoError(t, err)
	return p
}

func (f *fixture) createSpeaker(t *testing.T, name string) string {
	t.Helper()
	sp, err := f.speakers.CreateSpeaker(context.Background(), domain.SpeakerInput{Name: name})
	require.NoError(t, err)
	return sp.Key.Encode()
}

func (f *fixture) createSession(t *testing.T, confKey, speakerKey string, in domain.SessionInput) *domain.Session {
	t.Helper()
	in.SpeakerKey = speakerKey
	s, err := f.sessions.CreateSession(context.Background(), organizer, confKey, in)
	require.NoError(t, err)
	return s
}
