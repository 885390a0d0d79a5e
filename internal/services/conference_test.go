package services

import (
	"context"
	"testing"

	"conferencecentral/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConferenceService_CreateConference(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  domain.Identity
		in      domain.ConferenceInput
		wantErr error
		check   func(t *testing.T, c *domain.Conference)
	}{
		{
			name:   "defaults applied",
			caller: organizer,
			in:     domain.ConferenceInput{Name: "  DevFest  "},
			check: func(t *testing.T, c *domain.Conference) {
				assert.Equal(t, "DevFest", c.Name)
				assert.Equal(t, "Default City", c.City)
				assert.Equal(t, []string{"Default", "Topic"}, c.Topics)
				assert.Equal(t, 0, c.MaxAttendees)
				assert.Equal(t, 0, c.SeatsAvailable)
				assert.Equal(t, 0, c.Month)
				assert.Equal(t, organizer.UserID, c.OrganizerUserID)
				assert.True(t, c.Key.IsChildOf(domain.ProfileKey(organizer.UserID)))
			},
		},
		{
			name:   "seats and month derived",
			caller: organizer,
			in:     domain.ConferenceInput{Name: "GopherCon", StartDate: "2030-07-14", EndDate: "2030-07-16", MaxAttendees: intPtr(300), Topics: []string{"go"}},
			check: func(t *testing.T, c *domain.Conference) {
				assert.Equal(t, 300, c.SeatsAvailable)
				assert.Equal(t, 7, c.Month)
				assert.Equal(t, "2030-07-14", c.StartDate)
				assert.Equal(t, []string{"go"}, c.Topics)
			},
		},
		{
			name:    "name required",
			caller:  organizer,
			in:      domain.ConferenceInput{Name: " "},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "end before start",
			caller:  organizer,
			in:      domain.ConferenceInput{Name: "x", StartDate: "2030-07-14", EndDate: "2030-07-01"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "bad date",
			caller:  organizer,
			in:      domain.ConferenceInput{Name: "x", StartDate: "14/07/2030"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "negative capacity",
			caller:  organizer,
			in:      domain.ConferenceInput{Name: "x", MaxAttendees: intPtr(-1)},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "anonymous caller",
			in:      domain.ConferenceInput{Name: "x"},
			wantErr: domain.ErrUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			got, err := f.conferences.CreateConference(ctx, tt.caller, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Olga Organizer", got.OrganizerDisplayName)
			tt.check(t, got.Conference)

			stored := f.getConference(t, got.Conference.Key.Encode())
			tt.check(t, stored)
		})
	}
}

func TestConferenceService_CreateEnqueuesConfirmation(t *testing.T) {
	f := newFixture(t)
	f.createConference(t, organizer, "DevFest", 10)

	tasks := f.tasks.byTarget(domain.TaskSendConfirmationEmail)
	require.Len(t, tasks, 1)
	assert.Equal(t, organizer.Email, tasks[0].payload["email"])
	assert.Contains(t, tasks[0].payload["conference_info"], "DevFest")
}

func TestConferenceService_UpdateConference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	key := f.createConference(t, organizer, "Conf", 3)
	require.NoError(t, f.registrations.RegisterForConference(ctx, alice, key))
	require.NoError(t, f.registrations.RegisterForConference(ctx, bob, key))

	got, err := f.conferences.UpdateConference(ctx, organizer, key, domain.ConferenceUpdate{
		City:         strPtr("Berlin"),
		MaxAttendees: intPtr(10),
		StartDate:    strPtr("2030-11-02"),
		EndDate:      strPtr("2030-11-04"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Berlin", got.Conference.City)
	assert.Equal(t, 10, got.Conference.MaxAttendees)
	assert.Equal(t, 8, got.Conference.SeatsAvailable)
	assert.Equal(t, 11, got.Conference.Month)
	assert.Equal(t, "Conf", got.Conference.Name)
	assert.Equal(t, "2030-11-04", got.Conference.EndDate)

	_, err = f.conferences.UpdateConference(ctx, organizer, key, domain.ConferenceUpdate{StartDate: strPtr("2030-12-01")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "2030-11-02", f.getConference(t, key).StartDate)

	_, err = f.conferences.UpdateConference(ctx, organizer, key, domain.ConferenceUpdate{MaxAttendees: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 10, f.getConference(t, key).MaxAttendees)

	_, err = f.conferences.UpdateConference(ctx, alice, key, domain.ConferenceUpdate{Name: strPtr("Hijacked")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, "Conf", f.getConference(t, key).Name)

	missing := domain.NewChildKey(domain.ProfileKey(organizer.UserID), domain.KindConference, "nope").Encode()
	_, err = f.conferences.UpdateConference(ctx, organizer, missing, domain.ConferenceUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConferenceService_ConferencesCreated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createConference(t, organizer, "Beta", 1)
	f.createConference(t, organizer, "Alpha", 1)
	f.createConference(t, alice, "Other", 1)

	got, err := f.conferences.ConferencesCreated(ctx, organizer)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Conference.Name)
	assert.Equal(t, "Beta", got[1].Conference.Name)
}

func TestConferenceService_GetConference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	key := f.createConference(t, organizer, "Conf", 1)

	got, err := f.conferences.GetConference(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Conf", got.Conference.Name)
	assert.Equal(t, "Olga Organizer", got.OrganizerDisplayName)

	_, err = f.conferences.GetConference(ctx, "%%%")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestAnnouncementService_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	almost := f.createConference(t, organizer, "Almost Full", 2)
	f.createConference(t, organizer, "Roomy", 100)
	f.createConference(t, organizer, "Sold Out", 0)
	f.createConference(t, organizer, "Small", 5)

	got, err := f.announcements.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Last chance to attend! The following conferences are nearly sold out: Almost Full, Small", got)

	cached, err := f.announcements.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, cached)

	require.NoError(t, f.registrations.RegisterForConference(ctx, alice, almost))
	require.NoError(t, f.registrations.RegisterForConference(ctx, bob, almost))
	_, err = f.conferences.UpdateConference(ctx, organizer, f.conferenceKeyByName(t, "Small"), domain.ConferenceUpdate{MaxAttendees: intPtr(50)})
	require.NoError(t, err)

	got, err = f.announcements.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	cached, err = f.announcements.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, cached)
	_, ok, err := f.cache.Get(ctx, domain.CacheKeyRecentAnnouncements)
	require.NoError(t, err)
	assert.False(t, ok)
}

func (f *fixture) conferenceKeyByName(t *testing.T, name string) string {
	t.Helper()
	got, err := f.conferences.QueryConferences(context.Background(), nil)
	require.NoError(t, err)
	for _, c := range got {
		if c.Conference.Name == name {
			return c.Conference.Key.Encode()
		}
	}
	t.Fatalf("conference %q not found", name)
	return ""
}
