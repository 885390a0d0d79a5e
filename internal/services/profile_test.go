package services

import (
	"context"
	"testing"

	"conferencecentral/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_GetProfileCreatesOnFirstAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	caller := domain.Identity{UserID: "u-1", Email: "jane.doe@example.com"}

	p, err := f.profiles.GetProfile(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", p.DisplayName)
	assert.Equal(t, "jane.doe@example.com", p.MainEmail)
	assert.Equal(t, domain.TeeShirtNotSpecified, p.TeeShirtSize)
	assert.Empty(t, p.ConferenceKeysToAttend)
	assert.Equal(t, domain.ProfileKey("u-1"), p.Key)

	stored := &domain.Profile{}
	require.NoError(t, f.store.Get(ctx, domain.ProfileKey("u-1"), stored))
	assert.Equal(t, "jane.doe", stored.DisplayName)

	_, err = f.profiles.GetProfile(ctx, domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProfileService_SaveProfile(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		upd      domain.ProfileUpdate
		wantErr  error
		wantName string
		wantSize domain.TeeShirtSize
	}{
		{
			name:     "both fields",
			upd:      domain.ProfileUpdate{DisplayName: strPtr(" Ali "), TeeShirtSize: strPtr("m_w")},
			wantName: "Ali",
			wantSize: domain.TeeShirtMW,
		},
		{
			name:     "size only keeps name",
			upd:      domain.ProfileUpdate{TeeShirtSize: strPtr("XL_M")},
			wantName: "Alice",
			wantSize: domain.TeeShirtXLM,
		},
		{
			name:     "nothing to change",
			wantName: "Alice",
			wantSize: domain.TeeShirtNotSpecified,
		},
		{
			name:    "unknown size",
			upd:     domain.ProfileUpdate{TeeShirtSize: strPtr("HUGE")},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "blank display name",
			upd:     domain.ProfileUpdate{DisplayName: strPtr("  ")},
			wantErr: domain.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			got, err := f.profiles.SaveProfile(ctx, alice, tt.upd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.DisplayName)
			assert.Equal(t, tt.wantSize, got.TeeShirtSize)

			stored := f.getProfile(t, alice)
			assert.Equal(t, tt.wantName, stored.DisplayName)
			assert.Equal(t, tt.wantSize, stored.TeeShirtSize)
		})
	}
}

func TestProfileService_SaveKeepsRegistrations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	key := f.createConference(t, organizer, "Conf", 5)
	require.NoError(t, f.registrations.RegisterForConference(ctx, alice, key))

	_, err := f.profiles.SaveProfile(ctx, alice, domain.ProfileUpdate{DisplayName: strPtr("Al")})
	require.NoError(t, err)
	assert.Equal(t, []string{key}, f.getProfile(t, alice).ConferenceKeysToAttend)
}
