package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conferencecentral/internal/domain"
)

type profileService struct {
	store          domain.EntityStore
	contextTimeout time.Duration
}

// NewProfileService returns a ProfileService backed by store.
func NewProfileService(store domain.EntityStore, timeout time.Duration) domain.ProfileService {
	return &profileService{store: store, contextTimeout: timeout}
}

func requireCaller(caller domain.Identity) error {
	if caller.UserID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

// profileInTx loads the caller's profile, or returns a fresh unsaved one when
// it does not exist yet.
func profileInTx(ctx context.Context, tx domain.Tx, caller domain.Identity) (*domain.Profile, bool, error) {
	key := domain.ProfileKey(caller.UserID)
	p := &domain.Profile{}
	err := tx.Get(ctx, key, p)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewProfile(caller), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get profile: %w", err)
	}
	p.Key = key
	return p, false, nil
}

// loadProfile reads the caller's profile outside a transaction, falling back
// to the unsaved default.
func loadProfile(ctx context.Context, store domain.EntityStore, caller domain.Identity) (*domain.Profile, error) {
	key := domain.ProfileKey(caller.UserID)
	p := &domain.Profile{}
	err := store.Get(ctx, key, p)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewProfile(caller), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Key = key
	return p, nil
}

// ensureProfile returns the caller's profile, creating it on first access.
func ensureProfile(ctx context.Context, store domain.EntityStore, caller domain.Identity) (*domain.Profile, error) {
	var profile *domain.Profile
	err := store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		p, created, err := profileInTx(ctx, tx, caller)
		if err != nil {
			return err
		}
		profile = p
		if !created {
			return nil
		}
		return tx.Put(ctx, p.Key, p)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, caller domain.Identity) (*domain.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := ensureProfile(ctx, s.store, caller)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) SaveProfile(ctx context.Context, caller domain.Identity, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var size domain.TeeShirtSize
	if upd.TeeShirtSize != nil {
		parsed, err := domain.ParseTeeShirtSize(*upd.TeeShirtSize)
		if err != nil {
			return nil, err
		}
		size = parsed
	}
	var displayName string
	if upd.DisplayName != nil {
		displayName = strings.TrimSpace(*upd.DisplayName)
		if displayName == "" {
			return nil, fmt.Errorf("%w: display name must not be empty", domain.ErrInvalidInput)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var profile *domain.Profile
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		p, _, err := profileInTx(ctx, tx, caller)
		if err != nil {
			return err
		}
		if displayName != "" {
			p.DisplayName = displayName
		}
		if size != "" {
			p.TeeShirtSize = size
		}
		profile = p
		return tx.Put(ctx, p.Key, p)
	})
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}
