package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"conferencecentral/internal/domain"
)

type registrationService struct {
	store          domain.EntityStore
	contextTimeout time.Duration
}

// NewRegistrationService returns a RegistrationService. Every mutation reads
// the caller's profile and the target in one transaction and writes both
// back together.
func NewRegistrationService(store domain.EntityStore, timeout time.Duration) domain.RegistrationService {
	return &registrationService{store: store, contextTimeout: timeout}
}

// linkConference registers p for c. Checks run in order: not already
// registered, then a seat is free.
func linkConference(p *domain.Profile, c *domain.Conference) error {
	ref := c.Key.Encode()
	if slices.Contains(p.ConferenceKeysToAttend, ref) {
		return fmt.Errorf("%w: already registered for this conference", domain.ErrConflict)
	}
	if c.SeatsAvailable <= 0 {
		return domain.ErrCapacityExceeded
	}
	p.ConferenceKeysToAttend = append(slices.Clone(p.ConferenceKeysToAttend), ref)
	c.SeatsAvailable--
	return nil
}

// unlinkConference reports false and leaves both entities untouched when p
// is not registered for c.
func unlinkConference(p *domain.Profile, c *domain.Conference) bool {
	i := slices.Index(p.ConferenceKeysToAttend, c.Key.Encode())
	if i < 0 {
		return false
	}
	p.ConferenceKeysToAttend = slices.Delete(slices.Clone(p.ConferenceKeysToAttend), i, i+1)
	if c.SeatsAvailable < c.MaxAttendees {
		c.SeatsAvailable++
	}
	return true
}

func linkSession(p *domain.Profile, s *domain.Session) error {
	ref := s.Key.Encode()
	if slices.Contains(p.SessionKeysOnWishlist, ref) {
		return fmt.Errorf("%w: session already in wishlist", domain.ErrConflict)
	}
	p.SessionKeysOnWishlist = append(slices.Clone(p.SessionKeysOnWishlist), ref)
	return nil
}

// unlinkSession fails with ErrNotFoundInWishlist when s is not on the
// wishlist, where unlinkConference reports false instead.
func unlinkSession(p *domain.Profile, s *domain.Session) error {
	i := slices.Index(p.SessionKeysOnWishlist, s.Key.Encode())
	if i < 0 {
		return domain.ErrNotFoundInWishlist
	}
	p.SessionKeysOnWishlist = slices.Delete(slices.Clone(p.SessionKeysOnWishlist), i, i+1)
	return nil
}

func conferenceInTx(ctx context.Context, tx domain.Tx, key domain.Key) (*domain.Conference, error) {
	c := &domain.Conference{}
	if err := tx.Get(ctx, key, c); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no conference found with key %s", domain.ErrNotFound, key.Encode())
		}
		return nil, fmt.Errorf("get conference: %w", err)
	}
	c.Key = key
	return c, nil
}

func sessionInTx(ctx context.Context, tx domain.Tx, key domain.Key) (*domain.Session, error) {
	s := &domain.Session{}
	if err := tx.Get(ctx, key, s); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no session found with key %s", domain.ErrNotFound, key.Encode())
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.Key = key
	return s, nil
}

func (s *registrationService) RegisterForConference(ctx context.Context, caller domain.Identity, websafeKey string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindConference)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		profile, _, err := profileInTx(ctx, tx, caller)
		if err != nil {
			return err
		}
		conf, err := conferenceInTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := linkConference(profile, conf); err != nil {
			return err
		}
		if err := tx.Put(ctx, profile.Key, profile); err != nil {
			return err
		}
		return tx.Put(ctx, conf.Key, conf)
	})
}

func (s *registrationService) UnregisterFromConference(ctx context.Context, caller domain.Identity, websafeKey string) (bool, error) {
	if err := requireCaller(caller); err != nil {
		return false, err
	}
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindConference)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var removed bool
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		removed = false
		profile, _, err := profileInTx(ctx, tx, caller)
		if err != nil {
			return err
		}
		conf, err := conferenceInTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if !unlinkConference(profile, conf) {
			return nil
		}
		removed = true
		if err := tx.Put(ctx, profile.Key, profile); err != nil {
			return err
		}
		return tx.Put(ctx, conf.Key, conf)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *registrationService) AddSessionToWishlist(ctx context.Context, caller domain.Identity, websafeKey string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindSession)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		profile, _, err := profileInTx(ctx, tx, caller)
		if err != nil {
			return err
		}
		session, err := sessionInTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := linkSession(profile, session); err != nil {
			return err
		}
		return tx.Put(ctx, profile.Key, profile)
	})
}

func (s *registrationService) RemoveSessionFromWishlist(ctx context.Context, caller domain.Identity, websafeKey string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindSession)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		profile, _, err := profileInTx(ctx, tx, caller)
		if err != nil {
			return err
		}
		session, err := sessionInTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := unlinkSession(profile, session); err != nil {
			return err
		}
		return tx.Put(ctx, profile.Key, profile)
	})
}

// decodeRefs parses stored websafe references, dropping any that no longer
// decode.
func decodeRefs(refs []string) []domain.Key {
	keys := make([]domain.Key, 0, len(refs))
	for _, ref := range refs {
		if k, err := domain.DecodeKey(ref); err == nil {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *registrationService) ConferencesToAttend(ctx context.Context, caller domain.Identity) ([]*domain.ConferenceWithOrganizer, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := loadProfile(ctx, s.store, caller)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.GetMulti(ctx, decodeRefs(profile.ConferenceKeysToAttend))
	if err != nil {
		return nil, fmt.Errorf("get conferences to attend: %w", err)
	}
	confs, err := decodeConferences(recs)
	if err != nil {
		return nil, err
	}
	return withOrganizers(ctx, s.store, confs)
}

func (s *registrationService) SessionsInWishlist(ctx context.Context, caller domain.Identity) ([]*domain.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := loadProfile(ctx, s.store, caller)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.GetMulti(ctx, decodeRefs(profile.SessionKeysOnWishlist))
	if err != nil {
		return nil, fmt.Errorf("get wishlist sessions: %w", err)
	}
	return decodeSessions(recs)
}
