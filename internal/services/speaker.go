package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conferencecentral/internal/domain"
)

const bestSpeakersLimit = 5

type speakerService struct {
	store          domain.EntityStore
	cache          domain.Cache
	contextTimeout time.Duration
}

// NewSpeakerService returns a SpeakerService. The featured speaker is read
// from cache.
func NewSpeakerService(store domain.EntityStore, cache domain.Cache, timeout time.Duration) domain.SpeakerService {
	return &speakerService{store: store, cache: cache, contextTimeout: timeout}
}

func decodeSpeakers(recs []domain.Record) ([]*domain.Speaker, error) {
	out := make([]*domain.Speaker, 0, len(recs))
	for _, rec := range recs {
		sp := &domain.Speaker{}
		if err := rec.Decode(sp); err != nil {
			return nil, fmt.Errorf("decode speaker %s: %w", rec.Key, err)
		}
		sp.Key = rec.Key
		out = append(out, sp)
	}
	return out, nil
}

func (s *speakerService) CreateSpeaker(ctx context.Context, in domain.SpeakerInput) (*domain.Speaker, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: speaker name is required", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	key, err := s.store.AllocateID(ctx, domain.KindSpeaker, nil)
	if err != nil {
		return nil, fmt.Errorf("allocate speaker id: %w", err)
	}
	sp := &domain.Speaker{Key: key, Name: name, Bio: in.Bio, Sessions: []string{}}
	if err := s.store.Put(ctx, key, sp); err != nil {
		return nil, fmt.Errorf("create speaker: %w", err)
	}
	return sp, nil
}

func (s *speakerService) GetSpeaker(ctx context.Context, websafeKey string) (*domain.Speaker, error) {
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindSpeaker)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	sp := &domain.Speaker{}
	if err := s.store.Get(ctx, key, sp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no speaker found with key %s", domain.ErrNotFound, websafeKey)
		}
		return nil, fmt.Errorf("get speaker: %w", err)
	}
	sp.Key = key
	return sp, nil
}

func (s *speakerService) UpdateSpeaker(ctx context.Context, websafeKey string, upd domain.SpeakerUpdate) (*domain.Speaker, error) {
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindSpeaker)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, fmt.Errorf("%w: speaker name must not be empty", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var speaker *domain.Speaker
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		sp := &domain.Speaker{}
		if err := tx.Get(ctx, key, sp); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: no speaker found with key %s", domain.ErrNotFound, websafeKey)
			}
			return err
		}
		sp.Key = key
		if upd.Name != nil {
			sp.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Bio != nil {
			sp.Bio = *upd.Bio
		}
		speaker = sp
		return tx.Put(ctx, key, sp)
	})
	if err != nil {
		return nil, fmt.Errorf("update speaker: %w", err)
	}
	return speaker, nil
}

func (s *speakerService) ListSpeakers(ctx context.Context) ([]*domain.Speaker, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	recs, err := s.store.Query(ctx, domain.Query{
		Kind:   domain.KindSpeaker,
		Orders: []domain.Order{{Property: "name"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	return decodeSpeakers(recs)
}

func (s *speakerService) BestSpeakers(ctx context.Context) ([]*domain.Speaker, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	recs, err := s.store.Query(ctx, domain.Query{
		Kind:    domain.KindSpeaker,
		Filters: []domain.PropertyFilter{{Property: "sessions_count", Op: domain.OpGreaterThan, Value: int64(0)}},
		Orders:  []domain.Order{{Property: "sessions_count", Numeric: true, Descending: true}, {Property: "name"}},
		Limit:   bestSpeakersLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("query best speakers: %w", err)
	}
	return decodeSpeakers(recs)
}

func (s *speakerService) FeaturedSpeaker(ctx context.Context) (string, error) {
	v, ok, err := s.cache.Get(ctx, domain.CacheKeyFeaturedSpeaker)
	if err != nil {
		return "", fmt.Errorf("get featured speaker: %w", err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}
