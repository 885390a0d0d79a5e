package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"conferencecentral/internal/domain"
)

const (
	announcementTemplate = "Last chance to attend! The following conferences are nearly sold out: %s"
	nearlySoldOutSeats   = 5
)

type announcementService struct {
	store          domain.EntityStore
	cache          domain.Cache
	contextTimeout time.Duration
}

// NewAnnouncementService returns an AnnouncementService that publishes the
// nearly-sold-out announcement to cache.
func NewAnnouncementService(store domain.EntityStore, cache domain.Cache, timeout time.Duration) domain.AnnouncementService {
	return &announcementService{store: store, cache: cache, contextTimeout: timeout}
}

// Refresh recomputes the announcement from conferences with 1 to 5 seats
// left. The cache entry is removed when there are none.
func (s *announcementService) Refresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	recs, err := s.store.Query(ctx, domain.Query{
		Kind: domain.KindConference,
		Filters: []domain.PropertyFilter{
			{Property: "seats_available", Op: domain.OpLessOrEqual, Value: int64(nearlySoldOutSeats)},
			{Property: "seats_available", Op: domain.OpGreaterThan, Value: int64(0)},
		},
		Orders: []domain.Order{{Property: "seats_available", Numeric: true}, {Property: "name"}},
	})
	if err != nil {
		return "", fmt.Errorf("query nearly sold out conferences: %w", err)
	}
	confs, err := decodeConferences(recs)
	if err != nil {
		return "", err
	}
	if len(confs) == 0 {
		if err := s.cache.Delete(ctx, domain.CacheKeyRecentAnnouncements); err != nil {
			return "", fmt.Errorf("clear announcement: %w", err)
		}
		return "", nil
	}
	names := make([]string, 0, len(confs))
	for _, c := range confs {
		names = append(names, c.Name)
	}
	announcement := fmt.Sprintf(announcementTemplate, strings.Join(names, ", "))
	if err := s.cache.Set(ctx, domain.CacheKeyRecentAnnouncements, announcement); err != nil {
		return "", fmt.Errorf("set announcement: %w", err)
	}
	return announcement, nil
}

func (s *announcementService) Get(ctx context.Context) (string, error) {
	v, ok, err := s.cache.Get(ctx, domain.CacheKeyRecentAnnouncements)
	if err != nil {
		return "", fmt.Errorf("get announcement: %w", err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}
