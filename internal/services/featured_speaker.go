package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"conferencecentral/internal/domain"
)

// FeaturedSpeakerAnnouncement formats the cached featured speaker text.
func FeaturedSpeakerAnnouncement(speakerName string, sessionNames []string) string {
	return fmt.Sprintf("%s is Featured Speaker with sessions %s", speakerName, strings.Join(sessionNames, ", "))
}

// FeaturedSpeakerHandler consumes set_featured_speaker tasks. Deliveries may
// repeat; processing the same task twice leaves the same state as once.
type FeaturedSpeakerHandler struct {
	store  domain.EntityStore
	cache  domain.Cache
	logger *slog.Logger
}

// NewFeaturedSpeakerHandler returns the consumer for featured speaker tasks.
func NewFeaturedSpeakerHandler(store domain.EntityStore, cache domain.Cache, logger *slog.Logger) *FeaturedSpeakerHandler {
	return &FeaturedSpeakerHandler{store: store, cache: cache, logger: logger}
}

// Handle adapts Process to the task queue. Malformed payloads are dropped.
func (h *FeaturedSpeakerHandler) Handle(ctx context.Context, payload map[string]string) error {
	task, err := domain.ParseFeaturedSpeakerTask(payload)
	if err != nil {
		h.logger.WarnContext(ctx, "dropping featured speaker task", "err", err)
		return nil
	}
	return h.Process(ctx, task)
}

// Process publishes the featured speaker announcement when the speaker has
// more than one session at the conference, then records the session on the
// speaker. Store errors are returned so the task is redelivered.
func (h *FeaturedSpeakerHandler) Process(ctx context.Context, task domain.FeaturedSpeakerTask) error {
	confKey, err := domain.DecodeKeyOfKind(task.ConferenceKey, domain.KindConference)
	if err != nil {
		h.logger.WarnContext(ctx, "dropping featured speaker task", "conference_key", task.ConferenceKey, "err", err)
		return nil
	}

	recs, err := h.store.Query(ctx, domain.Query{
		Kind:     domain.KindSession,
		Ancestor: &confKey,
		Filters:  []domain.PropertyFilter{{Property: "speaker_key", Op: domain.OpEqual, Value: task.SpeakerKey}},
		Orders:   []domain.Order{{Property: "name"}},
	})
	if err != nil {
		return fmt.Errorf("query speaker sessions: %w", err)
	}
	if len(recs) > 1 {
		sessions, err := decodeSessions(recs)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(sessions))
		for _, s := range sessions {
			names = append(names, s.Name)
		}
		announcement := FeaturedSpeakerAnnouncement(task.SpeakerName, names)
		if err := h.cache.Set(ctx, domain.CacheKeyFeaturedSpeaker, announcement); err != nil {
			h.logger.WarnContext(ctx, "set featured speaker failed", "err", err)
		}
	}

	speakerKey, err := domain.DecodeKeyOfKind(task.SpeakerKey, domain.KindSpeaker)
	if err != nil {
		h.logger.WarnContext(ctx, "skipping speaker update", "speaker_key", task.SpeakerKey, "err", err)
		return nil
	}
	err = h.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		sp := &domain.Speaker{}
		if err := tx.Get(ctx, speakerKey, sp); err != nil {
			return err
		}
		if !sp.AddSession(task.SessionKey, task.SessionName) {
			return nil
		}
		return tx.Put(ctx, speakerKey, sp)
	})
	if errors.Is(err, domain.ErrNotFound) {
		h.logger.WarnContext(ctx, "speaker not found, skipping session update", "speaker_key", task.SpeakerKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("update speaker sessions: %w", err)
	}
	return nil
}
