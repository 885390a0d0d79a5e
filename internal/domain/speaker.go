package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Speaker is a root entity. Sessions is a denormalized list of session names
// maintained by the featured speaker consumer; SessionKeys records which
// sessions were already counted, so names may repeat across conferences.
// swagger:model Speaker
type Speaker struct {
	Key           Key      `json:"-"`
	Name          string   `json:"name"`
	Bio           string   `json:"bio"`
	Sessions      []string `json:"sessions"`
	SessionKeys   []string `json:"session_keys,omitempty"`
	SessionsCount int      `json:"sessions_count"`
}

// AddSession records the session identified by sessionKey and reports whether
// it was new. A key seen before leaves the speaker unchanged.
func (s *Speaker) AddSession(sessionKey, name string) bool {
	if slices.Contains(s.SessionKeys, sessionKey) {
		return false
	}
	s.SessionKeys = append(s.SessionKeys, sessionKey)
	s.Sessions = append(s.Sessions, name)
	s.SessionsCount = len(s.Sessions)
	return true
}

// SpeakerInput carries the fields accepted on speaker creation.
type SpeakerInput struct {
	Name string
	Bio  string
}

// SpeakerUpdate is a partial update of a speaker.
type SpeakerUpdate struct {
	Name *string
	Bio  *string
}

// SpeakerService defines speaker operations and the featured speaker read.
type SpeakerService interface {
	CreateSpeaker(ctx context.Context, in SpeakerInput) (*Speaker, error)
	GetSpeaker(ctx context.Context, websafeKey string) (*Speaker, error)
	UpdateSpeaker(ctx context.Context, websafeKey string, upd SpeakerUpdate) (*Speaker, error)
	ListSpeakers(ctx context.Context) ([]*Speaker, error)
	BestSpeakers(ctx context.Context) ([]*Speaker, error)
	// FeaturedSpeaker returns the cached announcement or "" when absent.
	FeaturedSpeaker(ctx context.Context) (string, error)
}

// FeaturedSpeakerTask is the immutable record handed from session creation
// to the featured speaker consumer.
type FeaturedSpeakerTask struct {
	SpeakerKey    string
	SpeakerName   string
	SessionKey    string
	SessionName   string
	ConferenceKey string
}

// Payload returns the queue payload for t.
func (t FeaturedSpeakerTask) Payload() map[string]string {
	return map[string]string{
		"speaker_key":    t.SpeakerKey,
		"speaker_name":   t.SpeakerName,
		"session_key":    t.SessionKey,
		"session_name":   t.SessionName,
		"conference_key": t.ConferenceKey,
	}
}

// ParseFeaturedSpeakerTask rebuilds a task from its queue payload.
func ParseFeaturedSpeakerTask(payload map[string]string) (FeaturedSpeakerTask, error) {
	t := FeaturedSpeakerTask{
		SpeakerKey:    payload["speaker_key"],
		SpeakerName:   payload["speaker_name"],
		SessionKey:    payload["session_key"],
		SessionName:   payload["session_name"],
		ConferenceKey: payload["conference_key"],
	}
	var missing []string
	if t.SpeakerKey == "" {
		missing = append(missing, "speaker_key")
	}
	if t.SessionKey == "" {
		missing = append(missing, "session_key")
	}
	if t.SessionName == "" {
		missing = append(missing, "session_name")
	}
	if t.ConferenceKey == "" {
		missing = append(missing, "conference_key")
	}
	if len(missing) > 0 {
		return FeaturedSpeakerTask{}, fmt.Errorf("%w: task payload missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return t, nil
}
