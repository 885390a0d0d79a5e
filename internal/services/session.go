package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conferencecentral/internal/domain"
)

const (
	timeLayout       = "15:04"
	upcomingSessions = 5
)

type sessionService struct {
	store          domain.EntityStore
	tasks          domain.TaskQueue
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewSessionService returns a SessionService. Creating a session enqueues a
// featured speaker task on tasks.
func NewSessionService(store domain.EntityStore, tasks domain.TaskQueue, logger *slog.Logger, timeout time.Duration) domain.SessionService {
	return &sessionService{
		store:          store,
		tasks:          tasks,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func decodeSessions(recs []domain.Record) ([]*domain.Session, error) {
	out := make([]*domain.Session, 0, len(recs))
	for _, rec := range recs {
		s := &domain.Session{}
		if err := rec.Decode(s); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", rec.Key, err)
		}
		s.Key = rec.Key
		out = append(out, s)
	}
	return out, nil
}

func normalizeDate(v string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil
	}
	t, err := parseDate("date", v)
	if err != nil {
		return "", err
	}
	return t.Format(dateLayout), nil
}

func normalizeTime(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return "", fmt.Errorf("%w: start_time must be HH:MM", domain.ErrInvalidInput)
	}
	return t.Format(timeLayout), nil
}

func (s *sessionService) getSpeaker(ctx context.Context, get func(context.Context, domain.Key, any) error, websafeKey string) (domain.Key, *domain.Speaker, error) {
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindSpeaker)
	if err != nil {
		return domain.Key{}, nil, err
	}
	sp := &domain.Speaker{}
	if err := get(ctx, key, sp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Key{}, nil, fmt.Errorf("%w: no speaker found with key %s", domain.ErrNotFound, websafeKey)
		}
		return domain.Key{}, nil, fmt.Errorf("get speaker: %w", err)
	}
	sp.Key = key
	return key, sp, nil
}

func (s *sessionService) CreateSession(ctx context.Context, caller domain.Identity, conferenceKey string, in domain.SessionInput) (*domain.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: session name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.SpeakerKey) == "" {
		return nil, fmt.Errorf("%w: speaker key is required", domain.ErrInvalidInput)
	}
	if in.Duration < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidInput)
	}
	confKey, err := domain.DecodeKeyOfKind(conferenceKey, domain.KindConference)
	if err != nil {
		return nil, err
	}
	date, err := normalizeDate(in.Date)
	if err != nil {
		return nil, err
	}
	startTime, err := normalizeTime(in.StartTime)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	conf := &domain.Conference{}
	if err := s.store.Get(ctx, confKey, conf); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no conference found with key %s", domain.ErrNotFound, conferenceKey)
		}
		return nil, fmt.Errorf("get conference: %w", err)
	}
	if conf.OrganizerUserID != caller.UserID {
		return nil, fmt.Errorf("%w: only the owner can add sessions to the conference", domain.ErrForbidden)
	}
	speakerKey, speaker, err := s.getSpeaker(ctx, s.store.Get, in.SpeakerKey)
	if err != nil {
		return nil, err
	}

	key, err := s.store.AllocateID(ctx, domain.KindSession, &confKey)
	if err != nil {
		return nil, fmt.Errorf("allocate session id: %w", err)
	}
	session := &domain.Session{
		Key:           key,
		Name:          name,
		Highlights:    in.Highlights,
		SpeakerKey:    speakerKey.Encode(),
		ConferenceKey: confKey.Encode(),
		Duration:      in.Duration,
		TypeOfSession: strings.TrimSpace(in.TypeOfSession),
		Date:          date,
		StartTime:     startTime,
	}
	if err := s.store.Put(ctx, key, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	task := domain.FeaturedSpeakerTask{
		SpeakerKey:    session.SpeakerKey,
		SpeakerName:   speaker.Name,
		SessionKey:    key.Encode(),
		SessionName:   session.Name,
		ConferenceKey: session.ConferenceKey,
	}
	if err := s.tasks.Enqueue(ctx, domain.TaskSetFeaturedSpeaker, task.Payload()); err != nil {
		s.logger.WarnContext(ctx, "enqueue featured speaker task failed", "session", key.String(), "err", err)
	}
	return session, nil
}

func (s *sessionService) UpdateSession(ctx context.Context, caller domain.Identity, sessionKey string, upd domain.SessionUpdate) (*domain.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	key, err := domain.DecodeKeyOfKind(sessionKey, domain.KindSession)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, fmt.Errorf("%w: session name must not be empty", domain.ErrInvalidInput)
	}
	if upd.Duration != nil && *upd.Duration < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidInput)
	}
	var date, startTime string
	if upd.Date != nil {
		if date, err = normalizeDate(*upd.Date); err != nil {
			return nil, err
		}
	}
	if upd.StartTime != nil {
		if startTime, err = normalizeTime(*upd.StartTime); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var session *domain.Session
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		sess, err := sessionInTx(ctx, tx, key)
		if err != nil {
			return err
		}
		confKey, err := domain.DecodeKeyOfKind(sess.ConferenceKey, domain.KindConference)
		if err != nil || !key.IsChildOf(confKey) {
			return fmt.Errorf("%w: session %s has no valid conference", domain.ErrInvalidInput, sessionKey)
		}
		conf, err := conferenceInTx(ctx, tx, confKey)
		if err != nil {
			return err
		}
		if conf.OrganizerUserID != caller.UserID {
			return fmt.Errorf("%w: only the owner can update the session", domain.ErrForbidden)
		}
		if upd.SpeakerKey != nil {
			speakerKey, _, err := s.getSpeaker(ctx, tx.Get, *upd.SpeakerKey)
			if err != nil {
				return err
			}
			sess.SpeakerKey = speakerKey.Encode()
		}
		if upd.Name != nil {
			sess.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Highlights != nil {
			sess.Highlights = *upd.Highlights
		}
		if upd.Duration != nil {
			sess.Duration = *upd.Duration
		}
		if upd.TypeOfSession != nil {
			sess.TypeOfSession = strings.TrimSpace(*upd.TypeOfSession)
		}
		if upd.Date != nil {
			sess.Date = date
		}
		if upd.StartTime != nil {
			sess.StartTime = startTime
		}
		session = sess
		return tx.Put(ctx, key, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

var sessionScheduleOrder = []domain.Order{{Property: "date"}, {Property: "start_time"}, {Property: "name"}}

func (s *sessionService) conferenceSessions(ctx context.Context, conferenceKey string, filters []domain.PropertyFilter) ([]*domain.Session, error) {
	confKey, err := domain.DecodeKeyOfKind(conferenceKey, domain.KindConference)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var conf domain.Conference
	if err := s.store.Get(ctx, confKey, &conf); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no conference found with key %s", domain.ErrNotFound, conferenceKey)
		}
		return nil, fmt.Errorf("get conference: %w", err)
	}
	recs, err := s.store.Query(ctx, domain.Query{
		Kind:     domain.KindSession,
		Ancestor: &confKey,
		Filters:  filters,
		Orders:   sessionScheduleOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("query conference sessions: %w", err)
	}
	return decodeSessions(recs)
}

func (s *sessionService) ConferenceSessions(ctx context.Context, conferenceKey string) ([]*domain.Session, error) {
	return s.conferenceSessions(ctx, conferenceKey, nil)
}

func (s *sessionService) ConferenceSessionsByType(ctx context.Context, conferenceKey, typeOfSession string) ([]*domain.Session, error) {
	return s.conferenceSessions(ctx, conferenceKey, []domain.PropertyFilter{
		{Property: "type_of_session", Op: domain.OpEqual, Value: strings.TrimSpace(typeOfSession)},
	})
}

func (s *sessionService) SessionsBySpeaker(ctx context.Context, speakerKey string) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	key, _, err := s.getSpeaker(ctx, s.store.Get, speakerKey)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.Query(ctx, domain.Query{
		Kind:    domain.KindSession,
		Filters: []domain.PropertyFilter{{Property: "speaker_key", Op: domain.OpEqual, Value: key.Encode()}},
		Orders:  sessionScheduleOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("query speaker sessions: %w", err)
	}
	return decodeSessions(recs)
}

func (s *sessionService) UpcomingSessions(ctx context.Context) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	today := s.now().UTC().Format(dateLayout)
	recs, err := s.store.Query(ctx, domain.Query{
		Kind:    domain.KindSession,
		Filters: []domain.PropertyFilter{{Property: "date", Op: domain.OpGreaterOrEqual, Value: today}},
		Orders:  sessionScheduleOrder,
		Limit:   upcomingSessions,
	})
	if err != nil {
		return nil, fmt.Errorf("query upcoming sessions: %w", err)
	}
	return decodeSessions(recs)
}

// SessionsNotOfTypeBefore needs a range on start_time and an inequality on
// type_of_session. The store accepts only the first, so the type is filtered
// after the query.
func (s *sessionService) SessionsNotOfTypeBefore(ctx context.Context, typeOfSession, startTime string) ([]*domain.Session, error) {
	before, err := normalizeTime(startTime)
	if err != nil {
		return nil, err
	}
	if before == "" {
		return nil, fmt.Errorf("%w: start_time is required", domain.ErrInvalidInput)
	}
	excluded := strings.TrimSpace(typeOfSession)

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	recs, err := s.store.Query(ctx, domain.Query{
		Kind:    domain.KindSession,
		Filters: []domain.PropertyFilter{{Property: "start_time", Op: domain.OpLessOrEqual, Value: before}},
		Orders:  []domain.Order{{Property: "start_time"}, {Property: "name"}},
	})
	if err != nil {
		return nil, fmt.Errorf("query sessions before %s: %w", before, err)
	}
	sessions, err := decodeSessions(recs)
	if err != nil {
		return nil, err
	}
	out := sessions[:0]
	for _, sess := range sessions {
		if sess.TypeOfSession != excluded {
			out = append(out, sess)
		}
	}
	return out, nil
}
