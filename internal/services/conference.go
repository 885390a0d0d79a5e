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

const dateLayout = "2006-01-02"

type conferenceService struct {
	store          domain.EntityStore
	tasks          domain.TaskQueue
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewConferenceService returns a ConferenceService. Confirmation e-mails are
// handed to tasks on creation.
func NewConferenceService(store domain.EntityStore, tasks domain.TaskQueue, logger *slog.Logger, timeout time.Duration) domain.ConferenceService {
	return &conferenceService{
		store:          store,
		tasks:          tasks,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalidInput, field)
	}
	return t, nil
}

// applyDates validates and sets the date range and derived month.
func applyDates(c *domain.Conference, start, end string) error {
	c.StartDate, c.EndDate, c.Month = "", "", 0
	var startT, endT time.Time
	var err error
	if start != "" {
		if startT, err = parseDate("start_date", start); err != nil {
			return err
		}
		c.StartDate = startT.Format(dateLayout)
		c.Month = int(startT.Month())
	}
	if end != "" {
		if endT, err = parseDate("end_date", end); err != nil {
			return err
		}
		c.EndDate = endT.Format(dateLayout)
	}
	if start != "" && end != "" && endT.Before(startT) {
		return fmt.Errorf("%w: end_date is before start_date", domain.ErrInvalidInput)
	}
	return nil
}

func decodeConferences(recs []domain.Record) ([]*domain.Conference, error) {
	out := make([]*domain.Conference, 0, len(recs))
	for _, rec := range recs {
		c := &domain.Conference{}
		if err := rec.Decode(c); err != nil {
			return nil, fmt.Errorf("decode conference %s: %w", rec.Key, err)
		}
		c.Key = rec.Key
		out = append(out, c)
	}
	return out, nil
}

// withOrganizers attaches organizer display names with one multi-get.
func withOrganizers(ctx context.Context, store domain.EntityStore, confs []*domain.Conference) ([]*domain.ConferenceWithOrganizer, error) {
	seen := make(map[string]bool)
	var keys []domain.Key
	for _, c := range confs {
		if c.OrganizerUserID == "" || seen[c.OrganizerUserID] {
			continue
		}
		seen[c.OrganizerUserID] = true
		keys = append(keys, domain.ProfileKey(c.OrganizerUserID))
	}
	names := make(map[string]string, len(keys))
	if len(keys) > 0 {
		recs, err := store.GetMulti(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("get organizers: %w", err)
		}
		for _, rec := range recs {
			var p domain.Profile
			if err := rec.Decode(&p); err != nil {
				return nil, fmt.Errorf("decode profile %s: %w", rec.Key, err)
			}
			names[rec.Key.ID] = p.DisplayName
		}
	}
	out := make([]*domain.ConferenceWithOrganizer, 0, len(confs))
	for _, c := range confs {
		out = append(out, &domain.ConferenceWithOrganizer{Conference: c, OrganizerDisplayName: names[c.OrganizerUserID]})
	}
	return out, nil
}

func (s *conferenceService) CreateConference(ctx context.Context, caller domain.Identity, in domain.ConferenceInput) (*domain.ConferenceWithOrganizer, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: conference name is required", domain.ErrInvalidInput)
	}
	now := time.Now().UTC()
	conf := &domain.Conference{
		Name:            name,
		Description:     in.Description,
		OrganizerUserID: caller.UserID,
		Topics:          append([]string(nil), in.Topics...),
		City:            strings.TrimSpace(in.City),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(conf.Topics) == 0 {
		conf.Topics = append([]string(nil), domain.DefaultConferenceTopics...)
	}
	if conf.City == "" {
		conf.City = domain.DefaultConferenceCity
	}
	if in.MaxAttendees != nil {
		if *in.MaxAttendees < 0 {
			return nil, fmt.Errorf("%w: max_attendees must not be negative", domain.ErrInvalidInput)
		}
		conf.MaxAttendees = *in.MaxAttendees
	}
	conf.SeatsAvailable = conf.MaxAttendees
	if err := applyDates(conf, in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := ensureProfile(ctx, s.store, caller)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	key, err := s.store.AllocateID(ctx, domain.KindConference, &profile.Key)
	if err != nil {
		return nil, fmt.Errorf("allocate conference id: %w", err)
	}
	conf.Key = key
	if err := s.store.Put(ctx, key, conf); err != nil {
		return nil, fmt.Errorf("create conference: %w", err)
	}

	email := domain.ConferenceConfirmationEmailData{Email: profile.MainEmail, ConferenceInfo: conferenceInfo(conf)}
	if email.Email != "" {
		if err := s.tasks.Enqueue(ctx, domain.TaskSendConfirmationEmail, email.Payload()); err != nil {
			s.logger.WarnContext(ctx, "enqueue confirmation email failed", "conference", key.String(), "err", err)
		}
	}
	return &domain.ConferenceWithOrganizer{Conference: conf, OrganizerDisplayName: profile.DisplayName}, nil
}

func conferenceInfo(c *domain.Conference) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "City: %s\n", c.City)
	if c.StartDate != "" {
		fmt.Fprintf(&b, "Dates: %s - %s\n", c.StartDate, c.EndDate)
	}
	fmt.Fprintf(&b, "Topics: %s\n", strings.Join(c.Topics, ", "))
	fmt.Fprintf(&b, "Seats: %d", c.MaxAttendees)
	return b.String()
}

func (s *conferenceService) getConference(ctx context.Context, websafeKey string) (*domain.Conference, error) {
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindConference)
	if err != nil {
		return nil, err
	}
	conf := &domain.Conference{}
	if err := s.store.Get(ctx, key, conf); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no conference found with key %s", domain.ErrNotFound, websafeKey)
		}
		return nil, fmt.Errorf("get conference: %w", err)
	}
	conf.Key = key
	return conf, nil
}

func (s *conferenceService) GetConference(ctx context.Context, websafeKey string) (*domain.ConferenceWithOrganizer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	conf, err := s.getConference(ctx, websafeKey)
	if err != nil {
		return nil, err
	}
	out, err := withOrganizers(ctx, s.store, []*domain.Conference{conf})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *conferenceService) UpdateConference(ctx context.Context, caller domain.Identity, websafeKey string, upd domain.ConferenceUpdate) (*domain.ConferenceWithOrganizer, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	key, err := domain.DecodeKeyOfKind(websafeKey, domain.KindConference)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, fmt.Errorf("%w: conference name must not be empty", domain.ErrInvalidInput)
	}
	if upd.MaxAttendees != nil && *upd.MaxAttendees < 0 {
		return nil, fmt.Errorf("%w: max_attendees must not be negative", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var conf *domain.Conference
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		c := &domain.Conference{}
		if err := tx.Get(ctx, key, c); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: no conference found with key %s", domain.ErrNotFound, websafeKey)
			}
			return err
		}
		c.Key = key
		if c.OrganizerUserID != caller.UserID {
			return fmt.Errorf("%w: only the owner can update the conference", domain.ErrForbidden)
		}
		if err := applyConferenceUpdate(c, upd); err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()
		conf = c
		return tx.Put(ctx, key, c)
	})
	if err != nil {
		return nil, fmt.Errorf("update conference: %w", err)
	}
	out, err := withOrganizers(ctx, s.store, []*domain.Conference{conf})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// applyConferenceUpdate copies the present fields of upd onto c. Changing
// max_attendees shifts seats_available by the same amount.
func applyConferenceUpdate(c *domain.Conference, upd domain.ConferenceUpdate) error {
	if upd.Name != nil {
		c.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Topics != nil {
		c.Topics = append([]string(nil), upd.Topics...)
	}
	if upd.City != nil {
		c.City = strings.TrimSpace(*upd.City)
	}
	if upd.MaxAttendees != nil {
		seats := c.SeatsAvailable + *upd.MaxAttendees - c.MaxAttendees
		if seats < 0 {
			return fmt.Errorf("%w: max_attendees is below the number of registered attendees", domain.ErrInvalidInput)
		}
		c.MaxAttendees = *upd.MaxAttendees
		c.SeatsAvailable = seats
	}
	if upd.StartDate != nil || upd.EndDate != nil {
		start, end := c.StartDate, c.EndDate
		if upd.StartDate != nil {
			start = *upd.StartDate
		}
		if upd.EndDate != nil {
			end = *upd.EndDate
		}
		if err := applyDates(c, start, end); err != nil {
			return err
		}
	}
	return nil
}

func (s *conferenceService) ConferencesCreated(ctx context.Context, caller domain.Identity) ([]*domain.ConferenceWithOrganizer, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	owner := domain.ProfileKey(caller.UserID)
	recs, err := s.store.Query(ctx, domain.Query{
		Kind:     domain.KindConference,
		Ancestor: &owner,
		Orders:   []domain.Order{{Property: "name"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list created conferences: %w", err)
	}
	confs, err := decodeConferences(recs)
	if err != nil {
		return nil, err
	}
	return withOrganizers(ctx, s.store, confs)
}

func (s *conferenceService) QueryConferences(ctx context.Context, filters []domain.FilterSpec) ([]*domain.ConferenceWithOrganizer, error) {
	q, err := CompileConferenceQuery(filters)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	recs, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query conferences: %w", err)
	}
	confs, err := decodeConferences(recs)
	if err != nil {
		return nil, err
	}
	return withOrganizers(ctx, s.store, confs)
}
