// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/ratelimit"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrValidation marks input the caller has to correct.
var ErrValidation = errors.New("validation failed")

// ErrRateLimited is returned when a client exceeded its registration budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError carries the limiter decision alongside ErrRateLimited.
type RateLimitError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// EventService orchestrates event operations.
type EventService struct {
	events *repository.Store[model.Event]
	log    *zap.Logger
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events *repository.Store[model.Event], log *zap.Logger) *EventService {
	return &EventService{events: events, log: log, now: time.Now}
}

// CreateEvent validates fields and stores a new event. End date and time
// default to the start values; legacy date/time keys are accepted.
func (s *EventService) CreateEvent(ctx context.Context, f model.EventFields) (string, error) {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Description) == "" || strings.TrimSpace(f.Location) == "" {
		return "", invalid("missing required fields")
	}
	startDate := firstNonEmpty(f.StartDate, f.Date)
	startTime := firstNonEmpty(f.StartTime, f.Time)
	if startDate == "" || startTime == "" {
		return "", invalid("missing date/time fields")
	}
	if f.Status != "" && !f.Status.Valid() {
		return "", invalid("unknown status %q", f.Status)
	}

	event := model.Event{
		ID:          uuid.New().String(),
		Title:       f.Title,
		Description: f.Description,
		StartDate:   startDate,
		EndDate:     firstNonEmpty(f.EndDate, startDate),
		StartTime:   startTime,
		EndTime:     firstNonEmpty(f.EndTime, startTime),
		Location:    f.Location,
		Status:      f.Status,
		CreatedAt:   s.now().UTC(),
	}
	if f.Published != nil {
		event.Published = *f.Published
	}
	if f.ImageURL != nil {
		event.ImageURL = *f.ImageURL
	}

	if err := s.events.Create(ctx, event); err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	metrics.EventsCreated.Inc()
	s.log.Info("event created", zap.String("event_id", event.ID), zap.String("title", event.Title))
	return event.ID, nil
}

// UpdateEvent merges fields over the stored event. Empty strings keep the
// stored value; Published and ImageURL change whenever they are supplied.
func (s *EventService) UpdateEvent(ctx context.Context, id string, f model.EventFields) (string, error) {
	if f.Status != "" && !f.Status.Valid() {
		return "", invalid("unknown status %q", f.Status)
	}

	_, err := s.events.Update(ctx, id, func(e *model.Event) error {
		e.Title = firstNonEmpty(f.Title, e.Title)
		e.Description = firstNonEmpty(f.Description, e.Description)
		e.StartDate = firstNonEmpty(f.StartDate, e.StartDate)
		e.EndDate = firstNonEmpty(f.EndDate, e.EndDate)
		e.StartTime = firstNonEmpty(f.StartTime, e.StartTime)
		e.EndTime = firstNonEmpty(f.EndTime, e.EndTime)
		e.Location = firstNonEmpty(f.Location, e.Location)
		if f.Published != nil {
			e.Published = *f.Published
		}
		if f.ImageURL != nil {
			e.ImageURL = *f.ImageURL
		}
		if f.Status != "" {
			e.Status = f.Status
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("update event %s: %w", id, err)
	}
	metrics.EventsUpdated.Inc()
	s.log.Info("event updated", zap.String("event_id", id))
	return id, nil
}

// DeleteEvent permanently removes an event.
func (s *EventService) DeleteEvent(ctx context.Context, id string) (string, error) {
	if err := s.events.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("delete event %s: %w", id, err)
	}
	metrics.EventsDeleted.Inc()
	s.log.Info("event deleted", zap.String("event_id", id))
	return id, nil
}

// ClearEvents deletes every event and empties the event index. It returns
// how many events were removed.
func (s *EventService) ClearEvents(ctx context.Context) (int, error) {
	deleted, err := s.events.Clear(ctx)
	metrics.EventsDeleted.Add(float64(deleted))
	if err != nil {
		return deleted, fmt.Errorf("clear events: %w", err)
	}
	s.log.Info("events cleared", zap.Int("deleted", deleted))
	return deleted, nil
}

// GetEvent returns one event with its effective status. Public callers get
// ErrNotFound for unpublished or archived events.
func (s *EventService) GetEvent(ctx context.Context, id string, isAdmin bool) (*model.Event, error) {
	e, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	e.Status = EffectiveStatus(e, Today(s.now()))
	if !isAdmin && !Visible(e) {
		return nil, fmt.Errorf("get event %s: %w", id, repository.ErrNotFound)
	}
	return &e, nil
}

// ListEvents returns events filtered and ordered for the caller's role.
func (s *EventService) ListEvents(ctx context.Context, isAdmin bool) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return ApplyListPolicy(events, isAdmin, Today(s.now())), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// isValidEmail accepts a bare address such as a@b.co.
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
