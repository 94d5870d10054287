package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/database"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/ratelimit"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 2, 15, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newEventService(t *testing.T) (*EventService, database.KV) {
	t.Helper()
	kv := database.NewMemory()
	svc := NewEventService(repository.NewEventRepository(kv), zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, kv
}

func validFields() model.EventFields {
	return model.EventFields{
		Title:       "Spring Gala",
		Description: "<p>Dinner and dancing</p>",
		StartDate:   "2025-03-01",
		StartTime:   "18:00",
		Location:    "Town Hall",
		Published:   ptr(true),
	}
}

func TestCreateEventThenAdminListIncludesIt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService(t)

	id, err := svc.CreateEvent(ctx, validFields())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	events, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "Spring Gala", e.Title)
	assert.Equal(t, "2025-03-01", e.StartDate)
	assert.Equal(t, "2025-03-01", e.EndDate, "end date defaults to start date")
	assert.Equal(t, "18:00", e.EndTime, "end time defaults to start time")
	assert.True(t, e.Published)
	assert.Equal(t, model.StatusActive, e.Status)
	assert.Equal(t, fixedNow, e.CreatedAt)
}

func TestCreateEventAcceptsLegacyDateTime(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService(t)

	f := validFields()
	f.StartDate, f.StartTime = "", ""
	f.Date, f.Time = "2025-04-01", "10:00"

	id, err := svc.CreateEvent(ctx, f)
	require.NoError(t, err)

	e, err := svc.GetEvent(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", e.StartDate)
	assert.Equal(t, "2025-04-01", e.EndDate)
	assert.Equal(t, "10:00", e.StartTime)
	assert.Equal(t, "10:00", e.EndTime)
}

func TestCreateEventValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService(t)

	cases := map[string]func(*model.EventFields){
		"title":       func(f *model.EventFields) { f.Title = "" },
		"description": func(f *model.EventFields) { f.Description = "  " },
		"location":    func(f *model.EventFields) { f.Location = "" },
		"start date":  func(f *model.EventFields) { f.StartDate = "" },
		"start time":  func(f *model.EventFields) { f.StartTime = "" },
		"status":      func(f *model.EventFields) { f.Status = "cancelled" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := validFields()
			mutate(&f)
			_, err := svc.CreateEvent(ctx, f)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	events, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdateEventMergesFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService(t)

	f := validFields()
	f.ImageURL = ptr("https://cdn.example.com/a.png")
	id, err := svc.CreateEvent(ctx, f)
	require.NoError(t, err)

	_, err = svc.UpdateEvent(ctx, id, model.EventFields{Title: "Renamed", Status: model.StatusArchived})
	require.NoError(t, err)

	e, err := svc.GetEvent(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", e.Title)
	assert.Equal(t, "Town Hall", e.Location)
	assert.True(t, e.Published, "omitted published keeps prior value")
	assert.Equal(t, "https://cdn.example.com/a.png", e.ImageURL)
	assert.Equal(t, model.StatusArchived, e.Status)

	_, err = svc.UpdateEvent(ctx, id, model.EventFields{Published: ptr(false), ImageURL: ptr("")})
	require.NoError(t, err)

	e, err = svc.GetEvent(ctx, id, true)
	require.NoError(t, err)
	assert.False(t, e.Published, "explicit false clears published")
	assert.Empty(t, e.ImageURL, "explicit empty clears image")
	assert.Equal(t, "Renamed", e.Title)
}

func TestUpdateAndDeleteMissingEvent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService(t)

	_, err := svc.UpdateEvent(ctx, "nope", model.EventFields{Title: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.DeleteEvent(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.UpdateEvent(ctx, "nope", model.EventFields{Status: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUnpublishedNeverListedPublicly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService(t)

	hidden := validFields()
	hidden.Published = nil
	hiddenID, err := svc.CreateEvent(ctx, hidden)
	require.NoError(t, err)

	archived := validFields()
	archived.Status = model.StatusArchived
	_, err = svc.CreateEvent(ctx, archived)
	require.NoError(t, err)

	visibleID, err := svc.CreateEvent(ctx, validFields())
	require.NoError(t, err)

	public, err := svc.ListEvents(ctx, false)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, visibleID, public[0].ID)

	admin, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)
	assert.Len(t, admin, 3)

	_, err = svc.GetEvent(ctx, hiddenID, false)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.GetEvent(ctx, hiddenID, true)
	assert.NoError(t, err)
}

func TestDeleteEventRemovesFromListing(t *testing.T) {
	ctx := context.Background()
	svc, kv := newEventService(t)

	a, err := svc.CreateEvent(ctx, validFields())
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, validFields())
	require.NoError(t, err)

	before, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)

	_, err = svc.DeleteEvent(ctx, a)
	require.NoError(t, err)

	after, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)
	assert.Len(t, after, len(before)-1)
	for _, e := range after {
		assert.NotEqual(t, a, e.ID)
	}

	_, err = kv.Get(ctx, "event:"+a)
	assert.ErrorIs(t, err, database.ErrKeyNotFound)
}

func TestClearEvents(t *testing.T) {
	ctx := context.Background()
	svc, kv := newEventService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateEvent(ctx, validFields())
		require.NoError(t, err)
	}

	n, err := svc.ClearEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	events, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, events)

	raw, err := kv.Get(ctx, "event_index")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestStatusIsDerivedAtReadTime(t *testing.T) {
	ctx := context.Background()
	svc, kv := newEventService(t)

	f := validFields()
	f.StartDate = "2025-02-10"
	f.EndDate = "2025-02-14"
	id, err := svc.CreateEvent(ctx, f)
	require.NoError(t, err)

	e, err := svc.GetEvent(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPast, e.Status)

	raw, err := kv.Get(ctx, "event:"+id)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"status"`, "derived status is not persisted")
}

func newRegistrationService(t *testing.T) *RegistrationService {
	t.Helper()
	kv := database.NewMemory()
	limiter := ratelimit.New(kv, 5, time.Minute, ratelimit.WithClock(func() time.Time { return fixedNow }))
	svc := NewRegistrationService(repository.NewRegistrationRepository(kv), limiter, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func rsvp(eventID, first string) model.RegistrationFields {
	return model.RegistrationFields{
		EventID:   eventID,
		FirstName: first,
		LastName:  "Doe",
		Attending: model.AttendingYes,
		Email:     "jo@example.com",
	}
}

func TestCreateAndListRegistrations(t *testing.T) {
	ctx := context.Background()
	svc := newRegistrationService(t)

	_, err := svc.CreateRegistration(ctx, rsvp("e1", "Jo"), "a")
	require.NoError(t, err)
	_, err = svc.CreateRegistration(ctx, rsvp("e2", "Sam"), "b")
	require.NoError(t, err)
	_, err = svc.CreateRegistration(ctx, rsvp("e1", "Jo"), "c")
	require.NoError(t, err, "duplicates are permitted")

	all, err := svc.ListRegistrations(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	e1, err := svc.ListRegistrations(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, e1, 2)
	for _, r := range e1 {
		assert.Equal(t, "e1", r.EventID)
		assert.Equal(t, fixedNow, r.CreatedAt)
	}
}

func TestCreateRegistrationValidation(t *testing.T) {
	ctx := context.Background()
	svc := newRegistrationService(t)

	cases := map[string]func(*model.RegistrationFields){
		"event":     func(f *model.RegistrationFields) { f.EventID = "" },
		"first":     func(f *model.RegistrationFields) { f.FirstName = "" },
		"last":      func(f *model.RegistrationFields) { f.LastName = " " },
		"attending": func(f *model.RegistrationFields) { f.Attending = "" },
		"maybe":     func(f *model.RegistrationFields) { f.Attending = "Maybe" },
		"email":     func(f *model.RegistrationFields) { f.Email = "not-an-email" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := rsvp("e1", "Jo")
			mutate(&f)
			_, err := svc.CreateRegistration(ctx, f, name)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	f := rsvp("e1", "Jo")
	f.Email = ""
	_, err := svc.CreateRegistration(ctx, f, "no-email")
	assert.NoError(t, err, "email is optional")
}

func TestCreateRegistrationRateLimited(t *testing.T) {
	ctx := context.Background()
	svc := newRegistrationService(t)

	for i := 0; i < 5; i++ {
		_, err := svc.CreateRegistration(ctx, rsvp("e1", "Jo"), "10.0.0.1")
		require.NoError(t, err)
	}

	_, err := svc.CreateRegistration(ctx, rsvp("e1", "Jo"), "10.0.0.1")
	require.ErrorIs(t, err, ErrRateLimited)

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 5, rlErr.Decision.Limit)
	assert.Equal(t, time.Minute, rlErr.Decision.RetryAfter)

	regs, err := svc.ListRegistrations(ctx, "")
	require.NoError(t, err)
	assert.Len(t, regs, 5)
}

func TestExportRegistrationsCSV(t *testing.T) {
	ctx := context.Background()
	svc := newRegistrationService(t)

	_, err := svc.CreateRegistration(ctx, rsvp("e1", "Jo"), "a")
	require.NoError(t, err)
	no := rsvp("e2", "Sam")
	no.Attending = model.AttendingNo
	no.Phone = "555-0100"
	_, err = svc.CreateRegistration(ctx, no, "b")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportRegistrationsCSV(ctx, "e2", &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"Sam", "Doe", "No", "jo@example.com", "555-0100", "2025-02-15"}, rows[1])
}
