package service

import (
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// DateLayout is the calendar date format used by event dates.
const DateLayout = "2006-01-02"

// EffectiveStatus returns the stored status when set, otherwise past when
// the event ended before today and active when it did not. Dates compare as
// strings, which orders YYYY-MM-DD correctly.
func EffectiveStatus(e model.Event, today string) model.Status {
	if e.Status != "" {
		return e.Status
	}
	if e.EndDate < today {
		return model.StatusPast
	}
	return model.StatusActive
}

// Today formats now as a UTC calendar date.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// ApplyListPolicy fills in effective statuses, drops events a public caller
// must not see, and orders the result: active events first, each group by
// ascending start date, ties kept in input order.
func ApplyListPolicy(events []model.Event, isAdmin bool, today string) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		e.Status = EffectiveStatus(e, today)
		if !isAdmin && !Visible(e) {
			continue
		}
		out = append(out, e)
	}

	slices.SortStableFunc(out, func(a, b model.Event) int {
		aActive, bActive := a.Status == model.StatusActive, b.Status == model.StatusActive
		switch {
		case aActive && !bActive:
			return -1
		case !aActive && bActive:
			return 1
		}
		switch {
		case a.StartDate < b.StartDate:
			return -1
		case a.StartDate > b.StartDate:
			return 1
		}
		return 0
	})
	return out
}

// Visible reports whether a public caller may see e, whose Status must
// already hold the effective status.
func Visible(e model.Event) bool {
	return e.Published && e.Status != model.StatusArchived
}
