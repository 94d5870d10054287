// Package model defines the core domain types for the event RSVP service.
package model

import (
	"encoding/json"
	"time"
)

// Record is implemented by every entity persisted through the entity store.
type Record interface {
	RecordID() string
}

// Status is the lifecycle state of an event.
type Status string

const (
	StatusActive   Status = "active"
	StatusPast     Status = "past"
	StatusArchived Status = "archived"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPast, StatusArchived:
		return true
	}
	return false
}

// Event represents a listed event managed by an organizer.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Location    string    `json:"location"`
	Published   bool      `json:"published"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Status      Status    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecordID implements Record.
func (e Event) RecordID() string { return e.ID }

// legacyEvent is the stored shape of an event, including the single
// date/time fields written before events had a start and an end.
type legacyEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Published   bool      `json:"published"`
	ImageURL    string    `json:"imageUrl"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UnmarshalJSON decodes an event and maps legacy date/time fields onto
// the start/end fields that are missing.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw legacyEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		StartDate:   firstNonEmpty(raw.StartDate, raw.Date),
		EndDate:     firstNonEmpty(raw.EndDate, raw.Date),
		StartTime:   firstNonEmpty(raw.StartTime, raw.Time),
		EndTime:     firstNonEmpty(raw.EndTime, raw.Time),
		Location:    raw.Location,
		Published:   raw.Published,
		ImageURL:    raw.ImageURL,
		Status:      raw.Status,
		CreatedAt:   raw.CreatedAt,
	}
	return nil
}

// Attendance is a registrant's RSVP answer.
type Attendance string

const (
	AttendingYes Attendance = "Yes"
	AttendingNo  Attendance = "No"
)

// Valid reports whether a is Yes or No.
func (a Attendance) Valid() bool {
	return a == AttendingYes || a == AttendingNo
}

// Registration represents an attendance response for an event.
type Registration struct {
	ID        string     `json:"id"`
	EventID   string     `json:"eventId"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Attending Attendance `json:"attending"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// RecordID implements Record.
func (r Registration) RecordID() string { return r.ID }

// EventFields is the payload for creating or updating an event.
// Published and ImageURL are pointers so an update can tell an omitted
// key apart from an explicit false or empty value.
type EventFields struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Location    string  `json:"location"`
	Published   *bool   `json:"published"`
	ImageURL    *string `json:"imageUrl"`
	Status      Status  `json:"status"`
}

// RegistrationFields is the payload for submitting a registration.
type RegistrationFields struct {
	EventID   string     `json:"eventId"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Attending Attendance `json:"attending"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
}

// MutationResponse acknowledges a write.
type MutationResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// ClearResponse reports how many events a bulk delete removed.
type ClearResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
