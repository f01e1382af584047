package model

import (
	"errors"
	"fmt"
	"time"
)

// MassKind distinguishes recurring masses from one-off celebrations.
type MassKind string

const (
	MassKindRecurring MassKind = "recurring"
	MassKindOneTime   MassKind = "one-time"
)

// MassStatus controls whether new occurrences are generated.
type MassStatus string

const (
	MassStatusActive    MassStatus = "active"
	MassStatusSuspended MassStatus = "suspended"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On combines the calendar date of day with t, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// Mass is a definition of a worship service; occurrences are its dated instances.
type Mass struct {
	ID              string          `json:"id"`
	ParishID        string          `json:"parish_id"`
	Title           string          `json:"title"`
	Kind            MassKind        `json:"kind"`
	Recurrence      *RecurrenceRule `json:"recurrence,omitempty"`
	TimeOfDay       TimeOfDay       `json:"time_of_day"`
	SuggestedAmount int64           `json:"suggested_amount"`
	Status          MassStatus      `json:"status"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsActive reports whether the mass still produces occurrences.
func (m *Mass) IsActive() bool {
	return m.Status == MassStatusActive
}

// IsRecurring reports whether the mass is generated from a recurrence rule.
func (m *Mass) IsRecurring() bool {
	return m.Kind == MassKindRecurring
}

// Validate checks the structural invariants of a mass definition.
func (m *Mass) Validate() error {
	if m.Title == "" {
		return errors.New("title is required")
	}
	if m.ParishID == "" {
		return errors.New("parish_id is required")
	}
	switch m.Kind {
	case MassKindRecurring:
		if m.Recurrence == nil {
			return errors.New("recurring mass requires a recurrence rule")
		}
		if !m.Recurrence.Valid() {
			return errors.New("invalid recurrence rule")
		}
	case MassKindOneTime:
		if m.Recurrence != nil {
			return errors.New("one-time mass cannot have a recurrence rule")
		}
		if m.StartDate == nil {
			return errors.New("one-time mass requires a start date")
		}
	default:
		return fmt.Errorf("unknown mass kind %q", m.Kind)
	}
	switch m.Status {
	case MassStatusActive, MassStatusSuspended:
	default:
		return fmt.Errorf("unknown mass status %q", m.Status)
	}
	if !m.TimeOfDay.valid() {
		return errors.New("invalid time of day")
	}
	if m.SuggestedAmount < 0 {
		return errors.New("suggested amount must not be negative")
	}
	if m.StartDate != nil && m.EndDate != nil && m.EndDate.Before(*m.StartDate) {
		return errors.New("end date is before start date")
	}
	return nil
}

// ParishMass is a mass joined with the name of its parish.
type ParishMass struct {
	Mass       *Mass
	ParishName string
}
