package model

import "time"

// Frequency is the repetition pattern of a recurring mass.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrenceRule describes which calendar dates produce an occurrence.
// Weekday uses 0=Sunday..6=Saturday. DayOfMonth defaults to 1 when unset.
type RecurrenceRule struct {
	Frequency  Frequency `json:"frequency"`
	Weekday    *int      `json:"weekday,omitempty"`
	DayOfMonth *int      `json:"day_of_month,omitempty"`
}

// Matches reports whether date belongs to the rule. A nil rule or an
// unknown frequency never matches.
func (r *RecurrenceRule) Matches(date time.Time) bool {
	if r == nil {
		return false
	}
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		if r.Weekday == nil {
			return false
		}
		return int(date.Weekday()) == *r.Weekday
	case FrequencyMonthly:
		day := 1
		if r.DayOfMonth != nil {
			day = *r.DayOfMonth
		}
		return date.Day() == day
	default:
		return false
	}
}

// Valid reports whether the rule is well-formed enough to store.
func (r *RecurrenceRule) Valid() bool {
	if r == nil {
		return false
	}
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return r.Weekday != nil && *r.Weekday >= 0 && *r.Weekday <= 6
	case FrequencyMonthly:
		return r.DayOfMonth == nil || (*r.DayOfMonth >= 1 && *r.DayOfMonth <= 31)
	}
	return false
}
