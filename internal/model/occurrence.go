package model

import "time"

// OccurrenceStatus is the lifecycle state of an occurrence.
type OccurrenceStatus string

const (
	OccurrenceConfirmed OccurrenceStatus = "confirmed"
	OccurrenceCancelled OccurrenceStatus = "cancelled"
)

// Occurrence is one concrete dated instance of a Mass.
// IntentionCount counts paid intentions only.
type Occurrence struct {
	ID             string           `json:"id"`
	MassID         string           `json:"mass_id"`
	At             time.Time        `json:"at"`
	Status         OccurrenceStatus `json:"status"`
	IntentionCount int              `json:"intention_count"`
}

// Bookable reports whether the occurrence accepts new intentions: it must be
// confirmed and strictly later than deadline (see Parish.BookingDeadline).
func (o *Occurrence) Bookable(deadline time.Time) bool {
	return o.Status == OccurrenceConfirmed && o.At.After(deadline)
}

// OccurrenceContext is an occurrence joined with its mass and parish, as
// returned by a single storage lookup.
type OccurrenceContext struct {
	Occurrence *Occurrence
	Mass       *Mass
	Parish     *Parish
}
