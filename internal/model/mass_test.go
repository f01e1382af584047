package model

import (
	"testing"
	"time"
)

func validRecurringMass() *Mass {
	return &Mass{
		ParishID:   "parish-1",
		Title:      "Messe dominicale",
		Kind:       MassKindRecurring,
		Recurrence: &RecurrenceRule{Frequency: FrequencyWeekly, Weekday: intPtr(0)},
		TimeOfDay:  TimeOfDay{Hour: 9},
		Status:     MassStatusActive,
	}
}

func TestMass_Validate_RecurringOK(t *testing.T) {
	if err := validRecurringMass().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMass_Validate_RecurringRequiresRule(t *testing.T) {
	m := validRecurringMass()
	m.Recurrence = nil
	if err := m.Validate(); err == nil {
		t.Error("expected error for recurring mass without rule")
	}
}

func TestMass_Validate_OneTimeRejectsRule(t *testing.T) {
	start := date(2026, time.March, 2)
	m := validRecurringMass()
	m.Kind = MassKindOneTime
	m.StartDate = &start
	if err := m.Validate(); err == nil {
		t.Error("expected error for one-time mass with rule")
	}
	m.Recurrence = nil
	if err := m.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMass_Validate_EndBeforeStart(t *testing.T) {
	start := date(2026, time.March, 10)
	end := date(2026, time.March, 1)
	m := validRecurringMass()
	m.StartDate = &start
	m.EndDate = &end
	if err := m.Validate(); err == nil {
		t.Error("expected error when end date precedes start date")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("18:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.Hour != 18 || tod.Minute != 30 {
		t.Errorf("got %v", tod)
	}
	if tod.String() != "18:30" {
		t.Errorf("String() = %q", tod.String())
	}
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Error("expected error for invalid hour")
	}
}

func TestTimeOfDay_On(t *testing.T) {
	got := TimeOfDay{Hour: 9}.On(time.Date(2026, time.March, 8, 23, 59, 0, 0, time.UTC))
	want := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOccurrence_Bookable(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	parish := &Parish{MinimumNoticeDays: 2}
	deadline := parish.BookingDeadline(now)
	if !deadline.Equal(time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected deadline %v", deadline)
	}

	o := &Occurrence{Status: OccurrenceConfirmed, At: deadline}
	if o.Bookable(deadline) {
		t.Error("occurrence exactly at the deadline must not be bookable")
	}
	o.At = o.At.Add(time.Minute)
	if !o.Bookable(deadline) {
		t.Error("occurrence after the deadline should be bookable")
	}
	o.Status = OccurrenceCancelled
	if o.Bookable(deadline) {
		t.Error("cancelled occurrence must not be bookable")
	}
}

func TestParish_BookingDeadline_NoNotice(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	p := &Parish{}
	if got := p.BookingDeadline(now); !got.Equal(now) {
		t.Errorf("expected deadline to equal now, got %v", got)
	}
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentPending, PaymentRefunded, true},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentPaid, PaymentFailed, false},
		{PaymentPaid, PaymentPending, false},
		{PaymentFailed, PaymentPaid, false},
		{PaymentRefunded, PaymentPaid, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
