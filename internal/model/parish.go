package model

import "time"

// Parish owns masses and receives payouts on its mobile-money number.
type Parish struct {
	ID                string    `json:"id"`
	DioceseID         string    `json:"diocese_id"`
	Name              string    `json:"name"`
	MobileMoneyNumber string    `json:"mobile_money_number,omitempty"`
	MinimumNoticeDays int       `json:"minimum_notice_days"`
	Active            bool      `json:"active"`
	GatewayAPIKey     string    `json:"-"` // diocese-level gateway key override
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasPayoutDestination reports whether the parish can receive a payout.
func (p *Parish) HasPayoutDestination() bool {
	return p.MobileMoneyNumber != ""
}

// BookingDeadline returns the instant an occurrence must be strictly after
// to still accept intentions.
func (p *Parish) BookingDeadline(now time.Time) time.Time {
	return now.AddDate(0, 0, p.MinimumNoticeDays)
}
