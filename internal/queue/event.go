// Package queue defines domain events and publishes them to the message broker.
package queue

// Queue names, also used as routing keys on the default exchange.
const (
	IntentionPaidQueue   = "intention.paid"
	PayoutCompletedQueue = "payout.completed"
)

// IntentionPaidEvent is published once an intention's payment is confirmed.
type IntentionPaidEvent struct {
	IntentionID   string `json:"intention_id"`
	Reference     string `json:"reference"`
	OccurrenceID  string `json:"occurrence_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaidAt        string `json:"paid_at"`
}

// PayoutCompletedEvent is published after a parish batch has been transferred.
type PayoutCompletedEvent struct {
	ParishID     string   `json:"parish_id"`
	ParishName   string   `json:"parish_name"`
	PayoutID     string   `json:"payout_id"`
	Reference    string   `json:"reference"`
	Amount       int64    `json:"amount"`
	Currency     string   `json:"currency"`
	IntentionIDs []string `json:"intention_ids"`
	CompletedAt  string   `json:"completed_at"`
}
