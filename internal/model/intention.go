package model

import "time"

// Currency is the settlement currency of every intention and payout.
const Currency = "XOF"

// PaymentStatus is the payment state of an intention.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// CanTransitionTo reports whether the payment state machine allows s → to.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return to == PaymentPaid || to == PaymentFailed || to == PaymentRefunded
	case PaymentPaid:
		return to == PaymentRefunded
	}
	return false
}

// PayoutStatus is the payout state of an intention.
type PayoutStatus string

const (
	PayoutPending     PayoutStatus = "pending"
	PayoutTransferred PayoutStatus = "transferred"
	PayoutFailed      PayoutStatus = "failed"
)

// Intention is a prayer request booked against one occurrence.
type Intention struct {
	ID              string        `json:"id"`
	OccurrenceID    string        `json:"occurrence_id"`
	Reference       string        `json:"reference"`
	RequesterName   string        `json:"requester_name"`
	Phone           string        `json:"phone,omitempty"`
	Email           string        `json:"email,omitempty"`
	Beneficiary     string        `json:"beneficiary,omitempty"`
	Category        string        `json:"category,omitempty"`
	Text            string        `json:"text,omitempty"`
	Amount          int64         `json:"amount"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	TransactionID   string        `json:"-"`
	PayoutStatus    PayoutStatus  `json:"payout_status"`
	PayoutReference string        `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// BeneficiaryDisplay returns the beneficiary or a generic label.
func (i *Intention) BeneficiaryDisplay() string {
	if i.Beneficiary == "" {
		return "un(e) fidèle"
	}
	return i.Beneficiary
}

// categoryLabels maps the known intention categories to display labels.
var categoryLabels = map[string]string{
	"repos_ame":    "Repos de l'âme",
	"action_grace": "Action de grâce",
	"guerison":     "Demande de guérison",
	"particuliere": "Intention particulière",
	"anniversaire": "Anniversaire",
	"mariage":      "Mariage",
	"defunt":       "Pour un défunt",
}

// CategoryLabel returns a human label for the intention category.
func (i *Intention) CategoryLabel() string {
	if i.Category == "" {
		return "Intention rédigée"
	}
	if l, ok := categoryLabels[i.Category]; ok {
		return l
	}
	return i.Category
}

// PayoutCandidate is a paid intention waiting for transfer to its parish.
type PayoutCandidate struct {
	IntentionID string
	Reference   string
	Amount      int64
}
