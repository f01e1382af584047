package repository

import (
	"context"

	"github.com/amissa/backend/internal/model"
)

// IntentionRepository handles persistence for intentions and their payment/payout states.
type IntentionRepository interface {
	// Create inserts the intention. A reference collision returns ErrDuplicate.
	Create(ctx context.Context, in *model.Intention) error
	GetByID(ctx context.Context, id string) (*model.Intention, error)
	GetByReference(ctx context.Context, reference string) (*model.Intention, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Intention, error)
	SetTransactionID(ctx context.Context, id, transactionID string) error
	// TransitionPayment moves the payment status from -> to and adjusts the
	// owning occurrence's intention count by counterDelta in one transaction.
	// Returns ErrConflict when the intention is no longer in state from.
	TransitionPayment(ctx context.Context, id string, from, to model.PaymentStatus, counterDelta int) error
	// ListPendingPayoutByParish returns paid intentions of the parish whose payout is pending.
	ListPendingPayoutByParish(ctx context.Context, parishID string) ([]model.PayoutCandidate, error)
	MarkPayoutTransferred(ctx context.Context, ids []string, reference string) error
	MarkPayoutFailed(ctx context.Context, ids []string) error
}
