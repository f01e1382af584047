package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/queue"
	"github.com/amissa/backend/internal/repository"
	"github.com/amissa/backend/pkg/fedapay"
)

// ReconcileOutcome describes what a gateway event did to an intention.
type ReconcileOutcome struct {
	IntentionID string              `json:"intention_id"`
	Reference   string              `json:"reference"`
	From        model.PaymentStatus `json:"from"`
	To          model.PaymentStatus `json:"payment_status"`
	Changed     bool                `json:"changed"`
}

// PaymentReconciler applies gateway webhook events to intentions.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, event fedapay.WebhookEvent) (*ReconcileOutcome, error)
}

// ReconcilerConfig holds the optional settings of the reconciler.
type ReconcilerConfig struct {
	// RefundAsRefunded maps gateway "refunded" to the refunded status instead of failed.
	RefundAsRefunded bool
	Publisher        queue.Publisher // optional, nil = skip
	Now              func() time.Time
}

type paymentReconciler struct {
	intentions       repository.IntentionRepository
	publisher        queue.Publisher
	refundAsRefunded bool
	now              func() time.Time
}

// NewPaymentReconciler creates a PaymentReconciler.
func NewPaymentReconciler(intentions repository.IntentionRepository, cfg ReconcilerConfig) PaymentReconciler {
	r := &paymentReconciler{
		intentions:       intentions,
		publisher:        cfg.Publisher,
		refundAsRefunded: cfg.RefundAsRefunded,
		now:              cfg.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// MapGatewayStatus converts a gateway transaction status to a payment status.
// Unknown statuses stay pending.
func MapGatewayStatus(status string, refundAsRefunded bool) model.PaymentStatus {
	switch status {
	case "approved":
		return model.PaymentPaid
	case "refunded":
		if refundAsRefunded {
			return model.PaymentRefunded
		}
		return model.PaymentFailed
	case "declined", "canceled":
		return model.PaymentFailed
	default:
		return model.PaymentPending
	}
}

// counterDelta is the change of the occurrence's paid-intention count for from -> to.
func counterDelta(from, to model.PaymentStatus) int {
	switch {
	case to == model.PaymentPaid:
		return 1
	case from == model.PaymentPaid:
		return -1
	}
	return 0
}

func (r *paymentReconciler) Reconcile(ctx context.Context, event fedapay.WebhookEvent) (*ReconcileOutcome, error) {
	txID := strings.TrimSpace(string(event.Entity.ID))
	if txID == "" {
		return nil, ErrMalformedEvent
	}
	target := MapGatewayStatus(event.Entity.Status, r.refundAsRefunded)

	in, err := r.intentions.GetByTransactionID(ctx, txID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownTransaction
	}
	if err != nil {
		return nil, fmt.Errorf("lookup transaction %s: %w", txID, err)
	}

	out := &ReconcileOutcome{
		IntentionID: in.ID,
		Reference:   in.Reference,
		From:        in.PaymentStatus,
		To:          in.PaymentStatus,
	}
	if in.PaymentStatus == target {
		return out, nil
	}
	if !in.PaymentStatus.CanTransitionTo(target) {
		slog.Warn("payment transition ignored",
			"intention_id", in.ID, "transaction_id", txID,
			"from", in.PaymentStatus, "to", target, "gateway_status", event.Entity.Status)
		return out, nil
	}

	err = r.intentions.TransitionPayment(ctx, in.ID, in.PaymentStatus, target, counterDelta(in.PaymentStatus, target))
	if errors.Is(err, repository.ErrConflict) {
		// another delivery moved the intention first
		if cur, gerr := r.intentions.GetByID(ctx, in.ID); gerr == nil {
			out.To = cur.PaymentStatus
		}
		slog.Info("payment transition already applied", "intention_id", in.ID, "transaction_id", txID)
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transition payment: %w", err)
	}
	out.To = target
	out.Changed = true
	slog.Info("payment status updated",
		"intention_id", in.ID, "transaction_id", txID, "from", out.From, "to", out.To)

	if target == model.PaymentPaid && r.publisher != nil {
		ev := queue.IntentionPaidEvent{
			IntentionID:   in.ID,
			Reference:     in.Reference,
			OccurrenceID:  in.OccurrenceID,
			TransactionID: txID,
			Amount:        in.Amount,
			Currency:      model.Currency,
			PaidAt:        r.now().UTC().Format(time.RFC3339),
		}
		if err := r.publisher.Publish(ctx, queue.IntentionPaidQueue, ev); err != nil {
			slog.Warn("publish intention.paid failed", "intention_id", in.ID, "error", err)
		}
	}
	return out, nil
}
