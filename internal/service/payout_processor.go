package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/queue"
	"github.com/amissa/backend/internal/repository"
	"github.com/amissa/backend/pkg/fedapay"
)

// Batch statuses reported in PayoutBatch.Status.
const (
	BatchDryRun      = "dry_run"
	BatchTransferred = "transferred"
	BatchFailed      = "failed"
)

// PayoutOptions selects what ProcessPayouts does.
type PayoutOptions struct {
	ParishID string // empty = every active parish
	DryRun   bool
}

// PayoutBatch is the transfer of one parish's pending intentions.
type PayoutBatch struct {
	ParishID     string   `json:"parish_id"`
	ParishName   string   `json:"parish_name"`
	IntentionIDs []string `json:"intention_ids"`
	Amount       int64    `json:"amount"`
	Status       string   `json:"status"`
	PayoutID     string   `json:"payout_id,omitempty"`
	Reference    string   `json:"reference,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// SkippedParish is a parish that could not receive a payout.
type SkippedParish struct {
	ParishID   string `json:"parish_id"`
	ParishName string `json:"parish_name"`
	Reason     string `json:"reason"`
}

// PayoutSummary aggregates one ProcessPayouts run.
type PayoutSummary struct {
	Attempted        int             `json:"attempted"`
	Succeeded        int             `json:"succeeded"`
	Failed           int             `json:"failed"`
	TotalTransferred int64           `json:"total_transferred"`
	Batches          []PayoutBatch   `json:"batches"`
	Skipped          []SkippedParish `json:"skipped"`
}

// PayoutProcessor transfers collected intention funds to parishes.
type PayoutProcessor interface {
	// ProcessPayouts handles every parish independently. Per-parish read
	// failures are reported in Skipped and joined into the returned error
	// next to a non-nil summary.
	ProcessPayouts(ctx context.Context, opts PayoutOptions) (*PayoutSummary, error)
}

type payoutProcessor struct {
	parishes   repository.ParishRepository
	intentions repository.IntentionRepository
	gateway    fedapay.Client
	publisher  queue.Publisher // optional, nil = skip
	now        func() time.Time
}

// NewPayoutProcessor creates a PayoutProcessor. publisher can be nil.
func NewPayoutProcessor(parishes repository.ParishRepository, intentions repository.IntentionRepository, gateway fedapay.Client, publisher queue.Publisher) PayoutProcessor {
	return &payoutProcessor{
		parishes:   parishes,
		intentions: intentions,
		gateway:    gateway,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (p *payoutProcessor) ProcessPayouts(ctx context.Context, opts PayoutOptions) (*PayoutSummary, error) {
	var parishes []*model.Parish
	if opts.ParishID != "" {
		parish, err := p.parishes.GetByID(ctx, opts.ParishID)
		if err != nil {
			return nil, err
		}
		parishes = []*model.Parish{parish}
	} else {
		list, err := p.parishes.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list parishes: %w", err)
		}
		parishes = list
	}

	summary := &PayoutSummary{}
	var errs []error
	for _, parish := range parishes {
		if !parish.HasPayoutDestination() {
			slog.Warn("payout skipped, no mobile money number", "parish_id", parish.ID, "parish", parish.Name)
			summary.Skipped = append(summary.Skipped, SkippedParish{
				ParishID: parish.ID, ParishName: parish.Name, Reason: "no mobile money number",
			})
			continue
		}

		candidates, err := p.intentions.ListPendingPayoutByParish(ctx, parish.ID)
		if err != nil {
			err = fmt.Errorf("pending payouts of parish %s: %w", parish.ID, err)
			slog.Error("payout skipped, read failed", "parish_id", parish.ID, "error", err)
			summary.Skipped = append(summary.Skipped, SkippedParish{
				ParishID: parish.ID, ParishName: parish.Name, Reason: "read failed: " + err.Error(),
			})
			errs = append(errs, err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		batch := PayoutBatch{ParishID: parish.ID, ParishName: parish.Name}
		for _, c := range candidates {
			batch.IntentionIDs = append(batch.IntentionIDs, c.IntentionID)
			batch.Amount += c.Amount
		}
		slog.Info("payout batch", "parish_id", parish.ID, "intentions", len(candidates),
			"amount", batch.Amount, "dry_run", opts.DryRun)

		if opts.DryRun {
			batch.Status = BatchDryRun
			summary.Batches = append(summary.Batches, batch)
			continue
		}

		summary.Attempted++
		p.transfer(ctx, parish, &batch)
		if batch.Status == BatchTransferred {
			summary.Succeeded++
			summary.TotalTransferred += batch.Amount
		} else {
			summary.Failed++
		}
		summary.Batches = append(summary.Batches, batch)
	}
	return summary, errors.Join(errs...)
}

// transfer sends one batch through the gateway and records the outcome on
// every intention of the batch at once.
func (p *payoutProcessor) transfer(ctx context.Context, parish *model.Parish, batch *PayoutBatch) {
	payout, err := p.gateway.CreatePayout(ctx, fedapay.PayoutParams{
		APIKey:   parish.GatewayAPIKey,
		Amount:   batch.Amount,
		Currency: model.Currency,
		Phone:    parish.MobileMoneyNumber,
		Metadata: map[string]any{
			"parish_id":     parish.ID,
			"parish_name":   parish.Name,
			"intention_ids": batch.IntentionIDs,
		},
	})
	if err == nil {
		err = p.gateway.StartPayout(ctx, payout.ID, parish.GatewayAPIKey)
	}
	if err != nil {
		gwErr := &GatewayError{Op: "payout", Err: err}
		slog.Error("payout failed", "parish_id", parish.ID, "amount", batch.Amount, "error", gwErr)
		batch.Status = BatchFailed
		batch.Error = gwErr.Error()
		if merr := p.intentions.MarkPayoutFailed(ctx, batch.IntentionIDs); merr != nil {
			slog.Error("mark payout failed", "parish_id", parish.ID, "error", merr)
			batch.Error += "; " + merr.Error()
		}
		return
	}

	reference := payout.Reference
	if reference == "" {
		reference = payout.ID
	}
	batch.Status = BatchTransferred
	batch.PayoutID = payout.ID
	batch.Reference = reference
	if err := p.intentions.MarkPayoutTransferred(ctx, batch.IntentionIDs, reference); err != nil {
		// the money is gone; the operator must reconcile by reference
		slog.Error("record payout failed", "parish_id", parish.ID, "reference", reference, "error", err)
		batch.Error = err.Error()
	}
	slog.Info("payout transferred", "parish_id", parish.ID, "amount", batch.Amount, "reference", reference)

	if p.publisher != nil {
		ev := queue.PayoutCompletedEvent{
			ParishID:     parish.ID,
			ParishName:   parish.Name,
			PayoutID:     payout.ID,
			Reference:    reference,
			Amount:       batch.Amount,
			Currency:     model.Currency,
			IntentionIDs: batch.IntentionIDs,
			CompletedAt:  p.now().UTC().Format(time.RFC3339),
		}
		if err := p.publisher.Publish(ctx, queue.PayoutCompletedQueue, ev); err != nil {
			slog.Warn("publish payout.completed failed", "parish_id", parish.ID, "error", err)
		}
	}
}
