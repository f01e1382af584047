package repository

import (
	"context"
	"errors"

	"github.com/amissa/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgIntentionRepository struct {
	pool *pgxpool.Pool
}

// NewPgIntentionRepository returns a PostgreSQL-backed IntentionRepository.
func NewPgIntentionRepository(pool *pgxpool.Pool) IntentionRepository {
	return &pgIntentionRepository{pool: pool}
}

const intentionSelectCols = `id, occurrence_id, reference, requester_name,
	COALESCE(phone, ''), COALESCE(email, ''), COALESCE(beneficiary, ''),
	COALESCE(category, ''), COALESCE(text, ''), amount, payment_status,
	COALESCE(transaction_id, ''), payout_status, COALESCE(payout_reference, ''),
	created_at, updated_at`

func scanIntention(scan func(...any) error) (*model.Intention, error) {
	in := &model.Intention{}
	return in, scan(
		&in.ID, &in.OccurrenceID, &in.Reference, &in.RequesterName,
		&in.Phone, &in.Email, &in.Beneficiary,
		&in.Category, &in.Text, &in.Amount, &in.PaymentStatus,
		&in.TransactionID, &in.PayoutStatus, &in.PayoutReference,
		&in.CreatedAt, &in.UpdatedAt,
	)
}

func (r *pgIntentionRepository) Create(ctx context.Context, in *model.Intention) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO intentions
		 (id, occurrence_id, reference, requester_name, phone, email, beneficiary,
		  category, text, amount, payment_status, payout_status)
		 VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''),
		  NULLIF($8,''), NULLIF($9,''), $10, $11, $12)
		 RETURNING created_at, updated_at`,
		in.ID, in.OccurrenceID, in.Reference, in.RequesterName, in.Phone, in.Email, in.Beneficiary,
		in.Category, in.Text, in.Amount, in.PaymentStatus, in.PayoutStatus,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (r *pgIntentionRepository) getBy(ctx context.Context, column, value string) (*model.Intention, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+intentionSelectCols+` FROM intentions WHERE `+column+` = $1`, value)
	in, err := scanIntention(row.Scan)
	if err != nil {
		return nil, notFound(err)
	}
	return in, nil
}

func (r *pgIntentionRepository) GetByID(ctx context.Context, id string) (*model.Intention, error) {
	return r.getBy(ctx, "id", id)
}

func (r *pgIntentionRepository) GetByReference(ctx context.Context, reference string) (*model.Intention, error) {
	return r.getBy(ctx, "reference", reference)
}

func (r *pgIntentionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Intention, error) {
	return r.getBy(ctx, "transaction_id", transactionID)
}

func (r *pgIntentionRepository) SetTransactionID(ctx context.Context, id, transactionID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE intentions SET transaction_id = $1, updated_at = NOW() WHERE id = $2`,
		transactionID, id)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgIntentionRepository) TransitionPayment(ctx context.Context, id string, from, to model.PaymentStatus, counterDelta int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var occurrenceID string
	err = tx.QueryRow(ctx,
		`UPDATE intentions SET payment_status = $1, updated_at = NOW()
		 WHERE id = $2 AND payment_status = $3
		 RETURNING occurrence_id`,
		to, id, from,
	).Scan(&occurrenceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return err
	}

	if counterDelta != 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE occurrences SET intention_count = GREATEST(intention_count + $1, 0)
			 WHERE id = $2`,
			counterDelta, occurrenceID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *pgIntentionRepository) ListPendingPayoutByParish(ctx context.Context, parishID string) ([]model.PayoutCandidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.reference, i.amount
		 FROM intentions i
		 JOIN occurrences o ON o.id = i.occurrence_id
		 JOIN masses m ON m.id = o.mass_id
		 WHERE m.parish_id = $1 AND i.payment_status = 'paid' AND i.payout_status = 'pending'
		 ORDER BY i.created_at`,
		parishID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.PayoutCandidate
	for rows.Next() {
		var c model.PayoutCandidate
		if err := rows.Scan(&c.IntentionID, &c.Reference, &c.Amount); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *pgIntentionRepository) MarkPayoutTransferred(ctx context.Context, ids []string, reference string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE intentions SET payout_status = 'transferred', payout_reference = $1, updated_at = NOW()
		 WHERE id = ANY($2::uuid[]) AND payout_status = 'pending'`,
		reference, ids)
	return err
}

func (r *pgIntentionRepository) MarkPayoutFailed(ctx context.Context, ids []string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE intentions SET payout_status = 'failed', updated_at = NOW()
		 WHERE id = ANY($1::uuid[]) AND payout_status = 'pending'`,
		ids)
	return err
}
