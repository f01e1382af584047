package repository

import (
	"context"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgOccurrenceRepository struct {
	pool *pgxpool.Pool
}

// NewPgOccurrenceRepository returns a PostgreSQL-backed OccurrenceRepository.
func NewPgOccurrenceRepository(pool *pgxpool.Pool) OccurrenceRepository {
	return &pgOccurrenceRepository{pool: pool}
}

// occurrenceContextQuery selects mass, occurrence and parish columns in that order.
const occurrenceContextQuery = `SELECT ` + massSelectCols + `,
	o.id, o.mass_id, o.at, o.status, o.intention_count, ` + parishSelectCols + `
	FROM occurrences o
	JOIN masses m ON m.id = o.mass_id
	JOIN parishes p ON p.id = m.parish_id
	JOIN dioceses d ON d.id = p.diocese_id`

func scanOccurrenceContext(scan func(...any) error) (*model.OccurrenceContext, error) {
	o := &model.Occurrence{}
	p := &model.Parish{}
	m, err := scanMass(scan,
		&o.ID, &o.MassID, &o.At, &o.Status, &o.IntentionCount,
		&p.ID, &p.DioceseID, &p.Name, &p.MobileMoneyNumber,
		&p.MinimumNoticeDays, &p.Active, &p.GatewayAPIKey,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model.OccurrenceContext{Occurrence: o, Mass: m, Parish: p}, nil
}

func (r *pgOccurrenceRepository) GetContext(ctx context.Context, id string) (*model.OccurrenceContext, error) {
	row := r.pool.QueryRow(ctx, occurrenceContextQuery+` WHERE o.id = $1`, id)
	oc, err := scanOccurrenceContext(row.Scan)
	if err != nil {
		return nil, notFound(err)
	}
	return oc, nil
}

func (r *pgOccurrenceRepository) LatestAt(ctx context.Context, massID string) (*time.Time, error) {
	var latest *time.Time
	if err := r.pool.QueryRow(ctx,
		`SELECT MAX(at) FROM occurrences WHERE mass_id = $1`, massID,
	).Scan(&latest); err != nil {
		return nil, err
	}
	return latest, nil
}

func (r *pgOccurrenceRepository) CreateBatch(ctx context.Context, occurrences []*model.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, o := range occurrences {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		batch.Queue(
			`INSERT INTO occurrences (id, mass_id, at, status, intention_count)
			 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, o.MassID, o.At, o.Status, o.IntentionCount,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range occurrences {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgOccurrenceRepository) Cancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE occurrences SET status = 'cancelled' WHERE id = $1`, id)
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgOccurrenceRepository) ListConfirmedByParish(ctx context.Context, parishID string, from, to time.Time) ([]*model.OccurrenceContext, error) {
	rows, err := r.pool.Query(ctx,
		occurrenceContextQuery+`
		 WHERE p.id = $1 AND o.status = 'confirmed' AND o.at >= $2 AND o.at < $3
		 ORDER BY o.at`,
		parishID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*model.OccurrenceContext
	for rows.Next() {
		oc, err := scanOccurrenceContext(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, oc)
	}
	return list, rows.Err()
}
