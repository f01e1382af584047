package repository

import (
	"context"

	"github.com/amissa/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgMassRepository struct {
	pool *pgxpool.Pool
}

// NewPgMassRepository returns a PostgreSQL-backed MassRepository.
func NewPgMassRepository(pool *pgxpool.Pool) MassRepository {
	return &pgMassRepository{pool: pool}
}

const massSelectCols = `m.id, m.parish_id, m.title, m.kind, m.recurrence_frequency,
	m.recurrence_weekday, m.recurrence_day, to_char(m.time_of_day, 'HH24:MI'),
	m.suggested_amount, m.status, m.start_date, m.end_date, m.created_at, m.updated_at`

func scanMass(scan func(...any) error, extra ...any) (*model.Mass, error) {
	m := &model.Mass{}
	var (
		freq       *string
		weekday    *int
		dayOfMonth *int
		tod        string
	)
	dest := []any{
		&m.ID, &m.ParishID, &m.Title, &m.Kind, &freq,
		&weekday, &dayOfMonth, &tod,
		&m.SuggestedAmount, &m.Status, &m.StartDate, &m.EndDate, &m.CreatedAt, &m.UpdatedAt,
	}
	if err := scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if freq != nil {
		m.Recurrence = &model.RecurrenceRule{
			Frequency:  model.Frequency(*freq),
			Weekday:    weekday,
			DayOfMonth: dayOfMonth,
		}
	}
	t, err := model.ParseTimeOfDay(tod)
	if err != nil {
		return nil, err
	}
	m.TimeOfDay = t
	return m, nil
}

func (r *pgMassRepository) GetByID(ctx context.Context, id string) (*model.Mass, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+massSelectCols+` FROM masses m WHERE m.id = $1`, id)
	m, err := scanMass(row.Scan)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *pgMassRepository) Create(ctx context.Context, m *model.Mass, occurrences ...*model.Occurrence) error {
	var (
		freq       *string
		weekday    *int
		dayOfMonth *int
	)
	if m.Recurrence != nil {
		f := string(m.Recurrence.Frequency)
		freq = &f
		weekday = m.Recurrence.Weekday
		dayOfMonth = m.Recurrence.DayOfMonth
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO masses
			 (id, parish_id, title, kind, recurrence_frequency, recurrence_weekday, recurrence_day,
			  time_of_day, suggested_amount, status, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::time, $9, $10, $11, $12)
			 RETURNING created_at, updated_at`,
			m.ID, m.ParishID, m.Title, m.Kind, freq, weekday, dayOfMonth,
			m.TimeOfDay.String(), m.SuggestedAmount, m.Status, m.StartDate, m.EndDate,
		).Scan(&m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		for _, o := range occurrences {
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.MassID = m.ID
			if _, err := tx.Exec(ctx,
				`INSERT INTO occurrences (id, mass_id, at, status, intention_count)
				 VALUES ($1, $2, $3, $4, $5)`,
				o.ID, o.MassID, o.At, o.Status, o.IntentionCount,
			); err != nil {
				if isDuplicate(err) {
					return ErrDuplicate
				}
				return err
			}
		}
		return nil
	})
}

func (r *pgMassRepository) UpdateStatus(ctx context.Context, id string, status model.MassStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE masses SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgMassRepository) ListActiveRecurring(ctx context.Context) ([]*model.ParishMass, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+massSelectCols+`, p.name
		 FROM masses m JOIN parishes p ON p.id = m.parish_id
		 WHERE m.kind = 'recurring' AND m.status = 'active'
		 ORDER BY p.name, m.title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*model.ParishMass
	for rows.Next() {
		pm := &model.ParishMass{}
		m, err := scanMass(rows.Scan, &pm.ParishName)
		if err != nil {
			return nil, err
		}
		pm.Mass = m
		list = append(list, pm)
	}
	return list, rows.Err()
}
