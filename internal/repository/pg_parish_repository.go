package repository

import (
	"context"

	"github.com/amissa/backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgParishRepository struct {
	pool *pgxpool.Pool
}

// NewPgParishRepository returns a PostgreSQL-backed ParishRepository.
func NewPgParishRepository(pool *pgxpool.Pool) ParishRepository {
	return &pgParishRepository{pool: pool}
}

const parishSelectCols = `p.id, p.diocese_id, p.name, COALESCE(p.mobile_money_number, ''),
	p.minimum_notice_days, p.active, COALESCE(d.fedapay_api_key, ''),
	p.created_at, p.updated_at`

const parishFrom = ` FROM parishes p JOIN dioceses d ON d.id = p.diocese_id`

func scanParish(scan func(...any) error) (*model.Parish, error) {
	p := &model.Parish{}
	return p, scan(
		&p.ID, &p.DioceseID, &p.Name, &p.MobileMoneyNumber,
		&p.MinimumNoticeDays, &p.Active, &p.GatewayAPIKey,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *pgParishRepository) GetByID(ctx context.Context, id string) (*model.Parish, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+parishSelectCols+parishFrom+` WHERE p.id = $1`, id)
	p, err := scanParish(row.Scan)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *pgParishRepository) ListActive(ctx context.Context) ([]*model.Parish, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+parishSelectCols+parishFrom+` WHERE p.active ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*model.Parish
	for rows.Next() {
		p, err := scanParish(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
