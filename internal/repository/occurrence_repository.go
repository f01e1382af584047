package repository

import (
	"context"
	"time"

	"github.com/amissa/backend/internal/model"
)

// OccurrenceRepository handles persistence for dated mass occurrences.
type OccurrenceRepository interface {
	// GetContext returns the occurrence joined with its mass and parish.
	GetContext(ctx context.Context, id string) (*model.OccurrenceContext, error)
	// LatestAt returns the date-time of the latest occurrence of the mass, or nil when none exists.
	LatestAt(ctx context.Context, massID string) (*time.Time, error)
	// CreateBatch inserts all occurrences in a single transaction.
	CreateBatch(ctx context.Context, occurrences []*model.Occurrence) error
	Cancel(ctx context.Context, id string) error
	// ListConfirmedByParish returns confirmed occurrences of the parish in [from, to).
	ListConfirmedByParish(ctx context.Context, parishID string, from, to time.Time) ([]*model.OccurrenceContext, error)
}
