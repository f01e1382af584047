package repository

import (
	"context"

	"github.com/amissa/backend/internal/model"
)

// MassRepository handles persistence for mass definitions.
type MassRepository interface {
	GetByID(ctx context.Context, id string) (*model.Mass, error)
	// Create inserts the mass and sets its ID and timestamps. The given
	// occurrences are attached to the mass and inserted in the same
	// transaction; nothing is stored when any insert fails.
	Create(ctx context.Context, m *model.Mass, occurrences ...*model.Occurrence) error
	UpdateStatus(ctx context.Context, id string, status model.MassStatus) error
	// ListActiveRecurring returns every active recurring mass joined with its parish name.
	ListActiveRecurring(ctx context.Context) ([]*model.ParishMass, error)
}
