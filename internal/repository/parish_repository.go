package repository

import (
	"context"

	"github.com/amissa/backend/internal/model"
)

// ParishRepository reads parishes together with their diocese gateway settings.
type ParishRepository interface {
	GetByID(ctx context.Context, id string) (*model.Parish, error)
	ListActive(ctx context.Context) ([]*model.Parish, error)
}
