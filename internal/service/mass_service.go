package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amissa/backend/internal/logging"
	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/repository"
)

// MassService manages mass definitions on behalf of parish staff.
type MassService interface {
	// CreateMass stores the mass and creates its first occurrences. It returns
	// the number of occurrences created.
	CreateMass(ctx context.Context, actor *model.Actor, mass *model.Mass, horizonDays int) (int, error)
	// SetStatus suspends or reactivates a mass. Existing occurrences are kept.
	SetStatus(ctx context.Context, actor *model.Actor, massID string, status model.MassStatus) (*model.Mass, error)
	// CancelOccurrence withdraws one occurrence from booking.
	CancelOccurrence(ctx context.Context, actor *model.Actor, occurrenceID string) error
}

type massService struct {
	parishes    repository.ParishRepository
	masses      repository.MassRepository
	occurrences repository.OccurrenceRepository
	generator   OccurrenceGenerator
	policy      Policy
	loc         *time.Location
}

// NewMassService creates a MassService. loc is the calendar of one-time mass dates.
func NewMassService(parishes repository.ParishRepository, masses repository.MassRepository, occurrences repository.OccurrenceRepository, generator OccurrenceGenerator, loc *time.Location) MassService {
	if loc == nil {
		loc = time.UTC
	}
	return &massService{
		parishes:    parishes,
		masses:      masses,
		occurrences: occurrences,
		generator:   generator,
		loc:         loc,
	}
}

func (s *massService) CreateMass(ctx context.Context, actor *model.Actor, mass *model.Mass, horizonDays int) (int, error) {
	parish, err := s.parishes.GetByID(ctx, mass.ParishID)
	if err != nil {
		return 0, err
	}
	if err := s.policy.Authorize(actor, ParishScope(parish)); err != nil {
		return 0, err
	}

	if mass.Status == "" {
		mass.Status = model.MassStatusActive
	}
	if err := mass.Validate(); err != nil {
		return 0, &ValidationError{Message: err.Error()}
	}
	if !mass.IsRecurring() {
		// a one-time mass is stored together with its single occurrence
		occ := &model.Occurrence{
			At:     mass.TimeOfDay.On(calendarDay(*mass.StartDate, s.loc)),
			Status: model.OccurrenceConfirmed,
		}
		if err := s.masses.Create(ctx, mass, occ); err != nil {
			return 0, fmt.Errorf("create mass: %w", err)
		}
		slog.Info("mass created", logging.Actor(actor), "mass_id", mass.ID, "parish_id", parish.ID, "kind", mass.Kind)
		return 1, nil
	}

	if err := s.masses.Create(ctx, mass); err != nil {
		return 0, fmt.Errorf("create mass: %w", err)
	}
	slog.Info("mass created", logging.Actor(actor), "mass_id", mass.ID, "parish_id", parish.ID, "kind", mass.Kind)
	return s.generator.Generate(ctx, mass, horizonDays)
}

func (s *massService) SetStatus(ctx context.Context, actor *model.Actor, massID string, status model.MassStatus) (*model.Mass, error) {
	if status != model.MassStatusActive && status != model.MassStatusSuspended {
		return nil, &ValidationError{Field: "status", Message: "must be active or suspended"}
	}
	mass, err := s.masses.GetByID(ctx, massID)
	if err != nil {
		return nil, err
	}
	parish, err := s.parishes.GetByID(ctx, mass.ParishID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, ParishScope(parish)); err != nil {
		return nil, err
	}
	if mass.Status == status {
		return mass, nil
	}
	if err := s.masses.UpdateStatus(ctx, massID, status); err != nil {
		return nil, err
	}
	mass.Status = status
	slog.Info("mass status changed", logging.Actor(actor), "mass_id", massID, "status", status)
	return mass, nil
}

func (s *massService) CancelOccurrence(ctx context.Context, actor *model.Actor, occurrenceID string) error {
	oc, err := s.occurrences.GetContext(ctx, occurrenceID)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(actor, ParishScope(oc.Parish)); err != nil {
		return err
	}
	if oc.Occurrence.Status == model.OccurrenceCancelled {
		return nil
	}
	if err := s.occurrences.Cancel(ctx, occurrenceID); err != nil {
		return err
	}
	slog.Info("occurrence cancelled", logging.Actor(actor), "occurrence_id", occurrenceID,
		"paid_intentions", oc.Occurrence.IntentionCount)
	return nil
}
