package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amissa/backend/internal/lock"
	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/repository"
)

const generationLockTTL = 2 * time.Minute

// GenerationSummary reports how many occurrences were created for one mass.
type GenerationSummary struct {
	ParishName string `json:"parish_name"`
	MassTitle  string `json:"mass_title"`
	MassID     string `json:"mass_id"`
	Count      int    `json:"count"`
}

// OccurrenceGenerator materializes the dated occurrences of recurring masses.
type OccurrenceGenerator interface {
	// Generate creates the missing occurrences of mass up to today+horizonDays
	// and returns how many were created.
	Generate(ctx context.Context, mass *model.Mass, horizonDays int) (int, error)
	// GenerateForAll runs Generate for every active recurring mass. Only masses
	// that received new occurrences appear in the summary. A per-mass failure
	// does not stop the run: the summary is returned non-nil alongside the
	// joined errors. A nil summary means nothing ran.
	GenerateForAll(ctx context.Context, horizonDays int) ([]GenerationSummary, error)
}

// GeneratorConfig holds the optional collaborators of the generator.
type GeneratorConfig struct {
	Location *time.Location   // calendar used for dates; UTC when nil
	Now      func() time.Time // clock; time.Now when nil
	Locker   lock.Locker      // per-mass serialization; nil = caller serializes
}

type occurrenceGenerator struct {
	masses      repository.MassRepository
	occurrences repository.OccurrenceRepository
	locker      lock.Locker
	loc         *time.Location
	now         func() time.Time
}

// NewOccurrenceGenerator creates an OccurrenceGenerator.
func NewOccurrenceGenerator(masses repository.MassRepository, occurrences repository.OccurrenceRepository, cfg GeneratorConfig) OccurrenceGenerator {
	g := &occurrenceGenerator{
		masses:      masses,
		occurrences: occurrences,
		locker:      cfg.Locker,
		loc:         cfg.Location,
		now:         cfg.Now,
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// calendarDay returns midnight of t's calendar date in loc, without converting t.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (g *occurrenceGenerator) Generate(ctx context.Context, mass *model.Mass, horizonDays int) (int, error) {
	if !mass.IsRecurring() || !mass.IsActive() {
		return 0, nil
	}

	if g.locker != nil {
		release, err := g.locker.Acquire(ctx, "lock:generate:"+mass.ID, generationLockTTL)
		if errors.Is(err, lock.ErrBusy) {
			return 0, ErrGenerationInProgress
		}
		if err != nil {
			return 0, fmt.Errorf("acquire generation lock: %w", err)
		}
		defer release()
	}

	today := calendarDay(g.now().In(g.loc), g.loc)

	latest, err := g.occurrences.LatestAt(ctx, mass.ID)
	if err != nil {
		return 0, fmt.Errorf("latest occurrence: %w", err)
	}
	var start time.Time
	switch {
	case latest != nil:
		start = calendarDay(latest.In(g.loc), g.loc).AddDate(0, 0, 1)
	case mass.StartDate != nil:
		start = calendarDay(*mass.StartDate, g.loc)
	default:
		start = today
	}

	end := today.AddDate(0, 0, horizonDays)
	if mass.EndDate != nil {
		if last := calendarDay(*mass.EndDate, g.loc); last.Before(end) {
			end = last
		}
	}
	if start.After(end) {
		return 0, nil
	}

	var created []*model.Occurrence
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !mass.Recurrence.Matches(day) {
			continue
		}
		created = append(created, &model.Occurrence{
			MassID: mass.ID,
			At:     mass.TimeOfDay.On(day),
			Status: model.OccurrenceConfirmed,
		})
	}
	if len(created) == 0 {
		return 0, nil
	}

	if err := g.occurrences.CreateBatch(ctx, created); err != nil {
		return 0, fmt.Errorf("create occurrences: %w", err)
	}
	slog.Info("occurrences generated",
		"mass_id", mass.ID, "count", len(created),
		"from", start.Format(time.DateOnly), "to", end.Format(time.DateOnly))
	return len(created), nil
}

func (g *occurrenceGenerator) GenerateForAll(ctx context.Context, horizonDays int) ([]GenerationSummary, error) {
	masses, err := g.masses.ListActiveRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring masses: %w", err)
	}

	summary := []GenerationSummary{}
	var errs []error
	for _, pm := range masses {
		n, err := g.Generate(ctx, pm.Mass, horizonDays)
		if errors.Is(err, ErrGenerationInProgress) {
			slog.Info("generation skipped, already running", "mass_id", pm.Mass.ID)
			continue
		}
		if err != nil {
			slog.Error("generation failed", "mass_id", pm.Mass.ID, "parish", pm.ParishName, "error", err)
			errs = append(errs, fmt.Errorf("mass %s: %w", pm.Mass.ID, err))
			continue
		}
		if n > 0 {
			summary = append(summary, GenerationSummary{
				ParishName: pm.ParishName,
				MassTitle:  pm.Mass.Title,
				MassID:     pm.Mass.ID,
				Count:      n,
			})
		}
	}
	return summary, errors.Join(errs...)
}
