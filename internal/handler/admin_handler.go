package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amissa/backend/internal/logging"
	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/service"
)

// AdminHandler serves the operator endpoints. Every route expects an actor
// in the request context.
type AdminHandler struct {
	masses      service.MassService
	generator   service.OccurrenceGenerator
	payouts     service.PayoutProcessor
	policy      service.Policy
	horizonDays int
}

// NewAdminHandler creates an AdminHandler. horizonDays is the default
// generation horizon.
func NewAdminHandler(masses service.MassService, generator service.OccurrenceGenerator, payouts service.PayoutProcessor, horizonDays int) *AdminHandler {
	return &AdminHandler{
		masses:      masses,
		generator:   generator,
		payouts:     payouts,
		horizonDays: horizonDays,
	}
}

type massRequest struct {
	ParishID        string                `json:"parish_id"`
	Title           string                `json:"title"`
	Kind            model.MassKind        `json:"kind"`
	Recurrence      *model.RecurrenceRule `json:"recurrence"`
	TimeOfDay       string                `json:"time_of_day"` // HH:MM
	SuggestedAmount int64                 `json:"suggested_amount"`
	StartDate       string                `json:"start_date"` // YYYY-MM-DD
	EndDate         string                `json:"end_date"`
}

func (req massRequest) toMass() (*model.Mass, *service.ValidationError) {
	tod, err := model.ParseTimeOfDay(req.TimeOfDay)
	if err != nil {
		return nil, &service.ValidationError{Field: "time_of_day", Message: "expected HH:MM"}
	}
	if req.SuggestedAmount < 0 {
		return nil, &service.ValidationError{Field: "suggested_amount", Message: "must not be negative"}
	}
	m := &model.Mass{
		ParishID:        req.ParishID,
		Title:           req.Title,
		Kind:            req.Kind,
		Recurrence:      req.Recurrence,
		TimeOfDay:       tod,
		SuggestedAmount: req.SuggestedAmount,
	}
	if m.StartDate, err = parseDate(req.StartDate); err != nil {
		return nil, &service.ValidationError{Field: "start_date", Message: "expected YYYY-MM-DD"}
	}
	if m.EndDate, err = parseDate(req.EndDate); err != nil {
		return nil, &service.ValidationError{Field: "end_date", Message: "expected YYYY-MM-DD"}
	}
	return m, nil
}

// parseDate parses an optional calendar date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateMass handles POST /api/admin/masses.
func (h *AdminHandler) CreateMass(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req massRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	mass, verr := req.toMass()
	if verr != nil {
		writeServiceError(w, verr, "create_mass")
		return
	}

	n, err := h.masses.CreateMass(r.Context(), actor, mass, h.horizonDays)
	if err != nil {
		writeServiceError(w, err, "create_mass", logging.Actor(actor), "parish_id", req.ParishID)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"mass": mass, "occurrences_created": n})
}

// SetMassStatus handles PATCH /api/admin/masses/{id}/status.
func (h *AdminHandler) SetMassStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		Status model.MassStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	id := r.PathValue("id")
	mass, err := h.masses.SetStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		writeServiceError(w, err, "mass_status", logging.Actor(actor), "mass_id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mass": mass})
}

// CancelOccurrence handles POST /api/admin/occurrences/{id}/cancel.
func (h *AdminHandler) CancelOccurrence(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.masses.CancelOccurrence(r.Context(), actor, id); err != nil {
		writeServiceError(w, err, "cancel", logging.Actor(actor), "occurrence_id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Generate handles POST /api/admin/occurrences/generate?days=N. Platform-wide.
func (h *AdminHandler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.policy.Authorize(actor, service.Scope{}); err != nil {
		writeServiceError(w, err, "generate")
		return
	}

	days := h.horizonDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_days")
			return
		}
		days = n
	}

	summaries, err := h.generator.GenerateForAll(r.Context(), days)
	if err != nil && summaries == nil {
		writeServiceError(w, err, "generate", logging.Actor(actor))
		return
	}
	total := 0
	for _, s := range summaries {
		total += s.Count
	}
	if summaries == nil {
		summaries = []service.GenerationSummary{}
	}
	resp := map[string]any{"generated": summaries, "total": total}
	if err != nil {
		slog.Error("generation partially failed", logging.Actor(actor), "days", days, "total", total, "error", err)
		resp["errors"] = errorList(err)
	} else {
		slog.Info("occurrences generated", logging.Actor(actor), "days", days, "total", total)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProcessPayouts handles POST /api/admin/payouts?dry_run=true&parish_id=ID.
func (h *AdminHandler) ProcessPayouts(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.policy.Authorize(actor, service.Scope{}); err != nil {
		writeServiceError(w, err, "payouts")
		return
	}

	q := r.URL.Query()
	opts := service.PayoutOptions{ParishID: q.Get("parish_id")}
	if s := q.Get("dry_run"); s != "" {
		dry, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dry_run")
			return
		}
		opts.DryRun = dry
	}

	summary, err := h.payouts.ProcessPayouts(r.Context(), opts)
	if err != nil && summary == nil {
		writeServiceError(w, err, "payouts", logging.Actor(actor), "parish_id", opts.ParishID)
		return
	}
	slog.Info("payouts processed", logging.Actor(actor), "dry_run", opts.DryRun,
		"attempted", summary.Attempted, "succeeded", summary.Succeeded, "failed", summary.Failed)
	if err != nil {
		slog.Error("payout run partially failed", logging.Actor(actor), "error", err)
		writeJSON(w, http.StatusOK, struct {
			*service.PayoutSummary
			Errors []string `json:"errors"`
		}{summary, errorList(err)})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// errorList flattens an errors.Join result for a JSON response.
func errorList(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
