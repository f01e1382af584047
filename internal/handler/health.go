package handler

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type dependency struct {
	name string
	p    Pinger
}

type healthResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Checks  map[string]string `json:"checks"`
}

// AddDependency registers an optional backing service. When it is down the
// API still serves requests through its fallback, so health reports
// "degraded" with 200 instead of failing.
func (h *Handler) AddDependency(name string, p Pinger) {
	h.deps = append(h.deps, dependency{name: name, p: p})
}

// Health handles GET /api/health. The database is required; optional
// dependencies only degrade the status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Message: "Amissa API", Checks: map[string]string{}}
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Message = err.Error()
		resp.Checks["database"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		resp.Checks["database"] = "ok"
	}

	for _, d := range h.deps {
		if err := d.p.Ping(ctx); err != nil {
			resp.Checks[d.name] = err.Error()
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[d.name] = "ok"
	}

	writeJSON(w, code, resp)
}
