package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/service"
	"github.com/amissa/backend/pkg/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeServiceError maps a service error to its HTTP response. Unexpected
// errors are logged with op and answered with 500 "<op>_failed".
func writeServiceError(w http.ResponseWriter, err error, op string, attrs ...any) {
	var ve *service.ValidationError
	var gwErr *service.GatewayError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation_failed",
			"field":   ve.Field,
			"message": ve.Message,
		})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotBookable):
		writeError(w, http.StatusConflict, "not_bookable")
	case errors.Is(err, service.ErrPaymentSettled):
		writeError(w, http.StatusConflict, "payment_settled")
	case errors.Is(err, service.ErrGenerationInProgress):
		writeError(w, http.StatusConflict, "generation_in_progress")
	case errors.As(err, &gwErr):
		slog.Error(op+" gateway failure", append(attrs, "error", err)...)
		writeError(w, http.StatusBadGateway, "gateway_error")
	default:
		slog.Error(op+" failed", append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, op+"_failed")
	}
}

// requireActor returns the authenticated actor or answers 401.
func requireActor(w http.ResponseWriter, r *http.Request) (*model.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return actor, true
}
