package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/service"
)

const maxBookingBody = 64 << 10

// BookingHandler serves the public booking endpoints.
type BookingHandler struct {
	svc           service.BookingService
	publicBaseURL string
	frontendURL   string
	loc           *time.Location
	now           func() time.Time
}

// BookingHandlerConfig holds the URLs and calendar settings of BookingHandler.
type BookingHandlerConfig struct {
	PublicBaseURL string // base of the gateway callback URL
	FrontendURL   string // payer is redirected here after paying
	Location      *time.Location
}

// NewBookingHandler creates a BookingHandler.
func NewBookingHandler(svc service.BookingService, cfg BookingHandlerConfig) *BookingHandler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{
		svc:           svc,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
		loc:           loc,
		now:           time.Now,
	}
}

type occurrenceView struct {
	ID              string    `json:"id"`
	MassID          string    `json:"mass_id"`
	MassTitle       string    `json:"mass_title"`
	At              time.Time `json:"at"`
	SuggestedAmount int64     `json:"suggested_amount"`
	IntentionCount  int       `json:"intention_count"`
}

// ListOccurrences handles GET /api/parishes/{id}/occurrences?date=YYYY-MM-DD.
// Without date, today in the parish calendar is used.
func (h *BookingHandler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	day := h.now().In(h.loc)
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		day = d
	}

	parishID := r.PathValue("id")
	list, err := h.svc.ListBookable(r.Context(), parishID, day)
	if err != nil {
		writeServiceError(w, err, "list", "parish_id", parishID)
		return
	}

	views := make([]occurrenceView, 0, len(list))
	for _, oc := range list {
		views = append(views, occurrenceView{
			ID:              oc.Occurrence.ID,
			MassID:          oc.Mass.ID,
			MassTitle:       oc.Mass.Title,
			At:              oc.Occurrence.At.In(h.loc),
			SuggestedAmount: oc.Mass.SuggestedAmount,
			IntentionCount:  oc.Occurrence.IntentionCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"occurrences": views})
}

type bookingResponse struct {
	Intention     *model.Intention `json:"intention"`
	TransactionID string           `json:"transaction_id,omitempty"`
	PaymentURL    string           `json:"payment_url,omitempty"`
	PaymentError  string           `json:"payment_error,omitempty"`
}

// Book handles POST /api/occurrences/{id}/intentions: it stores the intention
// and opens its payment. A gateway failure still answers 201 with
// payment_error; the payer retries through RetryPayment.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req service.BookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBookingBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.OccurrenceID = r.PathValue("id")

	in, err := h.svc.BookIntention(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "booking", "occurrence_id", req.OccurrenceID)
		return
	}

	resp := bookingResponse{Intention: in}
	pay, err := h.svc.InitiatePayment(r.Context(), in.ID, h.callbackURL(in.ID))
	if err != nil {
		slog.Warn("payment not initiated", "intention_id", in.ID, "error", err)
		resp.PaymentError = "payment_unavailable"
	} else {
		resp.TransactionID = pay.TransactionID
		resp.PaymentURL = pay.PaymentURL
	}
	writeJSON(w, http.StatusCreated, resp)
}

// RetryPayment handles POST /api/intentions/{id}/payment.
func (h *BookingHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pay, err := h.svc.InitiatePayment(r.Context(), id, h.callbackURL(id))
	if err != nil {
		writeServiceError(w, err, "payment", "intention_id", id)
		return
	}
	writeJSON(w, http.StatusOK, pay)
}

// GetByReference handles GET /api/intentions/{reference}.
func (h *BookingHandler) GetByReference(w http.ResponseWriter, r *http.Request) {
	in, err := h.svc.FindByReference(r.Context(), r.PathValue("reference"))
	if err != nil {
		writeServiceError(w, err, "lookup")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intention": in})
}

// Callback handles GET /api/fedapay/callback/{id}, where the gateway sends the
// payer back. The payment status itself arrives through the webhook.
func (h *BookingHandler) Callback(w http.ResponseWriter, r *http.Request) {
	in, err := h.svc.GetIntention(r.Context(), r.PathValue("id"))
	if errors.Is(err, service.ErrNotFound) {
		http.Redirect(w, r, h.frontendURL+"/intentions?error=not_found", http.StatusFound)
		return
	}
	if err != nil {
		writeServiceError(w, err, "callback")
		return
	}

	target := h.frontendURL + "/intentions/" + url.PathEscape(in.Reference)
	if status := r.URL.Query().Get("status"); status != "" {
		target += "?status=" + url.QueryEscape(status)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *BookingHandler) callbackURL(intentionID string) string {
	return h.publicBaseURL + "/api/fedapay/callback/" + url.PathEscape(intentionID)
}
