package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/amissa/backend/internal/service"
	"github.com/amissa/backend/pkg/fedapay"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives FedaPay notifications.
type WebhookHandler struct {
	gateway    fedapay.Client
	reconciler service.PaymentReconciler
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(gateway fedapay.Client, reconciler service.PaymentReconciler) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, reconciler: reconciler}
}

// FedaPay handles POST /api/webhooks/fedapay. The signature is checked over
// the raw body before anything is parsed.
func (h *WebhookHandler) FedaPay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if err := h.gateway.VerifyWebhookSignature(body, r.Header.Get(fedapay.SignatureHeader)); err != nil {
		if errors.Is(err, fedapay.ErrNotConfigured) {
			slog.Error("fedapay webhook received but no webhook secret is configured")
		} else {
			slog.Warn("fedapay webhook signature rejected", "remote_addr", r.RemoteAddr)
		}
		writeError(w, http.StatusUnauthorized, "invalid_signature")
		return
	}

	event, err := h.gateway.ParseWebhookEvent(body)
	if err != nil {
		slog.Warn("fedapay webhook payload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	out, err := h.reconciler.Reconcile(r.Context(), event)
	attrs := []any{
		"event", event.Name,
		"entity_id", string(event.Entity.ID),
		"gateway_status", event.Entity.Status,
		"reference", fedapay.MetadataString(event.Entity.Metadata, "numero_reference"),
	}
	switch {
	case errors.Is(err, service.ErrMalformedEvent):
		slog.Warn("fedapay webhook malformed", attrs...)
		writeError(w, http.StatusBadRequest, "malformed_event")
		return
	case errors.Is(err, service.ErrUnknownTransaction):
		slog.Warn("fedapay webhook for unknown transaction", attrs...)
		writeError(w, http.StatusNotFound, "unknown_transaction")
		return
	case err != nil:
		slog.Error("fedapay webhook failed", append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, "processing_failed")
		return
	}

	slog.Info("fedapay webhook processed", append(attrs,
		"intention_id", out.IntentionID, "payment_status", out.To, "changed", out.Changed)...)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "processed",
		"intention_id":   out.IntentionID,
		"payment_status": out.To,
	})
}
