package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/service"
	"github.com/amissa/backend/pkg/fedapay"
)

const approvedPayload = `{"name":"transaction.approved","entity":{"id":104512,"status":"approved","metadata":{"numero_reference":"INT-2026-0000AAAA"}}}`

func postWebhook(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	req := newRequest(http.MethodPost, "/api/webhooks/fedapay", body)
	req.Header.Set(fedapay.SignatureHeader, "sig")
	rec := httptest.NewRecorder()
	h.FedaPay(rec, req)
	return rec
}

func TestWebhookHandler_Processed(t *testing.T) {
	var got fedapay.WebhookEvent
	rec := &mockReconciler{
		reconcileFunc: func(_ context.Context, event fedapay.WebhookEvent) (*service.ReconcileOutcome, error) {
			got = event
			return &service.ReconcileOutcome{IntentionID: "int-1", From: model.PaymentPending, To: model.PaymentPaid, Changed: true}, nil
		},
	}
	h := NewWebhookHandler(&mockGateway{}, rec)

	res := postWebhook(h, approvedPayload)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got.Entity.ID != "104512" || got.Entity.Status != "approved" {
		t.Errorf("unexpected event %+v", got)
	}
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "processed" || body["intention_id"] != "int-1" || body["payment_status"] != "paid" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	for _, verifyErr := range []error{fedapay.ErrInvalidSignature, fedapay.ErrNotConfigured} {
		rec := &mockReconciler{}
		h := NewWebhookHandler(&mockGateway{verifyErr: verifyErr}, rec)

		res := postWebhook(h, approvedPayload)
		if res.Code != http.StatusUnauthorized {
			t.Errorf("%v: expected 401, got %d", verifyErr, res.Code)
		}
		if rec.calls != 0 {
			t.Errorf("%v: reconciler must not run", verifyErr)
		}
	}
}

func TestWebhookHandler_InvalidJSON(t *testing.T) {
	rec := &mockReconciler{}
	h := NewWebhookHandler(&mockGateway{}, rec)

	if res := postWebhook(h, `not json`); res.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", res.Code)
	}
	if rec.calls != 0 {
		t.Error("reconciler must not run")
	}
}

func TestWebhookHandler_ReconcileErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrMalformedEvent, http.StatusBadRequest},
		{service.ErrUnknownTransaction, http.StatusNotFound},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := &mockReconciler{
			reconcileFunc: func(context.Context, fedapay.WebhookEvent) (*service.ReconcileOutcome, error) {
				return nil, tt.err
			},
		}
		h := NewWebhookHandler(&mockGateway{}, rec)
		if res := postWebhook(h, approvedPayload); res.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, res.Code)
		}
	}
}
