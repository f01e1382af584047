package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/service"
	"github.com/amissa/backend/pkg/auth"
	"github.com/amissa/backend/pkg/fedapay"
)

// ---------------------------------------------------------------------------
// Mock BookingService
// ---------------------------------------------------------------------------

type mockBookingService struct {
	bookFunc      func(ctx context.Context, req service.BookingRequest) (*model.Intention, error)
	initiateFunc  func(ctx context.Context, id, callbackURL string) (*service.PaymentInit, error)
	getFunc       func(ctx context.Context, id string) (*model.Intention, error)
	findFunc      func(ctx context.Context, reference string) (*model.Intention, error)
	listFunc      func(ctx context.Context, parishID string, day time.Time) ([]*model.OccurrenceContext, error)
	lastCallback  string
	initiateCalls int
}

func (m *mockBookingService) BookIntention(ctx context.Context, req service.BookingRequest) (*model.Intention, error) {
	if m.bookFunc != nil {
		return m.bookFunc(ctx, req)
	}
	return &model.Intention{ID: "int-1", Reference: "INT-2026-0000AAAA", PaymentStatus: model.PaymentPending}, nil
}

func (m *mockBookingService) InitiatePayment(ctx context.Context, id, callbackURL string) (*service.PaymentInit, error) {
	m.initiateCalls++
	m.lastCallback = callbackURL
	if m.initiateFunc != nil {
		return m.initiateFunc(ctx, id, callbackURL)
	}
	return &service.PaymentInit{TransactionID: "104512", PaymentURL: "https://pay.example/104512"}, nil
}

func (m *mockBookingService) GetIntention(ctx context.Context, id string) (*model.Intention, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, service.ErrNotFound
}

func (m *mockBookingService) FindByReference(ctx context.Context, reference string) (*model.Intention, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, reference)
	}
	return nil, service.ErrNotFound
}

func (m *mockBookingService) ListBookable(ctx context.Context, parishID string, day time.Time) ([]*model.OccurrenceContext, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, parishID, day)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Mock PaymentReconciler / fedapay.Client
// ---------------------------------------------------------------------------

type mockReconciler struct {
	reconcileFunc func(ctx context.Context, event fedapay.WebhookEvent) (*service.ReconcileOutcome, error)
	calls         int
}

func (m *mockReconciler) Reconcile(ctx context.Context, event fedapay.WebhookEvent) (*service.ReconcileOutcome, error) {
	m.calls++
	if m.reconcileFunc != nil {
		return m.reconcileFunc(ctx, event)
	}
	return &service.ReconcileOutcome{}, nil
}

type mockGateway struct {
	verifyErr error
	parseFunc func(payload []byte) (fedapay.WebhookEvent, error)
}

func (m *mockGateway) CreateTransaction(context.Context, fedapay.TransactionParams) (fedapay.Transaction, error) {
	return fedapay.Transaction{}, nil
}

func (m *mockGateway) CreatePayout(context.Context, fedapay.PayoutParams) (fedapay.Payout, error) {
	return fedapay.Payout{}, nil
}

func (m *mockGateway) StartPayout(context.Context, string, string) error { return nil }

func (m *mockGateway) GetTransaction(_ context.Context, id string) (fedapay.TransactionStatus, error) {
	return fedapay.TransactionStatus{ID: id}, nil
}

func (m *mockGateway) VerifyWebhookSignature([]byte, string) error { return m.verifyErr }

func (m *mockGateway) ParseWebhookEvent(payload []byte) (fedapay.WebhookEvent, error) {
	if m.parseFunc != nil {
		return m.parseFunc(payload)
	}
	return (&fedapay.RealClient{}).ParseWebhookEvent(payload)
}

// ---------------------------------------------------------------------------
// Mock MassService / OccurrenceGenerator / PayoutProcessor
// ---------------------------------------------------------------------------

type mockMassService struct {
	createFunc    func(ctx context.Context, actor *model.Actor, mass *model.Mass, horizon int) (int, error)
	setStatusFunc func(ctx context.Context, actor *model.Actor, id string, status model.MassStatus) (*model.Mass, error)
	cancelFunc    func(ctx context.Context, actor *model.Actor, id string) error
}

func (m *mockMassService) CreateMass(ctx context.Context, actor *model.Actor, mass *model.Mass, horizon int) (int, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, mass, horizon)
	}
	return 0, nil
}

func (m *mockMassService) SetStatus(ctx context.Context, actor *model.Actor, id string, status model.MassStatus) (*model.Mass, error) {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, actor, id, status)
	}
	return &model.Mass{ID: id, Status: status}, nil
}

func (m *mockMassService) CancelOccurrence(ctx context.Context, actor *model.Actor, id string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, actor, id)
	}
	return nil
}

type mockGenerator struct {
	generateAllFunc func(ctx context.Context, days int) ([]service.GenerationSummary, error)
}

func (m *mockGenerator) Generate(context.Context, *model.Mass, int) (int, error) { return 0, nil }

func (m *mockGenerator) GenerateForAll(ctx context.Context, days int) ([]service.GenerationSummary, error) {
	if m.generateAllFunc != nil {
		return m.generateAllFunc(ctx, days)
	}
	return nil, nil
}

type mockPayoutProcessor struct {
	processFunc func(ctx context.Context, opts service.PayoutOptions) (*service.PayoutSummary, error)
}

func (m *mockPayoutProcessor) ProcessPayouts(ctx context.Context, opts service.PayoutOptions) (*service.PayoutSummary, error) {
	if m.processFunc != nil {
		return m.processFunc(ctx, opts)
	}
	return &service.PayoutSummary{}, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newRequest(method, url, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, url, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, url, nil)
	}
	r.Header.Set("Content-Type", "application/json")
	return r
}

// actorRequest builds a request carrying actor in its context.
func actorRequest(method, url, body string, actor *model.Actor) *http.Request {
	r := newRequest(method, url, body)
	return r.WithContext(auth.WithActor(r.Context(), actor))
}

var operator = &model.Actor{ID: "op-1", Role: model.RoleOperator}
