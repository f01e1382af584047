package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/repository"
	"github.com/amissa/backend/pkg/fedapay"
	"github.com/go-playground/validator/v10"
)

const maxReferenceAttempts = 5

// BookingRequest is a public request to attach an intention to an occurrence.
type BookingRequest struct {
	OccurrenceID  string `json:"-"`
	RequesterName string `json:"requester_name" validate:"max=120"`
	Phone         string `json:"phone" validate:"omitempty,max=30"`
	Email         string `json:"email" validate:"omitempty,email,max=254"`
	Beneficiary   string `json:"beneficiary" validate:"omitempty,max=120"`
	Category      string `json:"category" validate:"omitempty,max=50"`
	Text          string `json:"text" validate:"omitempty,max=1000"`
	Amount        *int64 `json:"amount" validate:"omitempty,gte=0"`
}

// PaymentInit is the hosted payment created for an intention.
type PaymentInit struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

// BookingService runs the public booking flow.
type BookingService interface {
	// BookIntention validates the request and stores a pending intention.
	BookIntention(ctx context.Context, req BookingRequest) (*model.Intention, error)
	// InitiatePayment opens a gateway transaction for a pending intention.
	// A gateway failure returns *GatewayError and leaves the intention pending.
	InitiatePayment(ctx context.Context, intentionID, callbackURL string) (*PaymentInit, error)
	// GetIntention returns an intention by ID.
	GetIntention(ctx context.Context, id string) (*model.Intention, error)
	// FindByReference looks an intention up by its reference, case-insensitively.
	FindByReference(ctx context.Context, reference string) (*model.Intention, error)
	// ListBookable returns the occurrences of a parish on day that accept intentions.
	ListBookable(ctx context.Context, parishID string, day time.Time) ([]*model.OccurrenceContext, error)
}

// BookingConfig holds the optional collaborators of the booking service.
type BookingConfig struct {
	Location     *time.Location
	Now          func() time.Time
	NewReference func(now time.Time) string
}

type bookingService struct {
	parishes     repository.ParishRepository
	occurrences  repository.OccurrenceRepository
	intentions   repository.IntentionRepository
	gateway      fedapay.Client
	validate     *validator.Validate
	loc          *time.Location
	now          func() time.Time
	newReference func(now time.Time) string
}

// NewBookingService creates a BookingService.
func NewBookingService(parishes repository.ParishRepository, occurrences repository.OccurrenceRepository, intentions repository.IntentionRepository, gateway fedapay.Client, cfg BookingConfig) BookingService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	s := &bookingService{
		parishes:     parishes,
		occurrences:  occurrences,
		intentions:   intentions,
		gateway:      gateway,
		validate:     v,
		loc:          cfg.Location,
		now:          cfg.Now,
		newReference: cfg.NewReference,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newReference == nil {
		s.newReference = NewReference
	}
	return s
}

// NewReference returns INT-<year>-<8 uppercase hex chars>.
func NewReference(now time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("INT-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(b)))
}

// bookable reports whether the occurrence accepts intentions right now.
func bookable(oc *model.OccurrenceContext, now time.Time) bool {
	return oc.Parish.Active && oc.Mass.IsActive() &&
		oc.Occurrence.Bookable(oc.Parish.BookingDeadline(now))
}

func (s *bookingService) BookIntention(ctx context.Context, req BookingRequest) (*model.Intention, error) {
	oc, err := s.occurrences.GetContext(ctx, req.OccurrenceID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !bookable(oc, now) {
		return nil, ErrNotBookable
	}

	req.RequesterName = strings.TrimSpace(req.RequesterName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if req.RequesterName == "" {
		return nil, &ValidationError{Field: "requester_name", Message: "name required"}
	}
	if req.Phone == "" && req.Email == "" {
		return nil, &ValidationError{Field: "contact", Message: "contact required"}
	}
	if err := s.validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return nil, &ValidationError{Field: ve[0].Field(), Message: "invalid " + ve[0].Tag()}
		}
		return nil, err
	}

	amount := oc.Mass.SuggestedAmount
	if req.Amount != nil {
		amount = *req.Amount
	}
	in := &model.Intention{
		OccurrenceID:  oc.Occurrence.ID,
		RequesterName: req.RequesterName,
		Phone:         req.Phone,
		Email:         req.Email,
		Beneficiary:   strings.TrimSpace(req.Beneficiary),
		Category:      strings.TrimSpace(req.Category),
		Text:          strings.TrimSpace(req.Text),
		Amount:        amount,
		PaymentStatus: model.PaymentPending,
		PayoutStatus:  model.PayoutPending,
	}

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		in.Reference = s.newReference(now.In(s.loc))
		err := s.intentions.Create(ctx, in)
		if err == nil {
			slog.Info("intention booked",
				"intention_id", in.ID, "reference", in.Reference,
				"occurrence_id", in.OccurrenceID, "amount", in.Amount)
			return in, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create intention: %w", err)
		}
		slog.Warn("reference collision, retrying", "reference", in.Reference, "attempt", attempt)
	}
	return nil, ErrReferenceExhausted
}

func (s *bookingService) InitiatePayment(ctx context.Context, intentionID, callbackURL string) (*PaymentInit, error) {
	in, err := s.intentions.GetByID(ctx, intentionID)
	if err != nil {
		return nil, err
	}
	if in.PaymentStatus != model.PaymentPending {
		return nil, ErrPaymentSettled
	}
	oc, err := s.occurrences.GetContext(ctx, in.OccurrenceID)
	if err != nil {
		return nil, fmt.Errorf("load occurrence: %w", err)
	}

	tx, err := s.gateway.CreateTransaction(ctx, fedapay.TransactionParams{
		APIKey:      oc.Parish.GatewayAPIKey,
		Amount:      in.Amount,
		Currency:    model.Currency,
		Description: fmt.Sprintf("Intention de messe - %s - %s", in.BeneficiaryDisplay(), in.CategoryLabel()),
		CallbackURL: callbackURL,
		Customer:    fedapay.Customer{Name: in.RequesterName, Email: in.Email, Phone: in.Phone},
		Metadata: map[string]any{
			"intention_id":     in.ID,
			"numero_reference": in.Reference,
			"parish_id":        oc.Parish.ID,
			"diocese_id":       oc.Parish.DioceseID,
		},
	})
	if err != nil {
		slog.Error("payment creation failed", "intention_id", in.ID, "error", err)
		return nil, &GatewayError{Op: "create transaction", Err: err}
	}

	if err := s.intentions.SetTransactionID(ctx, in.ID, tx.ID); err != nil {
		return nil, fmt.Errorf("store transaction id: %w", err)
	}
	slog.Info("payment initiated", "intention_id", in.ID, "transaction_id", tx.ID,
		"diocese_key", oc.Parish.GatewayAPIKey != "")
	return &PaymentInit{TransactionID: tx.ID, PaymentURL: tx.PaymentURL}, nil
}

func (s *bookingService) GetIntention(ctx context.Context, id string) (*model.Intention, error) {
	return s.intentions.GetByID(ctx, id)
}

func (s *bookingService) FindByReference(ctx context.Context, reference string) (*model.Intention, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return nil, ErrNotFound
	}
	return s.intentions.GetByReference(ctx, reference)
}

func (s *bookingService) ListBookable(ctx context.Context, parishID string, day time.Time) ([]*model.OccurrenceContext, error) {
	if _, err := s.parishes.GetByID(ctx, parishID); err != nil {
		return nil, err
	}
	from := calendarDay(day, s.loc)
	list, err := s.occurrences.ListConfirmedByParish(ctx, parishID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	now := s.now()
	bookables := make([]*model.OccurrenceContext, 0, len(list))
	for _, oc := range list {
		if bookable(oc, now) {
			bookables = append(bookables, oc)
		}
	}
	return bookables, nil
}
