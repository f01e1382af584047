package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/internal/repository"
	"github.com/amissa/backend/pkg/fedapay"
)

// ---------------------------------------------------------------------------
// fakeDB — in-memory tables shared by the fake repositories
// ---------------------------------------------------------------------------

type fakeDB struct {
	parishes    map[string]*model.Parish
	masses      map[string]*model.Mass
	occurrences map[string]*model.Occurrence
	intentions  map[string]*model.Intention
	seq         int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		parishes:    make(map[string]*model.Parish),
		masses:      make(map[string]*model.Mass),
		occurrences: make(map[string]*model.Occurrence),
		intentions:  make(map[string]*model.Intention),
	}
}

func (db *fakeDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *fakeDB) addParish(p *model.Parish) *model.Parish {
	db.parishes[p.ID] = p
	return p
}

func (db *fakeDB) addMass(m *model.Mass) *model.Mass {
	db.masses[m.ID] = m
	return m
}

func (db *fakeDB) addOccurrence(o *model.Occurrence) *model.Occurrence {
	db.occurrences[o.ID] = o
	return o
}

func (db *fakeDB) addIntention(in *model.Intention) *model.Intention {
	db.intentions[in.ID] = in
	return in
}

// occurrencesOf returns the occurrences of a mass ordered by date.
func (db *fakeDB) occurrencesOf(massID string) []*model.Occurrence {
	var list []*model.Occurrence
	for _, o := range db.occurrences {
		if o.MassID == massID {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].At.Before(list[j].At) })
	return list
}

func (db *fakeDB) parishOfOccurrence(occurrenceID string) string {
	o, ok := db.occurrences[occurrenceID]
	if !ok {
		return ""
	}
	m, ok := db.masses[o.MassID]
	if !ok {
		return ""
	}
	return m.ParishID
}

// ----- fakeParishRepo -----

type fakeParishRepo struct {
	db      *fakeDB
	listErr error
}

func (r *fakeParishRepo) GetByID(_ context.Context, id string) (*model.Parish, error) {
	p, ok := r.db.parishes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeParishRepo) ListActive(_ context.Context) ([]*model.Parish, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var list []*model.Parish
	for _, p := range r.db.parishes {
		if p.Active {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// ----- fakeMassRepo -----

type fakeMassRepo struct {
	db        *fakeDB
	createErr error
	occErr    error // fails the insert of the initial occurrences
}

func (r *fakeMassRepo) GetByID(_ context.Context, id string) (*model.Mass, error) {
	m, ok := r.db.masses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

// Create stores the mass and its occurrences together, or nothing.
func (r *fakeMassRepo) Create(_ context.Context, m *model.Mass, occurrences ...*model.Occurrence) error {
	if r.createErr != nil {
		return r.createErr
	}
	if len(occurrences) > 0 && r.occErr != nil {
		return r.occErr
	}
	if m.ID == "" {
		m.ID = r.db.nextID("mass")
	}
	r.db.masses[m.ID] = m
	for _, o := range occurrences {
		o.MassID = m.ID
		if o.ID == "" {
			o.ID = r.db.nextID("occ")
		}
		r.db.occurrences[o.ID] = o
	}
	return nil
}

func (r *fakeMassRepo) UpdateStatus(_ context.Context, id string, status model.MassStatus) error {
	m, ok := r.db.masses[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = status
	return nil
}

func (r *fakeMassRepo) ListActiveRecurring(_ context.Context) ([]*model.ParishMass, error) {
	var list []*model.ParishMass
	for _, m := range r.db.masses {
		if m.IsRecurring() && m.IsActive() {
			name := ""
			if p, ok := r.db.parishes[m.ParishID]; ok {
				name = p.Name
			}
			list = append(list, &model.ParishMass{Mass: m, ParishName: name})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Mass.ID < list[j].Mass.ID })
	return list, nil
}

// ----- fakeOccurrenceRepo -----

type fakeOccurrenceRepo struct {
	db             *fakeDB
	createBatchErr map[string]error // by mass ID
	batchCalls     int
}

func (r *fakeOccurrenceRepo) GetContext(_ context.Context, id string) (*model.OccurrenceContext, error) {
	o, ok := r.db.occurrences[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m := r.db.masses[o.MassID]
	return &model.OccurrenceContext{Occurrence: o, Mass: m, Parish: r.db.parishes[m.ParishID]}, nil
}

func (r *fakeOccurrenceRepo) LatestAt(_ context.Context, massID string) (*time.Time, error) {
	list := r.db.occurrencesOf(massID)
	if len(list) == 0 {
		return nil, nil
	}
	at := list[len(list)-1].At
	return &at, nil
}

func (r *fakeOccurrenceRepo) CreateBatch(_ context.Context, occurrences []*model.Occurrence) error {
	r.batchCalls++
	for _, o := range occurrences {
		if err := r.createBatchErr[o.MassID]; err != nil {
			return err
		}
	}
	for _, o := range occurrences {
		for _, existing := range r.db.occurrencesOf(o.MassID) {
			if existing.At.Equal(o.At) {
				return repository.ErrDuplicate
			}
		}
	}
	for _, o := range occurrences {
		if o.ID == "" {
			o.ID = r.db.nextID("occ")
		}
		r.db.occurrences[o.ID] = o
	}
	return nil
}

func (r *fakeOccurrenceRepo) Cancel(_ context.Context, id string) error {
	o, ok := r.db.occurrences[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = model.OccurrenceCancelled
	return nil
}

func (r *fakeOccurrenceRepo) ListConfirmedByParish(_ context.Context, parishID string, from, to time.Time) ([]*model.OccurrenceContext, error) {
	var list []*model.OccurrenceContext
	for _, o := range r.db.occurrences {
		m := r.db.masses[o.MassID]
		if m.ParishID != parishID || o.Status != model.OccurrenceConfirmed {
			continue
		}
		if o.At.Before(from) || !o.At.Before(to) {
			continue
		}
		list = append(list, &model.OccurrenceContext{Occurrence: o, Mass: m, Parish: r.db.parishes[parishID]})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Occurrence.At.Before(list[j].Occurrence.At) })
	return list, nil
}

// ----- fakeIntentionRepo -----

type fakeIntentionRepo struct {
	db *fakeDB
	// createErrs is consumed one per Create call before inserting.
	createErrs      []error
	createCalls     int
	transitionErr   error
	markErr         error
	listErr         map[string]error // ListPendingPayoutByParish, by parish ID
	transferredRefs map[string]string
}

func (r *fakeIntentionRepo) Create(_ context.Context, in *model.Intention) error {
	r.createCalls++
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range r.db.intentions {
		if existing.Reference == in.Reference {
			return repository.ErrDuplicate
		}
	}
	if in.ID == "" {
		in.ID = r.db.nextID("int")
	}
	r.db.intentions[in.ID] = in
	return nil
}

func (r *fakeIntentionRepo) GetByID(_ context.Context, id string) (*model.Intention, error) {
	in, ok := r.db.intentions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *fakeIntentionRepo) find(match func(*model.Intention) bool) (*model.Intention, error) {
	for _, in := range r.db.intentions {
		if match(in) {
			cp := *in
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeIntentionRepo) GetByReference(_ context.Context, reference string) (*model.Intention, error) {
	return r.find(func(in *model.Intention) bool { return in.Reference == reference })
}

func (r *fakeIntentionRepo) GetByTransactionID(_ context.Context, transactionID string) (*model.Intention, error) {
	return r.find(func(in *model.Intention) bool { return in.TransactionID == transactionID })
}

func (r *fakeIntentionRepo) SetTransactionID(_ context.Context, id, transactionID string) error {
	in, ok := r.db.intentions[id]
	if !ok {
		return repository.ErrNotFound
	}
	in.TransactionID = transactionID
	return nil
}

func (r *fakeIntentionRepo) TransitionPayment(_ context.Context, id string, from, to model.PaymentStatus, delta int) error {
	if r.transitionErr != nil {
		return r.transitionErr
	}
	in, ok := r.db.intentions[id]
	if !ok || in.PaymentStatus != from {
		return repository.ErrConflict
	}
	in.PaymentStatus = to
	if o, ok := r.db.occurrences[in.OccurrenceID]; ok {
		o.IntentionCount += delta
		if o.IntentionCount < 0 {
			o.IntentionCount = 0
		}
	}
	return nil
}

func (r *fakeIntentionRepo) ListPendingPayoutByParish(_ context.Context, parishID string) ([]model.PayoutCandidate, error) {
	if err := r.listErr[parishID]; err != nil {
		return nil, err
	}
	var list []model.PayoutCandidate
	for _, in := range r.db.intentions {
		if r.db.parishOfOccurrence(in.OccurrenceID) != parishID {
			continue
		}
		if in.PaymentStatus == model.PaymentPaid && in.PayoutStatus == model.PayoutPending {
			list = append(list, model.PayoutCandidate{IntentionID: in.ID, Reference: in.Reference, Amount: in.Amount})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].IntentionID < list[j].IntentionID })
	return list, nil
}

func (r *fakeIntentionRepo) MarkPayoutTransferred(_ context.Context, ids []string, reference string) error {
	if r.markErr != nil {
		return r.markErr
	}
	for _, id := range ids {
		in := r.db.intentions[id]
		in.PayoutStatus = model.PayoutTransferred
		in.PayoutReference = reference
	}
	return nil
}

func (r *fakeIntentionRepo) MarkPayoutFailed(_ context.Context, ids []string) error {
	if r.markErr != nil {
		return r.markErr
	}
	for _, id := range ids {
		r.db.intentions[id].PayoutStatus = model.PayoutFailed
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock fedapay.Client
// ---------------------------------------------------------------------------

type mockGateway struct {
	createTransactionFunc func(ctx context.Context, params fedapay.TransactionParams) (fedapay.Transaction, error)
	createPayoutFunc      func(ctx context.Context, params fedapay.PayoutParams) (fedapay.Payout, error)
	startPayoutFunc       func(ctx context.Context, payoutID, apiKey string) error
	calls                 int
}

func (m *mockGateway) CreateTransaction(ctx context.Context, params fedapay.TransactionParams) (fedapay.Transaction, error) {
	m.calls++
	if m.createTransactionFunc != nil {
		return m.createTransactionFunc(ctx, params)
	}
	return fedapay.Transaction{ID: "tx-1", PaymentURL: "https://pay.example/tx-1"}, nil
}

func (m *mockGateway) CreatePayout(ctx context.Context, params fedapay.PayoutParams) (fedapay.Payout, error) {
	m.calls++
	if m.createPayoutFunc != nil {
		return m.createPayoutFunc(ctx, params)
	}
	return fedapay.Payout{ID: "po-1", Reference: "REF-1", Status: "pending"}, nil
}

func (m *mockGateway) StartPayout(ctx context.Context, payoutID, apiKey string) error {
	m.calls++
	if m.startPayoutFunc != nil {
		return m.startPayoutFunc(ctx, payoutID, apiKey)
	}
	return nil
}

func (m *mockGateway) GetTransaction(_ context.Context, id string) (fedapay.TransactionStatus, error) {
	m.calls++
	return fedapay.TransactionStatus{ID: id}, nil
}

func (m *mockGateway) VerifyWebhookSignature(_ []byte, _ string) error { return nil }

func (m *mockGateway) ParseWebhookEvent(_ []byte) (fedapay.WebhookEvent, error) {
	return fedapay.WebhookEvent{}, nil
}

// ---------------------------------------------------------------------------
// Mock queue.Publisher
// ---------------------------------------------------------------------------

type publishedEvent struct {
	queue string
	event any
}

type mockPublisher struct {
	published []publishedEvent
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, queue string, event any) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, publishedEvent{queue: queue, event: event})
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func intPtr(v int) *int { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
