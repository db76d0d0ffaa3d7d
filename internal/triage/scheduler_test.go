package triage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spineclinic/intake/internal/domain/patient"
)

type mockSource struct {
	mu       sync.Mutex
	patients []*patient.Patient
	err      error
}

func (m *mockSource) ListTriageReady(_ context.Context, limit int) ([]*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*patient.Patient, len(m.patients))
	copy(out, m.patients)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockStore struct {
	mu        sync.Mutex
	existing  map[uuid.UUID]map[string]interface{}
	createErr error
	created   []uuid.UUID
}

func newMockStore() *mockStore {
	return &mockStore{existing: make(map[uuid.UUID]map[string]interface{})}
}

func (m *mockStore) ExistsForPatient(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.existing[id]
	return ok, nil
}

func (m *mockStore) Create(_ context.Context, patientID, _ uuid.UUID, aiResponse map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.existing[patientID]; ok {
		return ErrAlreadyClaimed
	}
	m.existing[patientID] = aiResponse
	m.created = append(m.created, patientID)
	return nil
}

type mockPredictor struct {
	mu      sync.Mutex
	calls   []string
	result  map[string]interface{}
	err     error
	block   chan struct{} // when set, Predict waits on it
}

func (m *mockPredictor) Predict(_ context.Context, p Payload) (map[string]interface{}, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p.PatientID)
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(m.result))
	for k, v := range m.result {
		out[k] = v
	}
	return out, nil
}

func (m *mockPredictor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockNotifier struct {
	mu       sync.Mutex
	notified []uuid.UUID
}

func (m *mockNotifier) AssessmentCreated(_ context.Context, p *patient.Patient, _ ResponseView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, p.ID)
}

func readyPatient(created time.Time) *patient.Patient {
	return &patient.Patient{
		ID:                uuid.New(),
		Complaint:         "back pain",
		ExpectedDiagnosis: "lumbar strain",
		Status:            patient.StatusPending,
		AssignedDoctorID:  uuid.New(),
		CreatedAt:         created,
	}
}

func newTestScheduler(src *mockSource, store *mockStore, pred *mockPredictor, n *mockNotifier) *Scheduler {
	return NewScheduler(src, store, pred, n, zerolog.Nop())
}

func TestRunCycleProcessesOldestOnly(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	oldest := readyPatient(base)
	newer := readyPatient(base.Add(time.Minute))
	src := &mockSource{patients: []*patient.Patient{newer, oldest}}
	store := newMockStore()
	pred := &mockPredictor{result: map[string]interface{}{"urgency": "low"}}
	notif := &mockNotifier{}

	s := newTestScheduler(src, store, pred, notif)
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if got := pred.callCount(); got != 1 {
		t.Fatalf("predict calls = %d, want exactly 1 per cycle", got)
	}
	if len(store.created) != 1 || store.created[0] != oldest.ID {
		t.Fatalf("created = %v, want [%v] (oldest first)", store.created, oldest.ID)
	}
	if len(notif.notified) != 1 || notif.notified[0] != oldest.ID {
		t.Fatalf("notified = %v, want oldest patient", notif.notified)
	}
}

func TestRunCycleSkipsAlreadyAssessed(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	assessed := readyPatient(base)
	fresh := readyPatient(base.Add(time.Minute))
	src := &mockSource{patients: []*patient.Patient{assessed, fresh}}
	store := newMockStore()
	store.existing[assessed.ID] = map[string]interface{}{"urgency": "low"}
	pred := &mockPredictor{result: map[string]interface{}{"urgency": "high"}}

	s := newTestScheduler(src, store, pred, &mockNotifier{})
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(store.created) != 1 || store.created[0] != fresh.ID {
		t.Fatalf("created = %v, want the unassessed patient %v", store.created, fresh.ID)
	}
}

func TestRunCycleEmptyQueue(t *testing.T) {
	pred := &mockPredictor{}
	s := newTestScheduler(&mockSource{}, newMockStore(), pred, &mockNotifier{})
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if pred.callCount() != 0 {
		t.Fatal("no candidates should mean no predictions")
	}
}

func TestRunCycleRateLimitBacksOff(t *testing.T) {
	p := readyPatient(time.Now())
	src := &mockSource{patients: []*patient.Patient{p}}
	store := newMockStore()
	pred := &mockPredictor{err: ErrRateLimited}
	notif := &mockNotifier{}

	s := newTestScheduler(src, store, pred, notif)
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("rate limiting is handled, not surfaced: %v", err)
	}
	if len(store.created) != 0 || len(notif.notified) != 0 {
		t.Fatal("rate-limited cycle must not write or notify")
	}
}

func TestRunCycleSoftFailureLeavesPatientEligible(t *testing.T) {
	p := readyPatient(time.Now())
	src := &mockSource{patients: []*patient.Patient{p}}
	store := newMockStore()
	pred := &mockPredictor{} // result nil, err nil: service unreachable

	s := newTestScheduler(src, store, pred, &mockNotifier{})
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(store.created) != 0 {
		t.Fatal("no assessment may be written on a failed prediction")
	}

	// Service recovers: the same patient is picked up on the next cycle.
	pred.result = map[string]interface{}{"urgency": "moderate"}
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle retry: %v", err)
	}
	if len(store.created) != 1 || store.created[0] != p.ID {
		t.Fatalf("created = %v, want retried patient", store.created)
	}
}

func TestRunCycleConcurrentClaimIsBenign(t *testing.T) {
	p := readyPatient(time.Now())
	src := &mockSource{patients: []*patient.Patient{p}}
	store := newMockStore()
	store.createErr = ErrAlreadyClaimed
	notif := &mockNotifier{}
	pred := &mockPredictor{result: map[string]interface{}{"urgency": "low"}}

	s := newTestScheduler(src, store, pred, notif)
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("losing the claim race is not an error: %v", err)
	}
	if len(notif.notified) != 0 {
		t.Fatal("must not notify when another writer claimed the patient")
	}
}

func TestRunCycleNeverOverlaps(t *testing.T) {
	p := readyPatient(time.Now())
	src := &mockSource{patients: []*patient.Patient{p}}
	store := newMockStore()
	block := make(chan struct{})
	pred := &mockPredictor{result: map[string]interface{}{"urgency": "low"}, block: block}

	s := newTestScheduler(src, store, pred, &mockNotifier{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunCycle(context.Background())
	}()

	// Wait for the first cycle to reach the predictor, then try to start
	// more cycles while it is in flight.
	deadline := time.After(2 * time.Second)
	for pred.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first cycle never reached the predictor")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	for i := 0; i < 5; i++ {
		if err := s.RunCycle(context.Background()); err != nil {
			t.Fatalf("overlapping RunCycle: %v", err)
		}
	}
	if got := pred.callCount(); got != 1 {
		t.Fatalf("predict calls = %d, overlapping cycles must be no-ops", got)
	}

	close(block)
	<-done
	if len(store.created) != 1 {
		t.Fatalf("created = %v, want exactly one assessment", store.created)
	}
}

func TestRunCycleStampsAnalyzedAt(t *testing.T) {
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := readyPatient(time.Now())
	src := &mockSource{patients: []*patient.Patient{p}}
	store := newMockStore()
	pred := &mockPredictor{result: map[string]interface{}{"urgency": "low"}}

	s := newTestScheduler(src, store, pred, &mockNotifier{})
	s.now = func() time.Time { return fixed }

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	saved := store.existing[p.ID]
	if saved["analyzedAt"] != "2026-08-31T12:00:00Z" {
		t.Errorf("analyzedAt = %v", saved["analyzedAt"])
	}
}

func TestRunCycleSourceError(t *testing.T) {
	src := &mockSource{err: errors.New("db down")}
	s := newTestScheduler(src, newMockStore(), &mockPredictor{}, &mockNotifier{})
	if err := s.RunCycle(context.Background()); err == nil {
		t.Fatal("source errors must surface so the loop can log them")
	}
	// The gate must be released after a failed cycle.
	src.err = nil
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("gate not released after failure: %v", err)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	s := newTestScheduler(&mockSource{}, newMockStore(), &mockPredictor{}, &mockNotifier{})
	s.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
