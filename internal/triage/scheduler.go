package triage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spineclinic/intake/internal/domain/patient"
)

// ErrAlreadyClaimed is returned by an AssessmentStore when another writer
// created the assessment first. The scheduler treats it as a benign skip.
var ErrAlreadyClaimed = errors.New("triage: patient already has an assessment")

// CandidateSource lists patients eligible for triage, oldest first.
type CandidateSource interface {
	ListTriageReady(ctx context.Context, limit int) ([]*patient.Patient, error)
}

// AssessmentStore persists AI assessments. Create must be atomic
// insert-if-absent on the patient: a concurrent duplicate yields
// ErrAlreadyClaimed, never a second row.
type AssessmentStore interface {
	ExistsForPatient(ctx context.Context, patientID uuid.UUID) (bool, error)
	Create(ctx context.Context, patientID, doctorID uuid.UUID, aiResponse map[string]interface{}) error
}

// Predictor is the prediction-service surface the scheduler depends on.
type Predictor interface {
	Predict(ctx context.Context, payload Payload) (map[string]interface{}, error)
}

// Notifier is told when an assessment lands so interested parties can be
// alerted. Implementations must not fail the cycle.
type Notifier interface {
	AssessmentCreated(ctx context.Context, p *patient.Patient, view ResponseView)
}

// Scheduler polls for triage-ready patients and runs at most one
// prediction per cycle. A single atomic flag guarantees cycles never
// overlap, even if a cycle outlives the polling interval.
type Scheduler struct {
	patients    CandidateSource
	assessments AssessmentStore
	predictor   Predictor
	notifier    Notifier
	logger      zerolog.Logger

	// Interval and BatchSize may be tuned before Start.
	Interval  time.Duration
	BatchSize int

	running atomic.Bool
	now     func() time.Time
}

func NewScheduler(patients CandidateSource, assessments AssessmentStore, predictor Predictor, notifier Notifier, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		patients:    patients,
		assessments: assessments,
		predictor:   predictor,
		notifier:    notifier,
		logger:      logger.With().Str("component", "triage-scheduler").Logger(),
		Interval:    2 * time.Minute,
		BatchSize:   20,
		now:         time.Now,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.Interval).Msg("triage scheduler started")
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("triage scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				s.logger.Error().Err(err).Msg("triage cycle failed")
			}
		}
	}
}

// RunCycle performs one reconciliation pass: fetch eligible patients in
// intake order, skip any that already have an assessment, and process the
// first unclaimed one. If a previous cycle is still in flight the call is
// a no-op.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("previous cycle still running, skipping")
		return nil
	}
	defer s.running.Store(false)

	candidates, err := s.patients.ListTriageReady(ctx, s.BatchSize)
	if err != nil {
		return err
	}
	for _, cand := range candidates {
		exists, err := s.assessments.ExistsForPatient(ctx, cand.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		return s.process(ctx, cand)
	}
	return nil
}

func (s *Scheduler) process(ctx context.Context, cand *patient.Patient) error {
	log := s.logger.With().Str("patient_id", cand.ID.String()).Logger()

	result, err := s.predictor.Predict(ctx, BuildPayload(cand))
	if errors.Is(err, ErrRateLimited) {
		log.Warn().Msg("prediction service rate limited, backing off until next cycle")
		return nil
	}
	if err != nil {
		return err
	}
	if result == nil {
		log.Warn().Msg("prediction unavailable, patient stays eligible for retry")
		return nil
	}

	result["analyzedAt"] = s.now().UTC().Format(time.RFC3339)

	if err := s.assessments.Create(ctx, cand.ID, cand.AssignedDoctorID, result); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			log.Debug().Msg("assessment claimed by concurrent writer, skipping")
			return nil
		}
		return err
	}

	view := ViewResponse(result)
	log.Info().Str("urgency", view.Urgency).Msg("assessment created")
	s.notifier.AssessmentCreated(ctx, cand, view)
	return nil
}
