package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spineclinic/intake/internal/domain/patient"
	"github.com/spineclinic/intake/internal/triage"
)

// PatientSource is the patient-domain surface the assessment service
// needs: reading the record for the feedback relay and advancing it to
// reviewed on first sign-off.
type PatientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	MarkReviewed(ctx context.Context, id uuid.UUID) error
}

// FeedbackRelay forwards a doctor's verdict to the prediction service.
// Implementations are fire and forget.
type FeedbackRelay interface {
	SendFeedback(feedback triage.FeedbackRequest)
}

// ReviewNotifier announces a completed doctor review. Failures are
// swallowed by the implementation.
type ReviewNotifier interface {
	ReviewCompleted(ctx context.Context, assistantID, doctorID, patientID uuid.UUID)
}

// Service provides business logic for assessment review.
type Service struct {
	repo     Repository
	patients PatientSource
	relay    FeedbackRelay
	notifier ReviewNotifier
	now      func() time.Time
}

// NewService creates a new assessment service. relay and notifier may be
// nil in tests.
func NewService(repo Repository, patients PatientSource, relay FeedbackRelay, notifier ReviewNotifier) *Service {
	return &Service{repo: repo, patients: patients, relay: relay, notifier: notifier, now: time.Now}
}

// GetForPatient returns the patient's assessment, if any.
func (s *Service) GetForPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error) {
	return s.repo.GetByPatient(ctx, patientID)
}

// ListByDoctor returns a doctor's assessments newest first.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// SubmitFeedback records the assigned doctor's verdict. Resubmitting
// overwrites the previous verdict. On success the patient moves to
// reviewed (first submission only), the verdict is relayed to the
// prediction service for reinforcement, and the creating assistant is
// notified. Relay and notification are best effort and never fail the
// submission.
func (s *Service) SubmitFeedback(ctx context.Context, doctorID, patientID uuid.UUID, fb Feedback) (*Assessment, error) {
	if !fb.IsAccurate && fb.CorrectionReason == nil && len(fb.CorrectedDiagnosis) == 0 {
		return nil, fmt.Errorf("inaccurate verdicts need a correction reason or diagnosis")
	}

	a, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("assessment not found")
	}
	if a.DoctorID != doctorID {
		return nil, fmt.Errorf("assessment belongs to another doctor's panel")
	}

	fb.SubmittedAt = s.now().UTC()
	if err := s.repo.SaveFeedback(ctx, a.ID, &fb); err != nil {
		return nil, err
	}
	a.DoctorFeedback = &fb

	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found")
	}
	if p.Status == patient.StatusPending {
		if err := s.patients.MarkReviewed(ctx, patientID); err != nil {
			return nil, err
		}
	}

	if s.relay != nil {
		s.relay.SendFeedback(triage.FeedbackRequest{
			Input:    triage.BuildPayload(p),
			AIOutput: a.AIResponse,
			HumanFeedback: triage.HumanFeedback{
				IsCorrect:       fb.IsAccurate,
				Correction:      deref(fb.CorrectionReason),
				ActualDiagnosis: fb.CorrectedDiagnosis,
			},
		})
	}
	if s.notifier != nil {
		s.notifier.ReviewCompleted(ctx, p.CreatedByID, doctorID, patientID)
	}
	return a, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
