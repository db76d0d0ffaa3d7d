package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service provides business logic for the patient intake domain.
type Service struct {
	patients Repository
}

// NewService creates a new patient domain service.
func NewService(r Repository) *Service {
	return &Service{patients: r}
}

func validateClinical(p *Patient) error {
	if p.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.Complaint == "" {
		return fmt.Errorf("complaint is required")
	}
	if p.PainLevel != nil && (*p.PainLevel < 0 || *p.PainLevel > 10) {
		return fmt.Errorf("pain_level must be between 0 and 10")
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 130) {
		return fmt.Errorf("age must be between 0 and 130")
	}
	return nil
}

// Create records a new intake. The record always starts pending; the
// creating assistant's identity is captured for notification routing.
func (s *Service) Create(ctx context.Context, p *Patient, createdBy uuid.UUID) error {
	if err := validateClinical(p); err != nil {
		return err
	}
	if p.AssignedDoctorID == uuid.Nil {
		return fmt.Errorf("assigned_doctor_id is required")
	}
	p.Status = StatusPending
	p.CreatedByID = createdBy
	return s.patients.Create(ctx, p)
}

// Update edits clinical fields. Records locked by review (any status other
// than pending) must go through the edit-request workflow first.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("patient not found")
	}
	if existing.Status != StatusPending {
		return fmt.Errorf("patient is %s; request an edit from the reviewing doctor", existing.Status)
	}
	if err := validateClinical(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListByDoctor(ctx, doctorID, limit, offset)
}

// SetStatus advances the workflow by exactly one step. The triage worker
// never calls this; status moves only on doctor actions.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	existing, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("patient not found")
	}
	if !CanTransition(existing.Status, status) {
		return fmt.Errorf("cannot transition from %s to %s", existing.Status, status)
	}
	return s.patients.UpdateStatus(ctx, id, status)
}

// MarkReviewed moves a pending record to reviewed after the doctor signs
// off on its AI assessment.
func (s *Service) MarkReviewed(ctx context.Context, id uuid.UUID) error {
	return s.SetStatus(ctx, id, StatusReviewed)
}

// ReopenForEdit returns a reviewed record to pending after a doctor
// approves an edit request. The record becomes triage-eligible again only
// if its assessment record is removed, which this method does not do.
func (s *Service) ReopenForEdit(ctx context.Context, id uuid.UUID) error {
	existing, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("patient not found")
	}
	if existing.Status != StatusReviewed {
		return fmt.Errorf("only reviewed patients can be reopened, current status is %s", existing.Status)
	}
	return s.patients.UpdateStatus(ctx, id, StatusPending)
}
