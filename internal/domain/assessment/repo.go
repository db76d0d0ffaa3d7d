package assessment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrDuplicate is returned by Create when the patient already has an
// assessment. The insert is atomic: of two concurrent writers exactly one
// succeeds and the other gets this error.
var ErrDuplicate = errors.New("assessment: patient already assessed")

// Repository is the persistence contract for assessments.
type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error)
	ExistsForPatient(ctx context.Context, patientID uuid.UUID) (bool, error)
	SaveFeedback(ctx context.Context, id uuid.UUID, fb *Feedback) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Assessment, int, error)
}
