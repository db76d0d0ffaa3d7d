package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for patient intake records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Patient, int, error)
	// ListTriageReady returns up to limit records with status=pending and a
	// non-empty expected diagnosis, oldest first.
	ListTriageReady(ctx context.Context, limit int) ([]*Patient, error)
}
