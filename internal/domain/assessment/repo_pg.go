package assessment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type assessmentRepoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL assessment repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &assessmentRepoPG{pool: pool}
}

const assessmentCols = `id, patient_id, doctor_id, ai_response, doctor_feedback,
	created_at, updated_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AIResponse, &a.DoctorFeedback,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ai_assessments (id, patient_id, doctor_id, ai_response)
		VALUES ($1,$2,$3,$4)`,
		a.ID, a.PatientID, a.DoctorID, a.AIResponse)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *assessmentRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error) {
	return scanAssessment(r.pool.QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM ai_assessments WHERE patient_id = $1`, patientID))
}

func (r *assessmentRepoPG) ExistsForPatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ai_assessments WHERE patient_id = $1)`, patientID).Scan(&exists)
	return exists, err
}

func (r *assessmentRepoPG) SaveFeedback(ctx context.Context, id uuid.UUID, fb *Feedback) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_assessments SET doctor_feedback=$2, updated_at=NOW() WHERE id = $1`, id, fb)
	return err
}

func (r *assessmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ai_assessments WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentCols+` FROM ai_assessments WHERE doctor_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
