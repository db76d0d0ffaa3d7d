package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL patient repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, first_name, last_name, age, gender, complaint,
	pain_level, pain_duration, pain_location, conditions, trauma, exam_notes,
	expected_diagnosis, status, assigned_doctor_id, created_by_id,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Age, &p.Gender, &p.Complaint,
		&p.PainLevel, &p.PainDuration, &p.PainLocation, &p.Conditions, &p.Trauma, &p.ExamNotes,
		&p.ExpectedDiagnosis, &p.Status, &p.AssignedDoctorID, &p.CreatedByID,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, age, gender, complaint,
			pain_level, pain_duration, pain_location, conditions, trauma, exam_notes,
			expected_diagnosis, status, assigned_doctor_id, created_by_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.FirstName, p.LastName, p.Age, p.Gender, p.Complaint,
		p.PainLevel, p.PainDuration, p.PainLocation, p.Conditions, p.Trauma, p.ExamNotes,
		p.ExpectedDiagnosis, p.Status, p.AssignedDoctorID, p.CreatedByID)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, age=$4, gender=$5,
			complaint=$6, pain_level=$7, pain_duration=$8, pain_location=$9,
			conditions=$10, trauma=$11, exam_notes=$12, expected_diagnosis=$13,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Age, p.Gender,
		p.Complaint, p.PainLevel, p.PainDuration, p.PainLocation,
		p.Conditions, p.Trauma, p.ExamNotes, p.ExpectedDiagnosis)
	return err
}

func (r *patientRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE patients SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectPatients(rows)
	return items, total, err
}

func (r *patientRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE assigned_doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE assigned_doctor_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectPatients(rows)
	return items, total, err
}

func (r *patientRepoPG) ListTriageReady(ctx context.Context, limit int) ([]*Patient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patients
		 WHERE status = $1 AND expected_diagnosis <> ''
		 ORDER BY created_at ASC LIMIT $2`, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
