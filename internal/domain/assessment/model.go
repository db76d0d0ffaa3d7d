// Package assessment stores AI triage results and the doctor feedback
// recorded against them. Each patient has at most one assessment; the
// database enforces this with a unique constraint so concurrent writers
// cannot double-claim a patient.
package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Assessment is one AI triage result for a patient. AIResponse is stored
// as an opaque document so fields the prediction service adds later
// survive round-trips; readers use triage.ViewResponse for typed access.
type Assessment struct {
	ID             uuid.UUID              `db:"id" json:"id"`
	PatientID      uuid.UUID              `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID              `db:"doctor_id" json:"doctor_id"`
	AIResponse     map[string]interface{} `db:"ai_response" json:"ai_response"`
	DoctorFeedback *Feedback              `db:"doctor_feedback" json:"doctor_feedback,omitempty"`
	CreatedAt      time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time              `db:"updated_at" json:"updated_at"`
}

// Feedback is the doctor's verdict on an assessment. Resubmitting
// overwrites the previous verdict in place.
type Feedback struct {
	IsAccurate         bool      `json:"isAccurate"`
	CorrectionReason   *string   `json:"correctionReason,omitempty"`
	CorrectedDiagnosis []string  `json:"correctedDiagnosis,omitempty"`
	SubmittedAt        time.Time `json:"submittedAt"`
}
