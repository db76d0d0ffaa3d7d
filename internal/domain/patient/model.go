package patient

import (
	"time"

	"github.com/google/uuid"
)

// Intake workflow statuses. A record starts as pending, becomes reviewed
// when a doctor signs off on the AI assessment, completed when the visit
// concludes, and report once the final report is issued.
const (
	StatusPending   = "pending"
	StatusReviewed  = "reviewed"
	StatusCompleted = "completed"
	StatusReport    = "report"
)

// Patient maps to the patients table. The clinical flag groups
// (PainLocation, Conditions, Trauma) are stored as JSONB objects of
// boolean flags; each group may carry a free-text "others" entry that is
// not a flag.
type Patient struct {
	ID                uuid.UUID              `db:"id" json:"id"`
	FirstName         string                 `db:"first_name" json:"first_name"`
	LastName          string                 `db:"last_name" json:"last_name"`
	Age               *int                   `db:"age" json:"age,omitempty"`
	Gender            *string                `db:"gender" json:"gender,omitempty"`
	Complaint         string                 `db:"complaint" json:"complaint"`
	PainLevel         *int                   `db:"pain_level" json:"pain_level,omitempty"`
	PainDuration      *string                `db:"pain_duration" json:"pain_duration,omitempty"`
	PainLocation      map[string]interface{} `db:"pain_location" json:"pain_location,omitempty"`
	Conditions        map[string]interface{} `db:"conditions" json:"conditions,omitempty"`
	Trauma            map[string]interface{} `db:"trauma" json:"trauma,omitempty"`
	ExamNotes         *string                `db:"exam_notes" json:"exam_notes,omitempty"`
	ExpectedDiagnosis string                 `db:"expected_diagnosis" json:"expected_diagnosis"`
	Status            string                 `db:"status" json:"status"`
	AssignedDoctorID  uuid.UUID              `db:"assigned_doctor_id" json:"assigned_doctor_id"`
	CreatedByID       uuid.UUID              `db:"created_by_id" json:"created_by_id"`
	CreatedAt         time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time              `db:"updated_at" json:"updated_at"`
}

// TriageReady reports whether the record is eligible for AI triage:
// intake finished (expected diagnosis recorded) and not yet reviewed.
func (p *Patient) TriageReady() bool {
	return p.Status == StatusPending && p.ExpectedDiagnosis != ""
}

var validStatuses = map[string]bool{
	StatusPending: true, StatusReviewed: true, StatusCompleted: true, StatusReport: true,
}

// statusRank orders the workflow; transitions may only move forward one step.
var statusRank = map[string]int{
	StatusPending: 0, StatusReviewed: 1, StatusCompleted: 2, StatusReport: 3,
}

// CanTransition reports whether a record may move from one status to the next.
func CanTransition(from, to string) bool {
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr == fr+1
}
