package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification types. EDIT_* drive the record-edit approval workflow,
// NEW_ASSESSMENT and ASSESSMENT_COMPLETE announce triage results, SYSTEM
// is for operator broadcasts.
const (
	TypeEditRequest        = "EDIT_REQUEST"
	TypeEditApproved       = "EDIT_APPROVED"
	TypeEditRejected       = "EDIT_REJECTED"
	TypeNewAssessment      = "NEW_ASSESSMENT"
	TypeAssessmentComplete = "ASSESSMENT_COMPLETE"
	TypeSystem             = "SYSTEM"
)

var validTypes = map[string]bool{
	TypeEditRequest:        true,
	TypeEditApproved:       true,
	TypeEditRejected:       true,
	TypeNewAssessment:      true,
	TypeAssessmentComplete: true,
	TypeSystem:             true,
}

// ValidType reports whether t is one of the defined notification types.
func ValidType(t string) bool { return validTypes[t] }

// Read states. The transition is one-way: read notifications never
// become unread again.
const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

// Notification is a durable in-app message. Payload is free-form JSONB;
// for EDIT_REQUEST it carries the reason and the proposed field changes.
type Notification struct {
	ID          uuid.UUID              `db:"id" json:"id"`
	RecipientID uuid.UUID              `db:"recipient_id" json:"recipient_id"`
	SenderID    uuid.UUID              `db:"sender_id" json:"sender_id"`
	PatientID   *uuid.UUID             `db:"patient_id" json:"patient_id,omitempty"`
	Type        string                 `db:"type" json:"type"`
	Message     string                 `db:"message" json:"message"`
	Payload     map[string]interface{} `db:"payload" json:"payload,omitempty"`
	Status      string                 `db:"status" json:"status"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
}
