package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ws "github.com/spineclinic/intake/internal/platform/websocket"
)

// Pusher delivers a live event to a connected user. The boolean result
// reports delivery, not an error; offline users simply miss the push and
// rely on the durable record.
type Pusher interface {
	Send(identity uuid.UUID, event ws.Event) bool
}

// Notifier is the best-effort notification facade the rest of the system
// calls. Every method swallows failures after logging them: losing a
// notification must never fail the business operation that triggered it.
type Notifier struct {
	svc    *Service
	push   Pusher
	logger zerolog.Logger
}

func NewNotifier(svc *Service, push Pusher, logger zerolog.Logger) *Notifier {
	return &Notifier{
		svc:    svc,
		push:   push,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// EditRequested posts a durable edit request to the reviewing doctor.
func (n *Notifier) EditRequested(ctx context.Context, doctorID, assistantID, patientID uuid.UUID, reason string, changes map[string]interface{}) {
	payload := map[string]interface{}{"reason": reason}
	if len(changes) > 0 {
		payload["changes"] = changes
	}
	n.create(ctx, &Notification{
		RecipientID: doctorID,
		SenderID:    assistantID,
		PatientID:   &patientID,
		Type:        TypeEditRequest,
		Message:     "Edit requested on a reviewed patient record",
		Payload:     payload,
	})
}

// AssessmentReady announces a fresh AI assessment: a durable notification
// for the assigned doctor and a live push to the assistant who created
// the intake.
func (n *Notifier) AssessmentReady(ctx context.Context, doctorID, assistantID, patientID uuid.UUID, urgency string) {
	n.create(ctx, &Notification{
		RecipientID: doctorID,
		SenderID:    assistantID,
		PatientID:   &patientID,
		Type:        TypeNewAssessment,
		Message:     "AI assessment ready for review",
		Payload:     map[string]interface{}{"urgency": urgency},
	})
	n.pushEvent(assistantID, ws.Event{
		Type:      TypeAssessmentComplete,
		PatientID: patientID.String(),
		Message:   "AI assessment completed",
	})
}

// ReviewCompleted tells the assistant the doctor has finished reviewing
// an assessment.
func (n *Notifier) ReviewCompleted(ctx context.Context, assistantID, doctorID, patientID uuid.UUID) {
	n.create(ctx, &Notification{
		RecipientID: assistantID,
		SenderID:    doctorID,
		PatientID:   &patientID,
		Type:        TypeAssessmentComplete,
		Message:     "Doctor review completed",
	})
	n.pushEvent(assistantID, ws.Event{
		Type:      TypeAssessmentComplete,
		PatientID: patientID.String(),
		Message:   "Doctor review completed",
	})
}

// PushDecision delivers an edit-request decision live to its recipient.
func (n *Notifier) PushDecision(decision *Notification) {
	event := ws.Event{Type: decision.Type, Message: decision.Message}
	if decision.PatientID != nil {
		event.PatientID = decision.PatientID.String()
	}
	n.pushEvent(decision.RecipientID, event)
}

func (n *Notifier) create(ctx context.Context, record *Notification) {
	if err := n.svc.Create(ctx, record); err != nil {
		n.logger.Error().Err(err).
			Str("type", record.Type).
			Str("recipient_id", record.RecipientID.String()).
			Msg("notification dropped")
	}
}

func (n *Notifier) pushEvent(recipient uuid.UUID, event ws.Event) {
	if n.push == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if !n.push.Send(recipient, event) {
		n.logger.Debug().Str("recipient_id", recipient.String()).
			Str("type", event.Type).Msg("live push skipped, recipient not connected")
	}
}
