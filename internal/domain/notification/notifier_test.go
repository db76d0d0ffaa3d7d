package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestNotifierSwallowsPersistenceFailure(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = errors.New("db down")
	n := NewNotifier(NewService(repo, &mockReopener{}), newMockPusher(true), zerolog.Nop())

	// Must not panic or return anything; the loss is logged only.
	n.EditRequested(context.Background(), uuid.New(), uuid.New(), uuid.New(), "typo in complaint", nil)
	n.AssessmentReady(context.Background(), uuid.New(), uuid.New(), uuid.New(), "high")
}

func TestNotifierEditRequested(t *testing.T) {
	repo := newMockRepo()
	n := NewNotifier(NewService(repo, &mockReopener{}), nil, zerolog.Nop())

	doctorID, assistantID, patientID := uuid.New(), uuid.New(), uuid.New()
	changes := map[string]interface{}{"pain_duration": "6 weeks"}
	n.EditRequested(context.Background(), doctorID, assistantID, patientID, "duration was wrong", changes)

	if len(repo.items) != 1 {
		t.Fatalf("items = %d, want 1", len(repo.items))
	}
	for _, rec := range repo.items {
		if rec.Type != TypeEditRequest {
			t.Errorf("type = %q", rec.Type)
		}
		if rec.RecipientID != doctorID || rec.SenderID != assistantID {
			t.Error("edit request misrouted")
		}
		if rec.Payload["reason"] != "duration was wrong" {
			t.Errorf("reason = %v", rec.Payload["reason"])
		}
		if rec.Status != StatusUnread {
			t.Errorf("status = %q", rec.Status)
		}
	}
}

func TestNotifierAssessmentReady(t *testing.T) {
	repo := newMockRepo()
	push := newMockPusher(true)
	n := NewNotifier(NewService(repo, &mockReopener{}), push, zerolog.Nop())

	doctorID, assistantID, patientID := uuid.New(), uuid.New(), uuid.New()
	n.AssessmentReady(context.Background(), doctorID, assistantID, patientID, "moderate")

	var durable *Notification
	for _, rec := range repo.items {
		durable = rec
	}
	if durable == nil || durable.Type != TypeNewAssessment || durable.RecipientID != doctorID {
		t.Fatalf("durable record wrong: %+v", durable)
	}
	if durable.Payload["urgency"] != "moderate" {
		t.Errorf("urgency = %v", durable.Payload["urgency"])
	}

	events := push.events[assistantID]
	if len(events) != 1 {
		t.Fatalf("assistant push events = %d, want 1", len(events))
	}
	if events[0].Type != TypeAssessmentComplete || events[0].PatientID != patientID.String() {
		t.Errorf("push event = %+v", events[0])
	}
	if events[0].Timestamp.IsZero() {
		t.Error("push events must carry a timestamp")
	}
}

func TestNotifierToleratesOfflineRecipient(t *testing.T) {
	repo := newMockRepo()
	n := NewNotifier(NewService(repo, &mockReopener{}), newMockPusher(false), zerolog.Nop())

	n.ReviewCompleted(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if len(repo.items) != 1 {
		t.Fatal("durable record must be written even when the push is not delivered")
	}
}

func TestNotifierNilPusher(t *testing.T) {
	n := NewNotifier(NewService(newMockRepo(), &mockReopener{}), nil, zerolog.Nop())
	n.PushDecision(&Notification{RecipientID: uuid.New(), Type: TypeEditApproved})
}
