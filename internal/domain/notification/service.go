package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PatientReopener returns a reviewed patient record to its editable state
// after a doctor approves an edit request.
type PatientReopener interface {
	ReopenForEdit(ctx context.Context, id uuid.UUID) error
}

// Service provides business logic for durable notifications.
type Service struct {
	repo     Repository
	reopener PatientReopener
}

// NewService creates a new notification service.
func NewService(repo Repository, reopener PatientReopener) *Service {
	return &Service{repo: repo, reopener: reopener}
}

// Create persists a notification. Status always starts unread.
func (s *Service) Create(ctx context.Context, n *Notification) error {
	if !ValidType(n.Type) {
		return fmt.Errorf("invalid notification type: %s", n.Type)
	}
	if n.RecipientID == uuid.Nil {
		return fmt.Errorf("recipient_id is required")
	}
	n.Status = StatusUnread
	return s.repo.Create(ctx, n)
}

// ListForUser returns a user's notifications newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByRecipient(ctx, userID, unreadOnly, limit, offset)
}

// CountUnread returns the number of unread notifications for a user.
func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead moves a notification to read. Only the recipient may do so,
// and the transition is one-way: marking an already-read notification is
// a no-op, never a reversal.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("notification not found")
	}
	if n.RecipientID != userID {
		return fmt.Errorf("notification belongs to another user")
	}
	if n.Status == StatusRead {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

// RespondToEditRequest records a doctor's decision on an EDIT_REQUEST.
// The original notification is marked read (never deleted), a decision
// notification goes back to the requesting assistant, and on approval the
// patient record is reopened for editing. Returns the decision
// notification so callers can push it live.
func (s *Service) RespondToEditRequest(ctx context.Context, doctorID, id uuid.UUID, approve bool, note string) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("notification not found")
	}
	if n.Type != TypeEditRequest {
		return nil, fmt.Errorf("notification is not an edit request")
	}
	if n.RecipientID != doctorID {
		return nil, fmt.Errorf("edit request is addressed to another doctor")
	}

	decision := &Notification{
		RecipientID: n.SenderID,
		SenderID:    doctorID,
		PatientID:   n.PatientID,
		Type:        TypeEditRejected,
		Message:     "Edit request rejected",
	}
	if approve {
		if n.PatientID == nil {
			return nil, fmt.Errorf("edit request has no patient")
		}
		if err := s.reopener.ReopenForEdit(ctx, *n.PatientID); err != nil {
			return nil, err
		}
		decision.Type = TypeEditApproved
		decision.Message = "Edit request approved"
	}
	if note != "" {
		decision.Payload = map[string]interface{}{"note": note}
	}

	if err := s.Create(ctx, decision); err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	return decision, nil
}
