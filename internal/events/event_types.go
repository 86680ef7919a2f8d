package events

import (
	"time"

	"github.com/spec-kit/marketplace-access/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintSubmitted     EventType = "complaint_submitted"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id,omitempty"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintSubmittedPayload payload.
type ComplaintSubmittedPayload struct {
	Category    string                       `json:"category"`
	Title       string                       `json:"title"`
	SubjectType *domain.ComplaintSubjectType `json:"subject_type,omitempty"`
	SubjectID   *string                      `json:"subject_id,omitempty"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Action    domain.ComplaintAction `json:"action"`
	HandlerID *string                `json:"handler_id,omitempty"`
}

// PasswordResetRequestedPayload payload. Carries the address only; the code
// itself never leaves the auth service and the mail channel.
type PasswordResetRequestedPayload struct {
	Email string `json:"email"`
}
