package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/marketplace-access/internal/domain"
	"github.com/spec-kit/marketplace-access/internal/events"
	"github.com/spec-kit/marketplace-access/internal/repository"
	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// ComplaintService owns the complaint lifecycle: creation, role-gated status
// transitions and visibility scoping. It is the single authority for the
// transition table; handlers never decide transitions themselves.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	dispatcher events.Dispatcher
}

// ComplaintDependencies bundles requirements for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	Dispatcher    events.Dispatcher
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		dispatcher: deps.Dispatcher,
	}
}

// SubmitInput describes complaint creation payload.
type SubmitInput struct {
	Category    string
	Title       string
	Details     string
	SubjectType *domain.ComplaintSubjectType
	SubjectID   *string
}

// ListFilter describes listing parameters before scoping is applied.
type ListFilter struct {
	Statuses []domain.ComplaintStatus
	Limit    int
	Offset   int
}

// ApplyInput carries optional parameters for a transition.
type ApplyInput struct {
	Notes             *string
	HandlerID         *string
	ExpectedUpdatedAt *time.Time
}

// Submit files a new complaint for the acting account. Status is always
// forced to submitted regardless of anything the caller supplied.
func (s *ComplaintService) Submit(ctx context.Context, actor *domain.Account, input SubmitInput) (*domain.Complaint, error) {
	if actor == nil {
		return nil, errorutil.NewAuthentication("authentication required")
	}
	if actor.Role.IsStaff() {
		return nil, errorutil.NewAuthorization("complaints are filed by ordinary accounts")
	}

	details := map[string]any{}
	if strings.TrimSpace(input.Category) == "" {
		details["category"] = "required"
	}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(input.Details) == "" {
		details["details"] = "required"
	}
	if input.SubjectType != nil && !input.SubjectType.Valid() {
		details["subject_type"] = "unknown subject type"
	}
	if input.SubjectType != nil && (input.SubjectID == nil || strings.TrimSpace(*input.SubjectID) == "") {
		details["subject_id"] = "required when subject_type is set"
	}
	if len(details) > 0 {
		return nil, errorutil.NewValidation("invalid complaint", details)
	}

	complaint := &domain.Complaint{
		ComplainantID: actor.ID,
		SubjectType:   input.SubjectType,
		SubjectID:     input.SubjectID,
		Category:      strings.TrimSpace(input.Category),
		Title:         strings.TrimSpace(input.Title),
		Details:       strings.TrimSpace(input.Details),
		Status:        domain.ComplaintStatusSubmitted,
	}
	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintSubmitted,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{AccountID: actor.ID, Role: actor.Role},
		Payload: events.ComplaintSubmittedPayload{
			Category:    complaint.Category,
			Title:       complaint.Title,
			SubjectType: complaint.SubjectType,
			SubjectID:   complaint.SubjectID,
		},
	})
	return complaint, nil
}

// List returns complaints visible to the actor. Staff see everything;
// ordinary accounts are force-scoped to their own complaints here, never in
// the handler, so a missing filter cannot leak another user's complaint.
func (s *ComplaintService) List(ctx context.Context, actor *domain.Account, filter ListFilter) ([]domain.Complaint, int64, error) {
	if actor == nil {
		return nil, 0, errorutil.NewAuthentication("authentication required")
	}
	repoFilter := repository.ComplaintFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if !actor.Role.IsStaff() {
		complainantID := actor.ID
		repoFilter.ComplainantID = &complainantID
	}
	return s.complaints.ListWithFilter(ctx, repoFilter)
}

// Get fetches one complaint under the same scoping rules as List. Ordinary
// callers asking for somebody else's complaint get not-found, not forbidden,
// so existence is not leaked.
func (s *ComplaintService) Get(ctx context.Context, actor *domain.Account, id string) (*domain.Complaint, error) {
	if actor == nil {
		return nil, errorutil.NewAuthentication("authentication required")
	}
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errorutil.NewNotFound("complaint")
		}
		return nil, err
	}
	if !actor.Role.IsStaff() && complaint.ComplainantID != actor.ID {
		return nil, errorutil.NewNotFound("complaint")
	}
	return complaint, nil
}

// Apply performs one lifecycle transition. The edge must exist in the
// transition table, the actor must hold the required capability, and the
// write is a compare-and-swap on updated_at: a concurrent transition since
// the read fails with StaleState and leaves the entity unchanged.
func (s *ComplaintService) Apply(ctx context.Context, actor *domain.Account, complaintID string, action domain.ComplaintAction, input ApplyInput) (*domain.Complaint, error) {
	if actor == nil {
		return nil, errorutil.NewAuthentication("authentication required")
	}

	complaint, err := s.Get(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}

	next, ok := domain.TransitionFor(action, complaint.Status)
	if !ok {
		return nil, errorutil.NewInvalidTransition(string(complaint.Status), string(action))
	}

	if domain.ActionByComplainant(action) {
		if complaint.ComplainantID != actor.ID {
			return nil, errorutil.NewAuthorization("only the complainant may do this")
		}
	} else if !actor.Role.IsStaff() {
		return nil, errorutil.NewAuthorization("staff role required")
	}

	expected := complaint.UpdatedAt
	if input.ExpectedUpdatedAt != nil {
		if !input.ExpectedUpdatedAt.Equal(complaint.UpdatedAt) {
			return nil, errorutil.NewStaleState("complaint was modified since it was read")
		}
		expected = *input.ExpectedUpdatedAt
	}

	oldStatus := complaint.Status
	complaint.Status = next

	switch action {
	case domain.ActionBeginReview:
		handlerID := actor.ID
		complaint.HandlerID = &handlerID
	case domain.ActionResolve, domain.ActionReject:
		handlerID := actor.ID
		if input.HandlerID != nil && *input.HandlerID != "" {
			handlerID = *input.HandlerID
		}
		complaint.HandlerID = &handlerID
		complaint.ResolutionNotes = input.Notes
	case domain.ActionWithdraw:
		// handler_id must be null in the withdrawn state.
		complaint.HandlerID = nil
	case domain.ActionClose:
		now := time.Now()
		complaint.ClosedAt = &now
	}

	if err := s.complaints.UpdateStatus(ctx, complaint, expected); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintStatusChanged,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{AccountID: actor.ID, Role: actor.Role},
		Payload: events.ComplaintStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: complaint.Status,
			Action:    action,
			HandlerID: complaint.HandlerID,
		},
	})
	return complaint, nil
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
