package dto

import (
	"time"

	"github.com/spec-kit/marketplace-access/internal/domain"
)

// CreateComplaintRequest payload. Any client-supplied status is ignored.
type CreateComplaintRequest struct {
	Category    string                       `json:"category"`
	Title       string                       `json:"title"`
	Details     string                       `json:"details"`
	SubjectType *domain.ComplaintSubjectType `json:"subject_type,omitempty"`
	SubjectID   *string                      `json:"subject_id,omitempty"`
}

// ApplyComplaintActionRequest payload for PATCH /complaints/:id.
type ApplyComplaintActionRequest struct {
	Action            domain.ComplaintAction `json:"action"`
	Notes             *string                `json:"notes,omitempty"`
	HandlerID         *string                `json:"handler_id,omitempty"`
	ExpectedUpdatedAt *time.Time             `json:"expected_updated_at,omitempty"`
}

// ComplaintResponse is the wire shape of a complaint.
type ComplaintResponse struct {
	ID              string                       `json:"id"`
	ComplainantID   string                       `json:"complainant_id"`
	SubjectType     *domain.ComplaintSubjectType `json:"subject_type,omitempty"`
	SubjectID       *string                      `json:"subject_id,omitempty"`
	Category        string                       `json:"category"`
	Title           string                       `json:"title"`
	Details         string                       `json:"details"`
	Status          domain.ComplaintStatus       `json:"status"`
	HandlerID       *string                      `json:"handler_id,omitempty"`
	ResolutionNotes *string                      `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
	ClosedAt        *time.Time                   `json:"closed_at,omitempty"`
}

// ListMeta is pagination metadata for list responses.
type ListMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	LastPage    int   `json:"last_page"`
}

// ComplaintListResponse wraps a page of complaints.
type ComplaintListResponse struct {
	Data []ComplaintResponse `json:"data"`
	Meta ListMeta            `json:"meta"`
}

// NewComplaintResponse maps the domain entity to its wire shape.
func NewComplaintResponse(c *domain.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:              c.ID,
		ComplainantID:   c.ComplainantID,
		SubjectType:     c.SubjectType,
		SubjectID:       c.SubjectID,
		Category:        c.Category,
		Title:           c.Title,
		Details:         c.Details,
		Status:          c.Status,
		HandlerID:       c.HandlerID,
		ResolutionNotes: c.ResolutionNotes,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		ClosedAt:        c.ClosedAt,
	}
}

// NewListMeta computes pagination metadata.
func NewListMeta(total int64, page, perPage int) ListMeta {
	if perPage <= 0 {
		perPage = 20
	}
	lastPage := int(total) / perPage
	if int(total)%perPage > 0 {
		lastPage++
	}
	if lastPage < 1 {
		lastPage = 1
	}
	return ListMeta{
		Total:       total,
		CurrentPage: page,
		PerPage:     perPage,
		LastPage:    lastPage,
	}
}
