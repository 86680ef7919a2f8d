package client

import "time"

// Role classifies the authenticated party.
type Role string

const (
	RoleOrdinary Role = "ORDINARY"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)

// IsStaff reports whether the role carries staff capabilities.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Identity is the authenticated party as reported by the API.
type Identity struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              Role   `json:"role"`
	VerificationState string `json:"verification_state"`
	Active            bool   `json:"active"`
}

// AuthResult carries the outcome of a successful login.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  Identity  `json:"identity"`
}

// Complaint is the wire shape of a complaint.
type Complaint struct {
	ID              string     `json:"id"`
	ComplainantID   string     `json:"complainant_id"`
	SubjectType     *string    `json:"subject_type,omitempty"`
	SubjectID       *string    `json:"subject_id,omitempty"`
	Category        string     `json:"category"`
	Title           string     `json:"title"`
	Details         string     `json:"details"`
	Status          string     `json:"status"`
	HandlerID       *string    `json:"handler_id,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// ListMeta is pagination metadata for list endpoints.
type ListMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	LastPage    int   `json:"last_page"`
}

// ComplaintPage is one page of complaints.
type ComplaintPage struct {
	Data []Complaint `json:"data"`
	Meta ListMeta    `json:"meta"`
}

// ComplaintListQuery captures list parameters.
type ComplaintListQuery struct {
	Status   string
	Page     int
	PageSize int
}

// SubmitComplaintInput is the creation payload.
type SubmitComplaintInput struct {
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Details     string  `json:"details"`
	SubjectType *string `json:"subject_type,omitempty"`
	SubjectID   *string `json:"subject_id,omitempty"`
}

// ComplaintActionInput is the PATCH payload for a lifecycle transition.
type ComplaintActionInput struct {
	Action            string     `json:"action"`
	Notes             *string    `json:"notes,omitempty"`
	HandlerID         *string    `json:"handler_id,omitempty"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at,omitempty"`
}
