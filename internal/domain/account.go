package domain

import "time"

// Role enumerates the two classes of marketplace actors.
type Role string

const (
	RoleOrdinary Role = "ORDINARY"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)

// IsStaff reports whether the role carries staff capabilities. Admin is a
// staff superset.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// VerificationState tracks the outcome of identity verification.
type VerificationState string

const (
	VerificationUnverified VerificationState = "UNVERIFIED"
	VerificationPending    VerificationState = "PENDING"
	VerificationVerified   VerificationState = "VERIFIED"
	VerificationRejected   VerificationState = "REJECTED"
)

// Account is the persisted identity record.
type Account struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Role              Role
	VerificationState VerificationState
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Identity is the projection of an account exposed to clients. It never
// carries the password hash.
type Identity struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Role              Role              `json:"role"`
	VerificationState VerificationState `json:"verification_state"`
	Active            bool              `json:"active"`
}

// Identity derives the client-visible projection.
func (a *Account) Identity() Identity {
	return Identity{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		Role:              a.Role,
		VerificationState: a.VerificationState,
		Active:            a.Active,
	}
}
