// Package gate evaluates navigation and action requests against the session.
// The three-outcome-plus-pending decision is deliberate: while the session is
// still restoring the gate answers Pending, never Allow or a redirect, so a
// slow restore is neither bounced to login nor leaked access.
package gate

import (
	"github.com/spec-kit/marketplace-access/pkg/session"
)

// Capability names a permission check.
type Capability int

const (
	// CapabilityAuthenticated requires any signed-in identity.
	CapabilityAuthenticated Capability = iota
	// CapabilityStaff additionally requires a staff role.
	CapabilityStaff
)

// Decision is the outcome of a gate check.
type Decision int

const (
	// Pending means the identity is not yet known; callers must suspend,
	// not default to allow or deny.
	Pending Decision = iota
	// Allow lets the request proceed.
	Allow
	// RedirectToLogin denies because no identity is present.
	RedirectToLogin
	// RedirectForbidden denies because the identity lacks the role.
	RedirectForbidden
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	default:
		return "unknown"
	}
}

// Check evaluates a capability against a session snapshot.
func Check(capability Capability, snap session.Snapshot) Decision {
	if snap.Loading {
		return Pending
	}
	if snap.Identity == nil {
		return RedirectToLogin
	}
	if capability == CapabilityStaff && !snap.Identity.Role.IsStaff() {
		return RedirectForbidden
	}
	return Allow
}

// Gate binds checks to a live session store so every decision reads the
// latest notified state, never a cached copy.
type Gate struct {
	store *session.Store
}

// New builds a gate over the store.
func New(store *session.Store) *Gate {
	return &Gate{store: store}
}

// Check evaluates the capability against the store's current snapshot.
func (g *Gate) Check(capability Capability) Decision {
	return Check(capability, g.store.Snapshot())
}
