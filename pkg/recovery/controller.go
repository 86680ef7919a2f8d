// Package recovery drives the two-step password recovery flow: request a
// code, then redeem it together with the new credential. The controller is a
// small state machine guarding credential replacement; it runs independently
// of any active session.
package recovery

import (
	"context"
	"sync"

	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// State tags the controller's position in the flow.
type State int

const (
	// StateIdle means no recovery is in progress.
	StateIdle State = iota
	// StateAwaitingCode means a code request is in flight.
	StateAwaitingCode
	// StateAwaitingNewCredential means a code was issued and the flow waits
	// for the code plus the replacement credential.
	StateAwaitingNewCredential
	// StateSucceeded is terminal; the controller refuses further redemption.
	StateSucceeded
)

// API is the slice of the REST client the controller needs.
type API interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword, confirmPassword string) error
}

// Controller owns one recovery flow.
type Controller struct {
	mu    sync.Mutex
	api   API
	state State
	email string
	gen   int
}

// New builds an idle controller.
func New(api API) *Controller {
	return &Controller{api: api, state: StateIdle}
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Email returns the address the flow is bound to.
func (c *Controller) Email() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.email
}

// RequestCode asks the server to issue a recovery code. The acknowledgment
// is generic regardless of whether the email is registered; only transport
// failures surface. A fresh call supersedes any in-flight request: the stale
// request's result is discarded, because only the latest issued code is
// valid.
func (c *Controller) RequestCode(ctx context.Context, email string) error {
	c.mu.Lock()
	if c.state == StateSucceeded {
		c.mu.Unlock()
		return errorutil.NewValidation("recovery flow already completed", nil)
	}
	prevState, prevEmail := c.state, c.email
	c.gen++
	gen := c.gen
	c.state = StateAwaitingCode
	c.email = email
	c.mu.Unlock()

	err := c.api.ForgotPassword(ctx, email)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Superseded while in flight; this result no longer matters.
		return nil
	}
	if err != nil {
		c.state = prevState
		c.email = prevEmail
		return err
	}
	c.state = StateAwaitingNewCredential
	return nil
}

// Redeem submits the code atomically with the replacement credential. The
// confirmation mismatch is rejected locally before any network call. On
// success the controller is terminal and cannot be reused; the server has
// already consumed the code.
func (c *Controller) Redeem(ctx context.Context, code, newCredential, confirmCredential string) error {
	c.mu.Lock()
	switch c.state {
	case StateSucceeded:
		c.mu.Unlock()
		return errorutil.NewInvalidOrExpiredCode()
	case StateAwaitingNewCredential:
	default:
		c.mu.Unlock()
		return errorutil.NewValidation("no recovery code has been requested", nil)
	}
	if newCredential != confirmCredential {
		c.mu.Unlock()
		return errorutil.NewValidation("credential confirmation does not match", nil)
	}
	email := c.email
	gen := c.gen
	c.mu.Unlock()

	err := c.api.ResetPassword(ctx, email, code, newCredential, confirmCredential)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return errorutil.NewInvalidOrExpiredCode()
	}
	if err != nil {
		return err
	}
	c.state = StateSucceeded
	return nil
}

// Abandon resets the flow to idle, discarding any requested code.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = StateIdle
	c.email = ""
}
