package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/marketplace-access/pkg/client"
	"github.com/spec-kit/marketplace-access/pkg/session"
	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

type nopAPI struct{}

func (nopAPI) Login(context.Context, string, string) (*client.AuthResult, error) {
	return nil, errorutil.NewAuthentication("invalid credentials")
}
func (nopAPI) Logout(context.Context) error              { return nil }
func (nopAPI) Me(context.Context) (*client.Identity, error) {
	return nil, errorutil.NewAuthentication("no identity")
}
func (nopAPI) SetToken(string) {}
func (nopAPI) ClearToken()     {}

func identityWithRole(role client.Role) *client.Identity {
	return &client.Identity{ID: "user-1", Role: role, Active: true}
}

func TestCheck(t *testing.T) {
	assert := assert.New(t)

	t.Run("pending while loading", func(t *testing.T) {
		snap := session.Snapshot{Loading: true}
		assert.Equal(Pending, Check(CapabilityAuthenticated, snap))
		assert.Equal(Pending, Check(CapabilityStaff, snap))

		// Even a populated identity yields Pending mid-restore: the state
		// is not settled yet.
		snap.Identity = identityWithRole(client.RoleStaff)
		assert.Equal(Pending, Check(CapabilityStaff, snap))
	})

	t.Run("no identity redirects to login", func(t *testing.T) {
		snap := session.Snapshot{}
		assert.Equal(RedirectToLogin, Check(CapabilityAuthenticated, snap))
		assert.Equal(RedirectToLogin, Check(CapabilityStaff, snap))
	})

	t.Run("expired session redirects to login, not forbidden", func(t *testing.T) {
		snap := session.Snapshot{Err: errorutil.NewAuthentication("session expired")}
		assert.Equal(RedirectToLogin, Check(CapabilityStaff, snap))
	})

	t.Run("ordinary identity", func(t *testing.T) {
		snap := session.Snapshot{Identity: identityWithRole(client.RoleOrdinary)}
		assert.Equal(Allow, Check(CapabilityAuthenticated, snap))
		assert.Equal(RedirectForbidden, Check(CapabilityStaff, snap))
	})

	t.Run("staff identity", func(t *testing.T) {
		snap := session.Snapshot{Identity: identityWithRole(client.RoleStaff)}
		assert.Equal(Allow, Check(CapabilityAuthenticated, snap))
		assert.Equal(Allow, Check(CapabilityStaff, snap))
	})

	t.Run("admin carries staff capability", func(t *testing.T) {
		snap := session.Snapshot{Identity: identityWithRole(client.RoleAdmin)}
		assert.Equal(Allow, Check(CapabilityStaff, snap))
	})
}

func TestGateReadsLiveState(t *testing.T) {
	assert := assert.New(t)

	store := session.NewStore(nopAPI{}, session.NewMemoryCredentialStore())
	g := New(store)

	assert.Equal(RedirectToLogin, g.Check(CapabilityAuthenticated))

	store.MarkExpired()
	assert.Equal(RedirectToLogin, g.Check(CapabilityAuthenticated))
}

func TestDecisionString(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("pending", Pending.String())
	assert.Equal("allow", Allow.String())
	assert.Equal("redirect_to_login", RedirectToLogin.String())
	assert.Equal("redirect_forbidden", RedirectForbidden.String())
}
