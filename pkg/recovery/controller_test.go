package recovery

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// fakeRecoveryAPI records calls and replays canned results.
type fakeRecoveryAPI struct {
	mu          sync.Mutex
	forgotErr   error
	resetErr    error
	forgotCalls int
	resetCalls  int
	lastCode    string
	lastEmail   string
}

func (a *fakeRecoveryAPI) ForgotPassword(_ context.Context, email string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forgotCalls++
	a.lastEmail = email
	return a.forgotErr
}

func (a *fakeRecoveryAPI) ResetPassword(_ context.Context, email, code, _, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetCalls++
	a.lastEmail = email
	a.lastCode = code
	return a.resetErr
}

func TestRequestCode(t *testing.T) {
	t.Run("advances to awaiting credential", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeRecoveryAPI{}
		c := New(api)

		require.NoError(c.RequestCode(context.Background(), "a@x.com"))
		assert.Equal(StateAwaitingNewCredential, c.State())
		assert.Equal("a@x.com", c.Email())
		assert.Equal(1, api.forgotCalls)
	})

	t.Run("transport failure reverts to idle", func(t *testing.T) {
		assert := assert.New(t)
		api := &fakeRecoveryAPI{forgotErr: errorutil.NewTransport("connection refused", nil)}
		c := New(api)

		err := c.RequestCode(context.Background(), "a@x.com")
		assert.True(errorutil.IsKind(err, errorutil.KindTransport))
		assert.Equal(StateIdle, c.State())
		assert.Empty(c.Email())
	})

	t.Run("second request rebinds the flow", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeRecoveryAPI{}
		c := New(api)

		require.NoError(c.RequestCode(context.Background(), "a@x.com"))
		require.NoError(c.RequestCode(context.Background(), "b@x.com"))
		assert.Equal(StateAwaitingNewCredential, c.State())
		assert.Equal("b@x.com", c.Email())
		assert.Equal(2, api.forgotCalls)
	})
}

func TestRedeem(t *testing.T) {
	t.Run("without a requested code", func(t *testing.T) {
		assert := assert.New(t)
		api := &fakeRecoveryAPI{}
		c := New(api)

		err := c.Redeem(context.Background(), "123456", "new", "new")
		assert.True(errorutil.IsKind(err, errorutil.KindValidation))
		assert.Zero(api.resetCalls)
	})

	t.Run("mismatch rejected before any network call", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeRecoveryAPI{}
		c := New(api)
		require.NoError(c.RequestCode(context.Background(), "a@x.com"))

		err := c.Redeem(context.Background(), "123456", "one", "two")
		assert.True(errorutil.IsKind(err, errorutil.KindValidation))
		assert.Zero(api.resetCalls)
		assert.Equal(StateAwaitingNewCredential, c.State())
	})

	t.Run("server rejection keeps the flow open", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeRecoveryAPI{resetErr: errorutil.NewInvalidOrExpiredCode()}
		c := New(api)
		require.NoError(c.RequestCode(context.Background(), "a@x.com"))

		err := c.Redeem(context.Background(), "stale-code", "new", "new")
		assert.True(errorutil.IsKind(err, errorutil.KindInvalidOrExpiredCode))
		assert.Equal(StateAwaitingNewCredential, c.State())
	})

	t.Run("success is terminal and single-use", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeRecoveryAPI{}
		c := New(api)
		require.NoError(c.RequestCode(context.Background(), "a@x.com"))

		require.NoError(c.Redeem(context.Background(), "123456", "new", "new"))
		assert.Equal(StateSucceeded, c.State())
		assert.Equal("123456", api.lastCode)

		// The code was consumed; the flow refuses to redeem again without
		// hitting the server.
		err := c.Redeem(context.Background(), "123456", "other", "other")
		assert.True(errorutil.IsKind(err, errorutil.KindInvalidOrExpiredCode))
		assert.Equal(1, api.resetCalls)

		err = c.RequestCode(context.Background(), "a@x.com")
		assert.True(errorutil.IsKind(err, errorutil.KindValidation))
	})
}

func TestAbandon(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	api := &fakeRecoveryAPI{}
	c := New(api)

	require.NoError(c.RequestCode(context.Background(), "a@x.com"))
	c.Abandon()
	assert.Equal(StateIdle, c.State())
	assert.Empty(c.Email())

	// Abandon discards the issued code; redemption must start over.
	err := c.Redeem(context.Background(), "123456", "new", "new")
	assert.True(errorutil.IsKind(err, errorutil.KindValidation))
	assert.Zero(api.resetCalls)
}
