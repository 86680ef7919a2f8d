package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-access/pkg/client"
	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// fakeAPI lets tests control when Me resolves, so restore timing is
// observable.
type fakeAPI struct {
	mu          sync.Mutex
	token       string
	identity    *client.Identity
	loginErr    error
	meErr       error
	meGate      chan struct{}
	meCalls     int
	logoutCalls int
}

func (a *fakeAPI) Login(_ context.Context, email, _ string) (*client.AuthResult, error) {
	a.mu.Lock()
	loginErr := a.loginErr
	identity := a.identity
	a.mu.Unlock()
	if loginErr != nil {
		return nil, loginErr
	}
	result := &client.AuthResult{
		Token:     "token-" + email,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if identity != nil {
		result.Identity = *identity
	}
	return result, nil
}

func (a *fakeAPI) Logout(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logoutCalls++
	return nil
}

func (a *fakeAPI) Me(context.Context) (*client.Identity, error) {
	a.mu.Lock()
	a.meCalls++
	gate := a.meGate
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.meErr != nil {
		return nil, a.meErr
	}
	if a.identity == nil {
		return nil, errorutil.NewAuthentication("no identity")
	}
	identity := *a.identity
	return &identity, nil
}

func (a *fakeAPI) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

func (a *fakeAPI) ClearToken() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
}

func ordinaryIdentity() *client.Identity {
	return &client.Identity{
		ID:     "user-1",
		Name:   "Test User",
		Email:  "a@x.com",
		Role:   client.RoleOrdinary,
		Active: true,
	}
}

func waitForSettled(t *testing.T, store *Store) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return !store.Snapshot().Loading
	}, 2*time.Second, 5*time.Millisecond)
	return store.Snapshot()
}

func TestRestore(t *testing.T) {
	t.Run("no stored credential resolves to signed out", func(t *testing.T) {
		assert := assert.New(t)
		api := &fakeAPI{identity: ordinaryIdentity()}
		store := NewStore(api, NewMemoryCredentialStore())

		store.Restore(context.Background())
		snap := waitForSettled(t, store)
		assert.Nil(snap.Identity)
		assert.NoError(snap.Err)
		assert.Zero(api.meCalls)
	})

	t.Run("valid credential restores the identity", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeAPI{identity: ordinaryIdentity()}
		creds := NewMemoryCredentialStore()
		require.NoError(creds.Save("stored-token"))
		store := NewStore(api, creds)

		store.Restore(context.Background())
		snap := waitForSettled(t, store)
		require.NotNil(snap.Identity)
		assert.Equal("user-1", snap.Identity.ID)
		assert.Equal("stored-token", api.token)
	})

	t.Run("loading holds until the lookup resolves", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		gate := make(chan struct{})
		api := &fakeAPI{identity: ordinaryIdentity(), meGate: gate}
		creds := NewMemoryCredentialStore()
		require.NoError(creds.Save("stored-token"))
		store := NewStore(api, creds)

		store.Restore(context.Background())
		snap := store.Snapshot()
		assert.True(snap.Loading)
		assert.Nil(snap.Identity)

		close(gate)
		snap = waitForSettled(t, store)
		require.NotNil(snap.Identity)
	})

	t.Run("dead credential is dropped", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeAPI{meErr: errorutil.NewAuthentication("token revoked")}
		creds := NewMemoryCredentialStore()
		require.NoError(creds.Save("dead-token"))
		store := NewStore(api, creds)

		store.Restore(context.Background())
		snap := waitForSettled(t, store)
		assert.Nil(snap.Identity)
		assert.NoError(snap.Err)

		stored, err := creds.Load()
		require.NoError(err)
		assert.Empty(stored)
		assert.Empty(api.token)
	})

	t.Run("transport failure surfaces without clearing the credential", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeAPI{meErr: errorutil.NewTransport("connection refused", nil)}
		creds := NewMemoryCredentialStore()
		require.NoError(creds.Save("stored-token"))
		store := NewStore(api, creds)

		store.Restore(context.Background())
		snap := waitForSettled(t, store)
		assert.Nil(snap.Identity)
		assert.True(errorutil.IsKind(snap.Err, errorutil.KindTransport))

		stored, err := creds.Load()
		require.NoError(err)
		assert.Equal("stored-token", stored)
	})

	t.Run("login supersedes an in-flight restore", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		gate := make(chan struct{})
		api := &fakeAPI{identity: ordinaryIdentity(), meGate: gate}
		creds := NewMemoryCredentialStore()
		require.NoError(creds.Save("old-token"))
		store := NewStore(api, creds)

		store.Restore(context.Background())

		identity, err := store.Login(context.Background(), "a@x.com", "secret")
		require.NoError(err)
		require.NotNil(identity)

		// The stale restore result must not overwrite the fresh login.
		close(gate)
		time.Sleep(50 * time.Millisecond)
		snap := store.Snapshot()
		assert.False(snap.Loading)
		require.NotNil(snap.Identity)
		assert.Equal("user-1", snap.Identity.ID)
		assert.Equal("token-a@x.com", api.token)
	})
}

func TestLogin(t *testing.T) {
	t.Run("success installs and persists the credential", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		api := &fakeAPI{identity: ordinaryIdentity()}
		creds := NewMemoryCredentialStore()
		store := NewStore(api, creds)

		identity, err := store.Login(context.Background(), "a@x.com", "secret")
		require.NoError(err)
		assert.Equal("user-1", identity.ID)

		stored, err := creds.Load()
		require.NoError(err)
		assert.Equal("token-a@x.com", stored)

		snap := store.Snapshot()
		require.NotNil(snap.Identity)
		assert.False(snap.Loading)
	})

	t.Run("failure leaves the session signed out", func(t *testing.T) {
		assert := assert.New(t)
		api := &fakeAPI{loginErr: errorutil.NewAuthentication("invalid credentials")}
		store := NewStore(api, NewMemoryCredentialStore())

		_, err := store.Login(context.Background(), "a@x.com", "wrong")
		assert.True(errorutil.IsKind(err, errorutil.KindAuthentication))

		snap := store.Snapshot()
		assert.Nil(snap.Identity)
		assert.True(errorutil.IsKind(snap.Err, errorutil.KindAuthentication))
	})
}

func TestLogout(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	api := &fakeAPI{identity: ordinaryIdentity()}
	creds := NewMemoryCredentialStore()
	store := NewStore(api, creds)

	_, err := store.Login(context.Background(), "a@x.com", "secret")
	require.NoError(err)

	require.NoError(store.Logout(context.Background()))
	snap := store.Snapshot()
	assert.Nil(snap.Identity)
	assert.False(snap.Loading)

	stored, err := creds.Load()
	require.NoError(err)
	assert.Empty(stored)
	assert.Equal(1, api.logoutCalls)

	// Second logout is a no-op: no extra server call.
	require.NoError(store.Logout(context.Background()))
	assert.Equal(1, api.logoutCalls)
}

func TestMarkExpired(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	api := &fakeAPI{identity: ordinaryIdentity()}
	creds := NewMemoryCredentialStore()
	store := NewStore(api, creds)

	_, err := store.Login(context.Background(), "a@x.com", "secret")
	require.NoError(err)

	store.MarkExpired()
	snap := store.Snapshot()
	assert.Nil(snap.Identity)
	assert.True(errorutil.IsKind(snap.Err, errorutil.KindAuthentication))

	stored, err := creds.Load()
	require.NoError(err)
	assert.Empty(stored)
}

func TestSubscribe(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	api := &fakeAPI{identity: ordinaryIdentity()}
	store := NewStore(api, NewMemoryCredentialStore())

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := store.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	_, err := store.Login(context.Background(), "a@x.com", "secret")
	require.NoError(err)

	mu.Lock()
	require.NotEmpty(seen)
	last := seen[len(seen)-1]
	count := len(seen)
	mu.Unlock()
	require.NotNil(last.Identity)
	assert.Equal("user-1", last.Identity.ID)

	unsubscribe()
	require.NoError(store.Logout(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(seen, count)
}
