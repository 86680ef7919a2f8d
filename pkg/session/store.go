// Package session holds the process-wide authenticated session: the single
// source of truth every guarded check reads. State changes are pushed to
// subscribers so a logout or expiry is observed on the next check, not on the
// next page load.
package session

import (
	"context"
	"sync"

	"github.com/spec-kit/marketplace-access/pkg/client"
	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// API is the slice of the REST client the store needs.
type API interface {
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*client.Identity, error)
	SetToken(token string)
	ClearToken()
}

// Snapshot is a point-in-time copy of the session. Consumers must not retain
// it across notifications; the identity can change asynchronously.
type Snapshot struct {
	Identity *client.Identity
	Loading  bool
	Err      error
}

// Subscriber receives every session state change.
type Subscriber func(Snapshot)

// Store is the single holder of the authenticated identity.
type Store struct {
	mu         sync.Mutex
	api        API
	creds      CredentialStore
	identity   *client.Identity
	loading    bool
	err        error
	subs       map[int]Subscriber
	nextSubID  int
	restoreGen int
}

// NewStore builds a store. The session starts empty and not loading.
func NewStore(api API, creds CredentialStore) *Store {
	return &Store{
		api:   api,
		creds: creds,
		subs:  make(map[int]Subscriber),
	}
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: s.loading, Err: s.err}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	return snap
}

// Subscribe registers a subscriber and returns its unsubscribe function.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Restore attempts to reestablish a session from the persisted credential.
// It never blocks the caller: the session reads loading=true until the
// lookup resolves, and consumers must treat that interim state as unknown,
// not denied. A login or logout issued while a restore is in flight wins;
// the stale restore result is discarded.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	s.restoreGen++
	gen := s.restoreGen
	s.loading = true
	s.err = nil
	subs, snap := s.notifyLocked()
	s.mu.Unlock()
	dispatch(subs, snap)

	go s.runRestore(ctx, gen)
}

func (s *Store) runRestore(ctx context.Context, gen int) {
	token, err := s.creds.Load()
	if err != nil || token == "" {
		s.completeRestore(gen, nil, err)
		return
	}

	s.api.SetToken(token)
	identity, err := s.api.Me(ctx)
	if err != nil {
		if errorutil.IsKind(err, errorutil.KindAuthentication) || errorutil.IsKind(err, errorutil.KindAuthorization) {
			// The stored credential is dead; drop it rather than keep a
			// stale identity visible.
			_ = s.creds.Clear()
			s.api.ClearToken()
			s.completeRestore(gen, nil, nil)
			return
		}
		s.completeRestore(gen, nil, err)
		return
	}
	s.completeRestore(gen, identity, nil)
}

func (s *Store) completeRestore(gen int, identity *client.Identity, err error) {
	s.mu.Lock()
	if gen != s.restoreGen {
		// Superseded by a newer restore, login or logout.
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.identity = identity
	s.err = err
	subs, snap := s.notifyLocked()
	s.mu.Unlock()
	dispatch(subs, snap)
}

// Login validates credentials and, on success, installs and persists the
// fresh session credential.
func (s *Store) Login(ctx context.Context, email, password string) (*client.Identity, error) {
	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.mu.Lock()
		s.restoreGen++
		s.loading = false
		s.identity = nil
		s.err = err
		subs, snap := s.notifyLocked()
		s.mu.Unlock()
		dispatch(subs, snap)
		return nil, err
	}

	s.api.SetToken(result.Token)
	if err := s.creds.Save(result.Token); err != nil {
		return nil, err
	}

	identity := result.Identity
	s.mu.Lock()
	s.restoreGen++
	s.loading = false
	s.identity = &identity
	s.err = nil
	subs, snap := s.notifyLocked()
	s.mu.Unlock()
	dispatch(subs, snap)
	return &identity, nil
}

// Logout clears the identity synchronously and invalidates the persisted
// credential. Idempotent: a second call is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.restoreGen++
	hadIdentity := s.identity != nil || s.loading
	s.identity = nil
	s.loading = false
	s.err = nil
	subs, snap := s.notifyLocked()
	s.mu.Unlock()

	if !hadIdentity {
		return nil
	}
	dispatch(subs, snap)

	// Best-effort server-side revocation; the local session is already gone.
	_ = s.api.Logout(ctx)
	s.api.ClearToken()
	return s.creds.Clear()
}

// MarkExpired handles a forced expiry noticed elsewhere (a 401 on any call):
// the identity is dropped immediately rather than left stale.
func (s *Store) MarkExpired() {
	s.mu.Lock()
	s.restoreGen++
	s.identity = nil
	s.loading = false
	s.err = errorutil.NewAuthentication("session expired")
	subs, snap := s.notifyLocked()
	s.mu.Unlock()

	s.api.ClearToken()
	_ = s.creds.Clear()
	dispatch(subs, snap)
}

func (s *Store) notifyLocked() ([]Subscriber, Snapshot) {
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs, s.snapshotLocked()
}

// dispatch invokes subscribers outside the store lock.
func dispatch(subs []Subscriber, snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
