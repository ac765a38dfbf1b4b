package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/notify"
)

// Persisted keys. They are always written and cleared together.
const (
	keyToken = "auth.token"
	keyUser  = "auth.user"
)

var (
	// ErrNoSession is returned by Verify when there is no token to verify.
	ErrNoSession = errors.New("no session to verify")
	// ErrPasswordMismatch is returned by Register before any request is made.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Backend is the subset of the API client the session needs.
type Backend interface {
	CurrentUser(ctx context.Context, token string) (api.User, error)
	Login(ctx context.Context, creds api.Credentials) (string, api.User, error)
	Register(ctx context.Context, reg api.Registration) error
}

// Persistence is durable key/value storage for credentials.
type Persistence interface {
	GetState(keys ...string) (map[string]string, error)
	PutState(values map[string]string) error
	DeleteState(keys ...string) error
}

// Sealer protects the token at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Options tunes verification and wires ambient services.
type Options struct {
	VerifyTimeout time.Duration
	VerifyRetries int
	RetryBackoff  time.Duration
	Notifier      *notify.Bus
	Logger        *zap.Logger
}

// Store owns the current session. All writes go through its methods.
type Store struct {
	backend Backend
	persist Persistence
	sealer  Sealer
	opts    Options
	log     *zap.Logger

	mu        sync.RWMutex
	token     string
	state     State
	listeners []func(State)
}

// NewStore creates a store in the unchecked state. sealer may be nil, in
// which case the token is stored as-is.
func NewStore(backend Backend, persist Persistence, sealer Sealer, opts Options) *Store {
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 5 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		backend: backend,
		persist: persist,
		sealer:  sealer,
		opts:    opts,
		log:     log.Named("session"),
		state:   State{Status: StatusUnchecked},
	}
}

// OnChange registers fn to run after every transition, without the lock held.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Token returns the bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsManager is true for managers and admins.
func (s *Store) IsManager() bool { return s.Snapshot().IsManager() }

// IsAdmin is true only for admins.
func (s *Store) IsAdmin() bool { return s.Snapshot().IsAdmin() }

// Can reports whether the current user holds p.
func (s *Store) Can(p Permission) bool { return s.Snapshot().Can(p) }

// Restore loads the cached session and, if there is one, verifies it.
func (s *Store) Restore(ctx context.Context) error {
	if !s.Begin() {
		return nil
	}
	return s.Verify(ctx)
}

// Begin is the first phase of restore. A cached token and identity make the
// session authenticated but unconfirmed; it returns true when Verify should
// follow. Anything less than both cached values leaves the session anonymous.
func (s *Store) Begin() bool {
	s.setState("", State{Status: StatusChecking})

	vals, err := s.persist.GetState(keyToken, keyUser)
	if err != nil {
		s.log.Error("read cached session", zap.Error(err))
		s.setState("", State{Status: StatusAnonymous})
		return false
	}

	sealed, hasToken := vals[keyToken]
	rawUser, hasUser := vals[keyUser]
	if !hasToken || !hasUser {
		if hasToken || hasUser {
			s.log.Warn("discarding partial cached session")
			s.clearPersisted()
		}
		s.setState("", State{Status: StatusAnonymous})
		return false
	}

	token, err := s.open(sealed)
	if err != nil {
		s.log.Warn("cached token unreadable", zap.Error(err))
		s.clearPersisted()
		s.setState("", State{Status: StatusAnonymous})
		return false
	}
	var u api.User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		s.log.Warn("cached identity unreadable", zap.Error(err))
		s.clearPersisted()
		s.setState("", State{Status: StatusAnonymous})
		return false
	}

	s.setState(token, State{Status: StatusAuthenticated, User: &u})
	return true
}

// Verify confirms the current token with the server. A rejected token (any
// 4xx) clears the session. Transport failures and 5xx responses are retried;
// if they persist the unconfirmed session is kept and a warning is raised.
// Cancelling ctx stops the retries quietly and returns ctx.Err().
func (s *Store) Verify(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrNoSession
	}

	var lastErr error
	for attempt := 0; attempt <= s.opts.VerifyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.opts.RetryBackoff):
			}
		}

		err := s.verifyOnce(ctx, token)
		if err == nil || !api.IsTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		s.log.Warn("session verification failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	if s.opts.Notifier != nil {
		s.opts.Notifier.Warning("Could not reach the server. Showing your last known session.", notify.WithTitle("Offline"))
	}
	return fmt.Errorf("verify session: %w", lastErr)
}

// Recheck makes a single verification attempt for a session that is still
// unconfirmed. It raises no notification; a transient failure leaves the
// session as it was and is returned for the caller to retry later.
func (s *Store) Recheck(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrNoSession
	}
	return s.verifyOnce(ctx, token)
}

func (s *Store) verifyOnce(ctx context.Context, token string) error {
	vctx, cancel := context.WithTimeout(ctx, s.opts.VerifyTimeout)
	u, err := s.backend.CurrentUser(vctx, token)
	cancel()

	switch {
	case err == nil:
		s.confirm(token, u)
		return nil
	case !api.IsTransient(err):
		s.log.Info("session rejected by server", zap.Error(err))
		s.reject(token)
		return err
	}
	return err
}

// Login signs in. On failure the session is left exactly as it was.
func (s *Store) Login(ctx context.Context, creds api.Credentials) (api.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	token, u, err := s.backend.Login(ctx, creds)
	if err != nil {
		return api.User{}, err
	}

	s.mu.Lock()
	if err := s.writePersisted(token, u); err != nil {
		s.mu.Unlock()
		return api.User{}, fmt.Errorf("save session: %w", err)
	}
	s.token = token
	s.state = State{Status: StatusAuthenticated, User: &u, Confirmed: true}
	st, listeners := s.snapshotLocked(), s.snapshotListeners()
	s.mu.Unlock()

	fire(listeners, st)
	s.log.Info("signed in", zap.Int("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// Register creates an account without signing in. Server field errors come
// back as one combined message.
func (s *Store) Register(ctx context.Context, reg api.Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Email == "" || reg.Password == "" {
		return fmt.Errorf("email and password are required")
	}
	if reg.PasswordConfirm != "" && reg.PasswordConfirm != reg.Password {
		return ErrPasswordMismatch
	}
	return s.backend.Register(ctx, reg)
}

// Logout clears the session. Calling it when already anonymous is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	s.clearPersisted()
	changed := s.state.Status != StatusAnonymous || s.token != ""
	s.token = ""
	s.state = State{Status: StatusAnonymous}
	st, listeners := s.snapshotLocked(), s.snapshotListeners()
	s.mu.Unlock()

	if changed {
		s.log.Info("signed out")
		fire(listeners, st)
	}
}

// confirm applies a successful verification unless the session moved on.
func (s *Store) confirm(token string, u api.User) {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	if err := s.writePersisted(token, u); err != nil {
		s.log.Error("persist verified session", zap.Error(err))
	}
	s.state = State{Status: StatusAuthenticated, User: &u, Confirmed: true}
	st, listeners := s.snapshotLocked(), s.snapshotListeners()
	s.mu.Unlock()

	fire(listeners, st)
}

// reject drops a token the server refused unless the session moved on.
func (s *Store) reject(token string) {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	s.clearPersisted()
	s.token = ""
	s.state = State{Status: StatusAnonymous}
	st, listeners := s.snapshotLocked(), s.snapshotListeners()
	s.mu.Unlock()

	fire(listeners, st)
}

func (s *Store) setState(token string, st State) {
	s.mu.Lock()
	s.token = token
	s.state = st
	snap, listeners := s.snapshotLocked(), s.snapshotListeners()
	s.mu.Unlock()

	fire(listeners, snap)
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Store) snapshotListeners() []func(State) {
	out := make([]func(State), len(s.listeners))
	copy(out, s.listeners)
	return out
}

func (s *Store) writePersisted(token string, u api.User) error {
	sealed, err := s.seal(token)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return s.persist.PutState(map[string]string{keyToken: sealed, keyUser: string(raw)})
}

func (s *Store) clearPersisted() {
	if err := s.persist.DeleteState(keyToken, keyUser); err != nil {
		s.log.Error("clear cached session", zap.Error(err))
	}
}

func (s *Store) seal(token string) (string, error) {
	if s.sealer == nil {
		return token, nil
	}
	return s.sealer.Seal(token)
}

func (s *Store) open(sealed string) (string, error) {
	if s.sealer == nil {
		return sealed, nil
	}
	return s.sealer.Open(sealed)
}

func fire(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st)
	}
}
