package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/client"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
	"github.com/dmitrijs2005/recipebook/internal/logging"
	"github.com/dmitrijs2005/recipebook/internal/metrics"
)

// State is a snapshot of the session.
type State struct {
	User         *models.User
	Token        string
	Initializing bool
	LastError    error
}

// IsAuthenticated reports whether a server-confirmed user is present. A
// token alone does not count.
func (s State) IsAuthenticated() bool { return s.User != nil }

// Store owns who is logged in. It is the only writer of the persisted
// session and is safe for concurrent use.
//
// Network calls are made without holding the lock, so the transport may call
// Expire from inside any of them.
type Store struct {
	api     client.AuthAPI
	persist Persistence
	logger  logging.Logger

	verifyOnce singleflight.Group

	mu      sync.RWMutex
	state   State
	epoch   uint64 // bumped on every identity change
	subs    map[int]func(State)
	nextSub int
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(authAPI client.AuthAPI, persist Persistence, opts ...Option) *Store {
	s := &Store{
		api:     authAPI,
		persist: persist,
		logger:  logging.Nop(),
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	return s
}

// Initialize restores the persisted session and revalidates its token with
// exactly one verify call. Concurrent callers share that call. Without a
// stored token no request is made.
func (s *Store) Initialize(ctx context.Context) error {
	_, err, _ := s.verifyOnce.Do("initialize", func() (any, error) {
		return nil, s.initialize(ctx)
	})
	return err
}

func (s *Store) initialize(ctx context.Context) error {
	stored, token, err := s.persist.Load(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to load session", "error", err)
		s.clear(ctx)
		return fmt.Errorf("load session: %w", err)
	}

	if token == "" {
		s.clear(ctx)
		return nil
	}

	if stored != nil {
		s.logger.Debug(ctx, "revalidating stored session", "user_id", stored.ID)
	}

	// a verify overtaken by a login or a logout must not apply its result
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.state = State{Token: token, Initializing: true}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	res, err := s.api.Verify(ctx)

	s.mu.Lock()
	s.state.Initializing = false
	if s.epoch != epoch {
		// superseded by login, logout or expiry
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}

	switch {
	case err == nil:
		if res.Token != "" {
			token = res.Token
		}
		user := res.User.Clone()
		if perr := s.persist.Save(context.WithoutCancel(ctx), user, token); perr != nil {
			s.logger.Warn(ctx, "failed to persist verified session", "error", perr)
		}
		s.state.User = &user
		s.state.Token = token
		s.state.LastError = nil
	case api.IsCanceled(err):
		// keep storage for the next start
		s.epoch++
		s.state.User, s.state.Token = nil, ""
	default:
		if perr := s.persist.Clear(context.WithoutCancel(ctx)); perr != nil {
			s.logger.Warn(ctx, "failed to clear session", "error", perr)
		}
		s.epoch++
		s.state.User, s.state.Token = nil, ""
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	metrics.SessionEvent("verify", err == nil)
	if err != nil && !api.IsCanceled(err) {
		s.logger.Info(ctx, "stored session rejected", "error", err)
	}
	return nil
}

// Login authenticates and persists the session. On failure the session is
// unchanged except for LastError; a cancelled login leaves no trace.
func (s *Store) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	res, err := s.api.Login(ctx, creds)
	if err == nil && res.Token == "" {
		err = ErrNoToken
	}
	if err != nil {
		if !api.IsCanceled(err) {
			s.recordError(err)
			metrics.SessionEvent("login", false)
		}
		return nil, err
	}

	user := res.User.Clone()
	s.mu.Lock()
	if err := s.persist.Save(context.WithoutCancel(ctx), user, res.Token); err != nil {
		s.state.LastError = err
		s.mu.Unlock()
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.epoch++
	s.state = State{User: &user, Token: res.Token}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	metrics.SessionEvent("login", true)
	s.logger.Info(ctx, "logged in", "user_id", user.ID)

	out := user.Clone()
	return &out, nil
}

// Logout ends the session. The server is told only when a token is held,
// and the local session is cleared whatever the server says. It reports
// whether the persisted session could be removed as well.
func (s *Store) Logout(ctx context.Context) bool {
	if s.Token() != "" {
		if err := s.api.Logout(ctx); err != nil && !api.IsCanceled(err) {
			s.logger.Warn(ctx, "server logout failed", "error", err)
		}
	}
	ok := s.clear(ctx)
	metrics.SessionEvent("logout", ok)
	return ok
}

// Expire is the 401 teardown. It is installed as the transport's
// unauthorized handler.
func (s *Store) Expire(ctx context.Context) {
	s.logger.Info(ctx, "session expired")
	s.clear(ctx)
	metrics.SessionEvent("expire", true)
}

func (s *Store) clear(ctx context.Context) bool {
	s.mu.Lock()
	err := s.persist.Clear(context.WithoutCancel(ctx))
	s.epoch++
	s.state.User, s.state.Token = nil, ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	if err != nil {
		s.logger.Warn(ctx, "failed to clear session", "error", err)
		return false
	}
	return true
}

// Register creates an account. It does not log in.
func (s *Store) Register(ctx context.Context, req models.RegisterRequest) (*client.Response, error) {
	return passThrough(s, func() (*client.Response, error) { return s.api.Register(ctx, req) })
}

func (s *Store) ForgotPassword(ctx context.Context, email string) (*client.Response, error) {
	return passThrough(s, func() (*client.Response, error) { return s.api.ForgotPassword(ctx, email) })
}

func (s *Store) ResetPassword(ctx context.Context, token, password string) (*client.Response, error) {
	req := models.ResetPasswordRequest{Token: token, Password: password}
	return passThrough(s, func() (*client.Response, error) { return s.api.ResetPassword(ctx, req) })
}

func (s *Store) ResendVerification(ctx context.Context, email string) (*client.Response, error) {
	return passThrough(s, func() (*client.Response, error) { return s.api.ResendVerification(ctx, email) })
}

// VerifyEmail confirms an email token and marks the current user as
// verified when one is logged in.
func (s *Store) VerifyEmail(ctx context.Context, token string) (*client.Response, error) {
	resp, err := passThrough(s, func() (*client.Response, error) { return s.api.VerifyEmail(ctx, token) })
	if err != nil {
		return nil, err
	}
	if s.IsAuthenticated() {
		verified := true
		if err := s.UpdateUserInfo(ctx, models.UserPatch{EmailVerified: &verified}); err != nil {
			s.logger.Warn(ctx, "failed to store verified flag", "error", err)
		}
	}
	return resp, nil
}

// UpdateProfile sends patch to the server and merges the canonical profile
// it returns into the current user.
func (s *Store) UpdateProfile(ctx context.Context, patch models.UserPatch) (*models.User, error) {
	if !s.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	u, err := s.api.UpdateProfile(ctx, patch)
	if err != nil {
		if !api.IsCanceled(err) {
			s.recordError(err)
		}
		return nil, err
	}
	if err := s.UpdateUserInfo(ctx, profilePatch(*u)); err != nil {
		return nil, err
	}
	return s.User(), nil
}

func profilePatch(u models.User) models.UserPatch {
	return models.UserPatch{
		Username:          &u.Username,
		Email:             &u.Email,
		FirstName:         &u.FirstName,
		LastName:          &u.LastName,
		ProfilePictureURL: &u.ProfilePictureURL,
	}
}

// UpdateUserInfo merges patch into the current user and persists the
// result. Fields absent from patch keep their values.
func (s *Store) UpdateUserInfo(ctx context.Context, patch models.UserPatch) error {
	s.mu.Lock()
	if s.state.User == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	user := patch.Apply(*s.state.User)
	if err := s.persist.Save(context.WithoutCancel(ctx), user, s.state.Token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist user: %w", err)
	}
	s.state.User = &user
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

func passThrough(s *Store, call func() (*client.Response, error)) (*client.Response, error) {
	resp, err := call()
	if err != nil {
		if !api.IsCanceled(err) {
			s.recordError(err)
		}
		return nil, err
	}
	return resp, nil
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	s.state.LastError = err
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ClearError forgets LastError.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.LastError = nil
	s.mu.Unlock()
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := s.state.User.Clone()
	return &u
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated()
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// TokenExpiry returns the exp claim of the token. The signature is not
// checked; the value is informational.
func (s *Store) TokenExpiry() (time.Time, bool) {
	tok := s.Token()
	if tok == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Subscribe registers fn to be called with every new state. Calls happen
// outside the store lock, in the goroutine that made the change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		u := st.User.Clone()
		st.User = &u
	}
	return st
}

func (s *Store) notify(st State) {
	s.mu.RLock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(st)
	}
}
