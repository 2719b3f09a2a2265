package identity

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"

	"github.com/jwalitptl/leukemia-dashboard/internal/client"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/session"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
)

const mePath = "auth/users/me/"

// ErrNotAuthenticated is wrapped by the AuthError RequireAuthenticated
// returns when no identity can be resolved.
var ErrNotAuthenticated = stderrors.New("not authenticated")

// State is what screens render from: the resolved identity, or nil, and
// whether a fetch is in flight. Err keeps the last fetch failure for
// diagnostics.
type State struct {
	Identity *model.Identity
	Loading  bool
	Err      error
}

func (s State) Authenticated() bool {
	return s.Identity != nil
}

type Service struct {
	api   client.API
	store session.Store
	log   *logger.Logger

	mu    sync.RWMutex
	state State
}

func NewService(api client.API, store session.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		api:   api,
		store: store,
		log:   log.With("identity"),
	}
}

// FetchCurrentUser makes a fresh round trip every call and propagates any
// failure, AuthError included.
func (s *Service) FetchCurrentUser(ctx context.Context) (*model.Identity, error) {
	var user model.Identity
	if err := s.api.Do(ctx, http.MethodGet, mePath, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh re-resolves the identity. A failure is logged and resolves to an
// absent identity instead of being returned; callers treat that as signed out.
// On success the identity is persisted next to the session token.
func (s *Service) Refresh(ctx context.Context) State {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	user, err := s.FetchCurrentUser(ctx)
	if err != nil {
		s.log.Warn(err, "failed to fetch current user", "auth_error", errors.IsAuth(err))
		return s.set(State{Err: err})
	}

	if token, terr := s.store.Token(ctx); terr == nil && token != "" {
		if serr := s.store.Save(ctx, token, user); serr != nil {
			s.log.Warn(serr, "failed to persist current user")
		}
	}
	return s.set(State{Identity: user})
}

// State returns a snapshot safe to read from any goroutine.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set installs an identity fetched elsewhere, e.g. during login.
func (s *Service) Set(user *model.Identity) {
	s.set(State{Identity: user})
}

// Reset forgets the resolved identity.
func (s *Service) Reset() {
	s.set(State{})
}

// RequireAuthenticated gates navigation: it resolves the identity if none is
// held and returns an AuthError when there is still none.
func (s *Service) RequireAuthenticated(ctx context.Context) (*model.Identity, error) {
	st := s.State()
	if st.Identity == nil {
		st = s.Refresh(ctx)
	}
	if st.Identity == nil {
		return nil, errors.Unauthorized(ErrNotAuthenticated)
	}
	return st.Identity, nil
}

// Cached returns the identity persisted with the session, without a request.
func (s *Service) Cached(ctx context.Context) (*model.Identity, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return sess.User, nil
}

func (s *Service) set(st State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	return st
}
