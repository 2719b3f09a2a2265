package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jwalitptl/leukemia-dashboard/internal/client"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/service/identity"
	"github.com/jwalitptl/leukemia-dashboard/internal/session"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

const (
	loginPath    = "auth/token/login/"
	registerPath = "register/"
)

var ErrNoTokenIssued = stderrors.New("login response carried no token")

type Service struct {
	api       client.API
	store     session.Store
	identity  *identity.Service
	validator validator.Validator
	log       *logger.Logger
}

func NewService(api client.API, store session.Store, resolver *identity.Service, v validator.Validator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		api:       api,
		store:     store,
		identity:  resolver,
		validator: v,
		log:       log.With("auth"),
	}
}

// Login exchanges credentials for a token, fetches the identity with it and
// only then persists both. Any failure leaves the stored session untouched.
func (s *Service) Login(ctx context.Context, email, password string) (*session.Session, error) {
	req := model.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var tr model.TokenResponse
	if err := s.api.Do(ctx, http.MethodPost, loginPath, req, &tr); err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	token := tr.Value()
	if token == "" {
		return nil, errors.Internal(http.StatusOK, ErrNoTokenIssued)
	}

	var user model.Identity
	if err := s.api.Do(client.ContextWithToken(ctx, token), http.MethodGet, "auth/users/me/", nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch identity after login: %w", err)
	}

	if err := s.store.Save(ctx, token, &user); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	if s.identity != nil {
		s.identity.Set(&user)
	}
	s.log.Info("signed in", "user_id", user.ID)

	return &session.Session{Token: token, User: &user}, nil
}

// Register creates an account. The confirmation is checked locally and the
// backend only sees email, password and name. No session is created.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	if err := s.api.Do(ctx, http.MethodPost, registerPath, req, nil); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	s.log.Info("account registered", "email", req.Email)
	return nil
}

// Logout drops the token and the cached identity together.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if s.identity != nil {
		s.identity.Reset()
	}
	s.log.Info("signed out")
	return nil
}
