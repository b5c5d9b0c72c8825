package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cgm/internal/db"
	"cgm/internal/metrics"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("email and password are required")
)

// UserStore is the subset of the system of record used by login and
// session resolution.
type UserStore interface {
	UserLookup
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
}

// Service verifies credentials and produces the cookie payload for a
// successful login.
type Service struct {
	users     UserStore
	verifier  CredentialVerifier
	dummyHash string
	log       *zap.Logger
}

func NewService(users UserStore, verifier CredentialVerifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	// Unknown emails are compared against this hash so both paths cost the same.
	dummy, err := verifier.Hash(uuid.NewString())
	if err != nil {
		log.Warn("could not prepare dummy credential hash", zap.Error(err))
	}
	return &Service{users: users, verifier: verifier, dummyHash: dummy, log: log}
}

// Login checks email and password against the user record.
func (s *Service) Login(ctx context.Context, email, password string) (*CookieSessionPayload, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues("missing").Inc()
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrUserNotFound) {
		s.verifier.Verify(s.dummyHash, password)
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	if !s.verifier.Verify(user.PasswordHash, password) {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCredentials
	}

	metrics.LoginAttempts.WithLabelValues("accepted").Inc()
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return &CookieSessionPayload{ID: user.ID.String(), Email: user.Email}, nil
}
