package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

var (
	// ErrUserExists is returned by SignUp for an email that is already registered.
	ErrUserExists = errors.New("user already registered")
	// ErrInvalidToken is returned for expired, malformed or revoked tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Service implements the account flows on top of a Store and an Issuer.
// It backs both the HTTP handlers and the in-process session authenticator.
type Service struct {
	store  store.Store
	issuer *Issuer
	log    logrus.FieldLogger
}

// NewService creates a Service.
func NewService(s store.Store, issuer *Issuer, log logrus.FieldLogger) *Service {
	return &Service{store: s, issuer: issuer, log: log}
}

// SignUp registers an account and opens a session for it.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	if err := models.ValidateCredentials(email, password, true); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: strings.TrimSpace(email), PasswordHash: hash}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID}).Info("user signed up")
	return s.issuer.Issue(*user)
}

// SignIn checks email and password and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := models.ValidateCredentials(email, password, false); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	return s.issuer.Issue(*user)
}

// Refresh exchanges a refresh token for a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return s.issuer.Issue(*user)
}

// SignOut ends a session. Tokens are stateless and simply expire.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

// Recover accepts a password recovery request. It never reveals whether the
// account exists.
func (s *Service) Recover(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return &models.ValidationError{Field: "email", Message: "email is required"}
	}

	if _, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email)); err == nil {
		s.log.WithFields(logrus.Fields{"email": email}).Info("password recovery requested")
	}
	return nil
}

// Verify validates an access token and returns its claims.
func (s *Service) Verify(accessToken string) (*Claims, error) {
	claims, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
