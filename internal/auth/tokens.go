// Package auth issues and verifies session tokens for the backend API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"taskboard/internal/models"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	errMissingSecret = errors.New("jwt secret is required")
	errWrongKind     = errors.New("wrong token type")
)

// Claims are the JWT claims carried by both token kinds. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Kind  string `json:"typ"`
}

// Issuer signs HS256 access and refresh tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	parser     *jwt.Parser
	now        func() time.Time
}

// NewIssuer creates an Issuer. The secret must not be empty.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errMissingSecret
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		now:        time.Now,
	}, nil
}

// Issue creates a fresh session for user.
func (i *Issuer) Issue(user models.User) (*models.Session, error) {
	now := i.now()
	expiresAt := now.Add(i.accessTTL)

	access, err := i.sign(user, kindAccess, now, expiresAt)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(user, kindRefresh, now, now.Add(i.refreshTTL))
	if err != nil {
		return nil, err
	}

	return &models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.UTC(),
		User:         models.User{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt},
	}, nil
}

func (i *Issuer) sign(user models.User, kind string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Kind:  kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns its claims.
func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	return i.verify(token, kindAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (i *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return i.verify(token, kindRefresh)
}

func (i *Issuer) verify(token, kind string) (*Claims, error) {
	claims := &Claims{}
	_, err := i.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, errWrongKind
	}
	if claims.Subject == "" {
		return nil, errors.New("missing sub")
	}
	return claims, nil
}
