package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer("test-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour, time.Hour)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	issuer := newTestIssuer(t)
	user := models.User{ID: "u1", Email: "ana@example.com", PasswordHash: "secret"}

	session, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, "u1", session.User.ID)
	assert.Empty(t, session.User.PasswordHash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	claims, err := issuer.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)

	_, err = issuer.VerifyRefresh(session.AccessToken)
	assert.Error(t, err, "access token must not work as refresh token")

	claims, err = issuer.VerifyRefresh(session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerify_Rejects(t *testing.T) {
	issuer := newTestIssuer(t)
	session, err := issuer.Issue(models.User{ID: "u1"})
	require.NoError(t, err)

	other, err := NewIssuer("other-secret", time.Hour, time.Hour)
	require.NoError(t, err)
	_, err = other.VerifyAccess(session.AccessToken)
	assert.Error(t, err, "wrong secret")

	expired := newTestIssuer(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(models.User{ID: "u1"})
	require.NoError(t, err)
	_, err = issuer.VerifyAccess(old.AccessToken)
	assert.Error(t, err, "expired")

	_, err = issuer.VerifyAccess("not-a-token")
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, CheckPassword(hash, "secret1"))
	assert.ErrorIs(t, CheckPassword(hash, "secret2"), ErrInvalidCredentials)
}
