package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

type fakeAuth struct {
	mu         sync.Mutex
	ttl        time.Duration
	refreshTTL time.Duration
	refreshErr error
	calls      map[string]int
	seq        int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{ttl: time.Hour, refreshTTL: 24 * time.Hour, calls: map[string]int{}}
}

func (f *fakeAuth) issue(userID, email string) *models.Session {
	f.seq++
	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(f.refreshTTL)),
	}).SignedString([]byte("test"))
	return &models.Session{
		AccessToken:  fmt.Sprintf("access-%d", f.seq),
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(f.ttl),
		User:         models.User{ID: userID, Email: email},
	}
}

func (f *fakeAuth) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["signup"]++
	return f.issue("u-"+email, email), nil
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["signin"]++
	if password != "secret1" {
		return nil, errors.New("invalid login credentials")
	}
	return f.issue("u-"+email, email), nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["refresh"]++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(refreshToken, claims); err != nil {
		return nil, err
	}
	return f.issue(claims.Subject, claims.Subject+"@example.com"), nil
}

func (f *fakeAuth) SignOut(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["signout"]++
	return nil
}

func (f *fakeAuth) Recover(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["recover"]++
	return nil
}

type memCreds struct {
	saved   *models.Session
	cleared int
}

func (m *memCreds) Save(session models.Session) error {
	m.saved = &session
	return nil
}

func (m *memCreds) Clear() error {
	m.saved = nil
	m.cleared++
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestProvider_SignInAndOut(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	creds := &memCreds{}
	p := New(auth, WithLogger(quietLogger()), WithCredentialStore(creds))

	rec := &recorder{}
	p.Subscribe(rec.record)

	_, err := p.UserID()
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = p.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	require.NoError(t, p.SignIn(ctx, "ana@example.com", "secret1"))

	id, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "u-ana@example.com", id.UserID)
	require.NotNil(t, creds.saved)

	token, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.NoError(t, p.SignOut(ctx))
	_, ok = p.Current()
	assert.False(t, ok)
	assert.Nil(t, creds.saved)
	assert.Equal(t, 1, auth.count("signout"))

	// Signing out twice is a no-op.
	require.NoError(t, p.SignOut(ctx))
	assert.Equal(t, []EventKind{SignedIn, SignedOut}, rec.kinds())
}

func TestProvider_ValidatesBeforeCalling(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	p := New(auth, WithLogger(quietLogger()))

	err := p.SignUp(ctx, "ana@example.com", "12345")
	assert.ErrorIs(t, err, models.ErrValidation)
	err = p.SignIn(ctx, "", "")
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Zero(t, auth.count("signup"))
	assert.Zero(t, auth.count("signin"))
}

func TestProvider_SignInFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	p := New(newFakeAuth(), WithLogger(quietLogger()))
	rec := &recorder{}
	p.Subscribe(rec.record)

	err := p.SignIn(ctx, "ana@example.com", "wrong-password")
	assert.Error(t, err)
	_, ok := p.Current()
	assert.False(t, ok)
	assert.Empty(t, rec.kinds())
}

func TestProvider_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	p := New(newFakeAuth(), WithLogger(quietLogger()))
	rec := &recorder{}
	unsubscribe := p.Subscribe(rec.record)

	require.NoError(t, p.SignUp(ctx, "ana@example.com", "secret1"))
	unsubscribe()
	unsubscribe()
	require.NoError(t, p.SignOut(ctx))

	assert.Equal(t, []EventKind{SignedIn}, rec.kinds())
}

func TestProvider_AccessTokenRefreshesNearExpiry(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.ttl = 30 * time.Second
	p := New(auth, WithLogger(quietLogger()), WithRefreshMargin(time.Minute))
	rec := &recorder{}
	p.Subscribe(rec.record)

	require.NoError(t, p.SignIn(ctx, "ana@example.com", "secret1"))
	first := p.session.AccessToken

	token, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, token)
	assert.Equal(t, 1, auth.count("refresh"))
	assert.Equal(t, []EventKind{SignedIn, TokenRefreshed}, rec.kinds())
}

func TestProvider_ExpiredRefreshTokenSignsOut(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.refreshTTL = -time.Minute
	creds := &memCreds{}
	p := New(auth, WithLogger(quietLogger()), WithCredentialStore(creds))
	rec := &recorder{}
	p.Subscribe(rec.record)

	require.NoError(t, p.SignIn(ctx, "ana@example.com", "secret1"))
	auth.refreshErr = errors.New("invalid refresh token")

	err := p.Refresh(ctx)
	assert.Error(t, err)
	_, ok := p.Current()
	assert.False(t, ok)
	assert.Equal(t, 1, creds.cleared)
	assert.Equal(t, []EventKind{SignedIn, SignedOut}, rec.kinds())
}

func TestProvider_TransientRefreshFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	p := New(auth, WithLogger(quietLogger()))

	require.NoError(t, p.SignIn(ctx, "ana@example.com", "secret1"))
	auth.refreshErr = errors.New("connection refused")

	assert.Error(t, p.Refresh(ctx))
	_, ok := p.Current()
	assert.True(t, ok)
}

func TestProvider_Restore(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	p := New(auth, WithLogger(quietLogger()))

	assert.ErrorIs(t, p.Restore(ctx, ""), ErrNotSignedIn)

	require.NoError(t, p.SignIn(ctx, "ana@example.com", "secret1"))
	saved := p.session.RefreshToken

	other := New(auth, WithLogger(quietLogger()))
	require.NoError(t, other.Restore(ctx, saved))
	id, ok := other.Current()
	require.True(t, ok)
	assert.Equal(t, "u-ana@example.com", id.UserID)
}

func TestProvider_ResetPassword(t *testing.T) {
	auth := newFakeAuth()
	p := New(auth, WithLogger(quietLogger()))

	require.NoError(t, p.ResetPassword(context.Background(), "ana@example.com"))
	assert.Equal(t, 1, auth.count("recover"))
}

func TestProvider_RunRefreshesAheadOfExpiry(t *testing.T) {
	auth := newFakeAuth()
	auth.ttl = 50 * time.Millisecond
	p := New(auth, WithLogger(quietLogger()), WithRefreshMargin(40*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, p.SignIn(ctx, "ana@example.com", "secret1"))

	assert.Eventually(t, func() bool {
		return auth.count("refresh") >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
