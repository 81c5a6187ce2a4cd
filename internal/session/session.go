// Package session owns the acting identity of a client and announces its
// lifecycle (sign-in, sign-out, token refresh) to subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"taskboard/internal/models"
)

// ErrNotSignedIn is returned when an operation needs an identity and there is none.
var ErrNotSignedIn = errors.New("not signed in")

// Identity is who is acting.
type Identity struct {
	UserID string
	Email  string
}

// EventKind enumerates session lifecycle events.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	}
	return "unknown"
}

// Event is delivered to subscribers. Identity is empty for SignedOut.
type Event struct {
	Kind     EventKind
	Identity Identity
}

// Authenticator performs the remote account calls. gateway.AuthClient and
// auth.Service both satisfy it.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email string) error
}

// CredentialStore persists the session between runs.
type CredentialStore interface {
	Save(session models.Session) error
	Clear() error
}

// Provider is the single source of truth for the current identity.
type Provider struct {
	auth          Authenticator
	creds         CredentialStore
	log           logrus.FieldLogger
	refreshMargin time.Duration
	retryDelay    time.Duration
	now           func() time.Time

	mu        sync.RWMutex
	session   *models.Session
	listeners map[int]func(Event)
	nextID    int
	wake      chan struct{}
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// WithCredentialStore persists sessions through cs.
func WithCredentialStore(cs CredentialStore) Option {
	return func(p *Provider) {
		p.creds = cs
	}
}

// WithRefreshMargin sets how long before expiry the access token is refreshed.
func WithRefreshMargin(d time.Duration) Option {
	return func(p *Provider) {
		p.refreshMargin = d
	}
}

// WithRetryDelay sets how long Run waits after a failed refresh.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Provider) {
		p.retryDelay = d
	}
}

// New creates a signed-out Provider.
func New(auth Authenticator, opts ...Option) *Provider {
	p := &Provider{
		auth:          auth,
		log:           logrus.StandardLogger(),
		refreshMargin: time.Minute,
		retryDelay:    30 * time.Second,
		now:           time.Now,
		listeners:     make(map[int]func(Event)),
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers fn for lifecycle events and returns a func that
// removes it. fn runs on the goroutine that changed the session.
func (p *Provider) Subscribe(fn func(Event)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Current returns the acting identity, if any.
func (p *Provider) Current() (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return Identity{}, false
	}
	return identityOf(p.session), true
}

// UserID returns the acting user's id or ErrNotSignedIn.
func (p *Provider) UserID() (string, error) {
	id, ok := p.Current()
	if !ok {
		return "", ErrNotSignedIn
	}
	return id.UserID, nil
}

// AccessToken returns a bearer token for remote calls, refreshing it first
// when it is about to expire.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	p.mu.RLock()
	session := p.session
	p.mu.RUnlock()

	if session == nil {
		return "", ErrNotSignedIn
	}
	if p.now().Add(p.refreshMargin).Before(session.ExpiresAt) {
		return session.AccessToken, nil
	}

	if err := p.Refresh(ctx); err != nil {
		return "", err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return "", ErrNotSignedIn
	}
	return p.session.AccessToken, nil
}

// SignUp creates an account and signs in as it.
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	if err := models.ValidateCredentials(email, password, true); err != nil {
		return err
	}

	session, err := p.auth.SignUp(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}

	p.start(session)
	return nil
}

// SignIn signs in with email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	if err := models.ValidateCredentials(email, password, false); err != nil {
		return err
	}

	session, err := p.auth.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}

	p.start(session)
	return nil
}

// Restore signs in from a refresh token saved by an earlier run.
func (p *Provider) Restore(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrNotSignedIn
	}

	session, err := p.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	p.start(session)
	return nil
}

// ResetPassword asks the backend to start password recovery for email.
func (p *Provider) ResetPassword(ctx context.Context, email string) error {
	if err := p.auth.Recover(ctx, email); err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}
	return nil
}

// SignOut drops the session locally and tells the backend. The local
// sign-out happens even if the remote call fails.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	session := p.session
	p.session = nil
	p.mu.Unlock()

	if session == nil {
		return nil
	}

	p.clearCredentials()
	p.notifyRun()
	p.emit(Event{Kind: SignedOut})

	if err := p.auth.SignOut(ctx, session.AccessToken); err != nil {
		p.log.WithError(err).Warn("remote sign-out failed")
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// Refresh exchanges the refresh token for a new session. When the refresh
// fails and the refresh token has itself expired, the provider signs out.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.RLock()
	current := p.session
	p.mu.RUnlock()

	if current == nil {
		return ErrNotSignedIn
	}

	session, err := p.auth.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if p.refreshExpired(current.RefreshToken) {
			p.log.WithError(err).Info("refresh token expired, signing out")
			p.expire(current)
		}
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	p.mu.Lock()
	if p.session != current {
		// Signed out or replaced while the call was in flight.
		p.mu.Unlock()
		return nil
	}
	p.session = session
	p.mu.Unlock()

	p.saveCredentials(session)
	p.notifyRun()

	kind := TokenRefreshed
	if session.User.ID != current.User.ID {
		kind = SignedIn
	}
	p.emit(Event{Kind: kind, Identity: identityOf(session)})
	return nil
}

// Run keeps the access token fresh until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) error {
	var failed bool
	for {
		wait := p.untilRefresh()
		if failed && wait < p.retryDelay {
			wait = p.retryDelay
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-p.wake:
			timer.Stop()
			failed = false
			continue
		case <-timer.C:
		}

		if _, ok := p.Current(); !ok {
			continue
		}
		if err := p.Refresh(ctx); err != nil {
			if errors.Is(err, ErrNotSignedIn) {
				continue
			}
			p.log.WithError(err).Warn("background token refresh failed")
			failed = true
			continue
		}
		failed = false
	}
}

func (p *Provider) untilRefresh() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return time.Hour
	}
	wait := p.session.ExpiresAt.Add(-p.refreshMargin).Sub(p.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (p *Provider) start(session *models.Session) {
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	p.saveCredentials(session)
	p.notifyRun()

	id := identityOf(session)
	p.log.WithFields(logrus.Fields{"user_id": id.UserID}).Info("signed in")
	p.emit(Event{Kind: SignedIn, Identity: id})
}

func (p *Provider) expire(session *models.Session) {
	p.mu.Lock()
	if p.session != session {
		p.mu.Unlock()
		return
	}
	p.session = nil
	p.mu.Unlock()

	p.clearCredentials()
	p.notifyRun()
	p.emit(Event{Kind: SignedOut})
}

func (p *Provider) emit(ev Event) {
	p.mu.RLock()
	listeners := make([]func(Event), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (p *Provider) notifyRun() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Provider) saveCredentials(session *models.Session) {
	if p.creds == nil {
		return
	}
	if err := p.creds.Save(*session); err != nil {
		p.log.WithError(err).Warn("failed to save credentials")
	}
}

func (p *Provider) clearCredentials() {
	if p.creds == nil {
		return
	}
	if err := p.creds.Clear(); err != nil {
		p.log.WithError(err).Warn("failed to clear credentials")
	}
}

// refreshExpired reads the exp claim without verifying the signature; the
// client never holds the signing key.
func (p *Provider) refreshExpired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !p.now().Before(claims.ExpiresAt.Time)
}

func identityOf(session *models.Session) Identity {
	return Identity{UserID: session.User.ID, Email: session.User.Email}
}
