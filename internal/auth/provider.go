package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/grove/internal/store"
)

// SessionKey is the local store key holding the current session token.
const SessionKey = "grove.session"

// Identity is an authenticated user.
type Identity struct {
	UserID string `json:"user_id"`
}

// Provider reports the current user, or nil when nobody is signed in.
type Provider interface {
	CurrentUser(ctx context.Context) (*Identity, error)
}

// TokenSource supplies the bearer token for remote calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider always reports the same identity. A nil Identity means
// signed out.
type StaticProvider struct {
	Identity *Identity
}

func (p StaticProvider) CurrentUser(context.Context) (*Identity, error) {
	return p.Identity, nil
}

var (
	_ Provider    = StaticProvider{}
	_ Provider    = (*SessionProvider)(nil)
	_ TokenSource = (*SessionProvider)(nil)
)

// SessionProvider reads the session token from the local store. With a
// secret it verifies the signature; without one it only checks expiry.
type SessionProvider struct {
	kv     store.KV
	secret string
	now    func() time.Time
}

// NewSessionProvider creates a provider over kv.
func NewSessionProvider(kv store.KV, secret string) *SessionProvider {
	return &SessionProvider{kv: kv, secret: secret, now: time.Now}
}

// CurrentUser returns nil when there is no session or its token is no
// longer valid.
func (p *SessionProvider) CurrentUser(ctx context.Context) (*Identity, error) {
	token, ok, err := p.kv.Get(ctx, SessionKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || len(token) == 0 {
		return nil, nil
	}

	claims, err := p.claims(string(token))
	if errors.Is(err, ErrInvalidToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.UserID}, nil
}

// Token returns the stored session token, or "" when signed out.
func (p *SessionProvider) Token(ctx context.Context) (string, error) {
	token, _, err := p.kv.Get(ctx, SessionKey)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return string(token), nil
}

// Login stores token as the current session after checking it.
func (p *SessionProvider) Login(ctx context.Context, token string) (*Identity, error) {
	claims, err := p.claims(token)
	if err != nil {
		return nil, err
	}
	if err := p.kv.Set(ctx, SessionKey, []byte(token)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &Identity{UserID: claims.UserID}, nil
}

// Logout removes the current session.
func (p *SessionProvider) Logout(ctx context.Context) error {
	if err := p.kv.Remove(ctx, SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (p *SessionProvider) claims(token string) (*Claims, error) {
	if p.secret != "" {
		return ValidateToken(token, p.secret)
	}
	return inspectToken(token, p.now())
}
