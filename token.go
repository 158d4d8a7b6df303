package docqa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zalando/go-keyring"
)

// ErrNoToken is returned by a TokenSource that holds no token; the user must log in.
var ErrNoToken = errors.New("no authentication token")

// TokenSource supplies the bearer token issued by the identity provider.
type TokenSource interface {
	// Token returns the current token or ErrNoToken.
	Token(ctx context.Context) (string, error)

	// Invalidate discards the token after the backend rejected it.
	Invalidate(ctx context.Context) error
}

// StaticToken is an in-memory TokenSource.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

// NewStaticToken returns a TokenSource holding token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

// Token implements TokenSource.
func (s *StaticToken) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

// Invalidate implements TokenSource.
func (s *StaticToken) Invalidate(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// KeyringTokenStore keeps the token in the operating system keychain.
type KeyringTokenStore struct {
	service string
	user    string
}

// NewKeyringTokenStore stores the token under service/user.
func NewKeyringTokenStore(service, user string) *KeyringTokenStore {
	return &KeyringTokenStore{service: service, user: user}
}

// Token implements TokenSource.
func (k *KeyringTokenStore) Token(context.Context) (string, error) {
	token, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("keychain read: %w", err)
	}
	return token, nil
}

// Save stores token, replacing any previous one.
func (k *KeyringTokenStore) Save(_ context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("keychain write: %w", ErrNoToken)
	}
	if err := keyring.Set(k.service, k.user, token); err != nil {
		return fmt.Errorf("keychain write: %w", err)
	}
	return nil
}

// Invalidate implements TokenSource. Deleting a token that is not there is not an error.
func (k *KeyringTokenStore) Invalidate(context.Context) error {
	if err := keyring.Delete(k.service, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// TokenExpired reports whether token is a JWT whose exp claim is at or before now.
// The signature is not verified; that is the backend's job. Opaque tokens and JWTs
// without exp are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	raw := strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// authorize fetches a usable token or explains why the request cannot be sent.
func authorize(ctx context.Context, tokens TokenSource, now time.Time) (string, *Failure) {
	if tokens == nil {
		return "", &Failure{Kind: KindAuthFailure, Message: "Please log in first.", Cause: ErrNoToken}
	}
	token, err := tokens.Token(ctx)
	if err != nil {
		return "", &Failure{Kind: KindAuthFailure, Message: "Please log in first.", Cause: err}
	}
	if TokenExpired(token, now) {
		_ = tokens.Invalidate(ctx)
		return "", &Failure{
			Kind:    KindAuthFailure,
			Message: "Your session has expired. Please log in again.",
			Cause:   ErrNoToken,
		}
	}
	return token, nil
}
