// Package session derives the acting user from the stored bearer token and decides
// which areas of the portal that user may enter.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

// StorageKey is where the token lives in the client store.
const StorageKey = "lib.session"

var (
	ErrTokenNotFound = errors.New("TOKEN_NOT_FOUND")
	ErrInvalidToken  = errors.New("INVALID_TOKEN")
)

type Session struct {
	Token string
	User  User
}

// Authenticator submits credentials to the backend and returns the issued token.
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (string, error)
	Register(ctx context.Context, identifier, secret string) (string, error)
	ForgotPassword(ctx context.Context, identifier string) (string, error)
	ResetPassword(ctx context.Context, token, newSecret string) error
}

type Manager struct {
	store kvstore.Querier
	auth  Authenticator
	now   func() time.Time
	log   *zap.Logger
}

type Option func(m *Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store kvstore.Querier, auth Authenticator, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		auth:  auth,
		now:   time.Now,
		log:   log.Named("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type stored struct {
	Token string `json:"token"`
}

// storedToken accepts both layouts ever written under the key: a bare JSON string
// and {"token": "..."}.
func storedToken(raw []byte) (string, bool) {
	var token string
	if err := json.Unmarshal(raw, &token); err == nil {
		return token, token != ""
	}
	var s stored
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s.Token, s.Token != ""
}

func (m *Manager) rawToken(ctx context.Context) (string, bool) {
	raw, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		m.log.Warn("read session", zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	return storedToken(raw)
}

// CurrentSession never fails: anything unusable in the store is reported as no session.
func (m *Manager) CurrentSession(ctx context.Context) (*Session, bool) {
	token, ok := m.rawToken(ctx)
	if !ok {
		return nil, false
	}
	claims, ok := DecodeToken(token)
	if !ok || claims.Expired(m.now()) {
		return nil, false
	}
	user, ok := claims.User()
	if !ok {
		return nil, false
	}
	return &Session{Token: token, User: user}, true
}

// Token returns the bearer token of the current session, or "" without one.
func (m *Manager) Token(ctx context.Context) string {
	sess, ok := m.CurrentSession(ctx)
	if !ok {
		return ""
	}
	return sess.Token
}

func (m *Manager) Login(ctx context.Context, identifier, secret string) (Session, error) {
	token, err := m.auth.Login(ctx, NormalizeIdentifier(identifier), secret)
	if err != nil {
		return Session{}, errors.Wrap(err, "login")
	}
	return m.establish(ctx, token)
}

func (m *Manager) Register(ctx context.Context, identifier, secret string) (Session, error) {
	token, err := m.auth.Register(ctx, NormalizeIdentifier(identifier), secret)
	if err != nil {
		return Session{}, errors.Wrap(err, "register")
	}
	return m.establish(ctx, token)
}

func (m *Manager) establish(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrTokenNotFound
	}
	if err := m.save(ctx, token); err != nil {
		return Session{}, err
	}
	user, ok := DeriveUser(token)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	m.log.Debug("session established", zap.String("identifier", user.Identifier), zap.String("role", string(user.Role)))
	return Session{Token: token, User: user}, nil
}

func (m *Manager) save(ctx context.Context, token string) error {
	payload, err := json.Marshal(stored{Token: token})
	if err != nil {
		return err
	}
	return errors.Wrap(m.store.Put(ctx, StorageKey, payload), "save session")
}

func (m *Manager) Logout(ctx context.Context) error {
	return errors.Wrap(m.store.Delete(ctx, StorageKey), "logout")
}

// RequestPasswordReset returns the reset token when the backend hands one out
// directly instead of mailing it.
func (m *Manager) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	token, err := m.auth.ForgotPassword(ctx, NormalizeIdentifier(identifier))
	return token, errors.Wrap(err, "forgot password")
}

func (m *Manager) ResetPassword(ctx context.Context, token, newSecret string) error {
	return errors.Wrap(m.auth.ResetPassword(ctx, token, newSecret), "reset password")
}
