// Package datamanager creates and deletes product fixtures through the REST
// API on behalf of end-to-end tests. It satisfies cleanup.DataManager.
package datamanager

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/pkg/apiclient"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

// tokenLeeway is how close to expiry a token may be and still count as
// valid.
const tokenLeeway = 30 * time.Second

// Config configures a Manager.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Email and Password are used by EnsureAuthenticated.
	Email    string
	Password string

	// DeviceOS is sent as "os" in the /auth body. Defaults to runtime.GOOS.
	DeviceOS string

	// EmailDomain is used for generated fixture emails.
	EmailDomain string

	// DefaultPassword is used for users created without one.
	DefaultPassword string
}

// Manager is safe for concurrent use.
type Manager struct {
	cfg      Config
	client   *apiclient.Client
	deviceID string

	mu      sync.Mutex
	created Created
}

var _ cleanup.DataManager = (*Manager)(nil)

// New creates a Manager for cfg.
func New(cfg Config) *Manager {
	if cfg.DeviceOS == "" {
		cfg.DeviceOS = runtime.GOOS
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "e2e.example.com"
	}
	if cfg.DefaultPassword == "" {
		cfg.DefaultPassword = "E2e-" + uuid.NewString()[:12]
	}
	return &Manager{
		cfg:      cfg,
		client:   apiclient.New(cfg.BaseURL, apiclient.WithTimeout(cfg.Timeout)),
		deviceID: uuid.NewString(),
	}
}

// Client exposes the underlying API client.
func (m *Manager) Client() *apiclient.Client {
	return m.client
}

// Authenticate logs in with email and password and stores the token. It
// reports success and logs failures instead of returning them.
func (m *Manager) Authenticate(ctx context.Context, email, password string) bool {
	resp, err := m.client.Authenticate(ctx, &apiclient.AuthRequest{
		Email:    email,
		Password: password,
		UUID:     m.deviceID,
		OS:       m.cfg.DeviceOS,
	})
	if err != nil {
		logger.WarnCtx(ctx, "Authentication failed",
			logger.KeyEmail, email,
			logger.KeyError, err)
		return false
	}
	if resp.Token == "" {
		logger.WarnCtx(ctx, "Authentication returned no token", logger.KeyEmail, email)
		return false
	}
	m.client.SetToken(resp.Token)
	logger.DebugCtx(ctx, "Authenticated", logger.KeyEmail, email)
	return true
}

// EnsureAuthenticated logs in with the configured credentials unless the
// current token is still valid.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	if m.HasValidToken() {
		return nil
	}
	if !m.Authenticate(ctx, m.cfg.Email, m.cfg.Password) {
		return cleanup.ErrAuthenticationFailed
	}
	return nil
}

// SetAuthToken replaces the bearer token, e.g. one captured from a browser
// session.
func (m *Manager) SetAuthToken(token string) {
	m.client.SetToken(token)
}

// Headers returns the headers sent with API requests.
func (m *Manager) Headers() http.Header {
	return m.client.Headers()
}

// HasValidToken reports whether a token is set and, when it is a JWT with
// an exp claim, not about to expire. The signature is not verified; only
// the server can do that.
func (m *Manager) HasValidToken() bool {
	token := m.client.Token()
	if token == "" {
		return false
	}
	exp, ok := tokenExpiry(token)
	if !ok {
		return true
	}
	return time.Until(exp) > tokenLeeway
}

// tokenExpiry returns the exp claim of a JWT. ok is false for opaque tokens
// and tokens without exp.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// DeleteUser deletes a user and forgets it from Created.
func (m *Manager) DeleteUser(ctx context.Context, id string) error {
	if err := m.client.DeleteUser(ctx, id); err != nil {
		return err
	}
	m.forget(cleanup.KindUser, id)
	return nil
}

// DeleteApplication deletes an application and forgets it from Created.
func (m *Manager) DeleteApplication(ctx context.Context, id string) error {
	if err := m.client.DeleteApplication(ctx, id); err != nil {
		return err
	}
	m.forget(cleanup.KindApplication, id)
	return nil
}

// DeleteSession deletes a session and forgets it from Created.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	if err := m.client.DeleteSession(ctx, id); err != nil {
		return err
	}
	m.forget(cleanup.KindSession, id)
	return nil
}

// Created returns everything this manager created and has not deleted.
func (m *Manager) Created() Created {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created.clone()
}

func (m *Manager) record(c Created) {
	m.mu.Lock()
	m.created.Users = append(m.created.Users, c.Users...)
	m.created.Applications = append(m.created.Applications, c.Applications...)
	m.created.Sessions = append(m.created.Sessions, c.Sessions...)
	m.mu.Unlock()
}

func (m *Manager) forget(kind cleanup.Kind, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case cleanup.KindUser:
		m.created.Users = removeByID(m.created.Users, id, func(u CreatedUser) string { return u.ID })
	case cleanup.KindApplication:
		m.created.Applications = removeByID(m.created.Applications, id, func(a apiclient.Application) string { return a.ID })
	case cleanup.KindSession:
		m.created.Sessions = removeByID(m.created.Sessions, id, func(s apiclient.Session) string { return s.ID })
	}
}

func removeByID[T any](list []T, id string, key func(T) string) []T {
	out := list[:0]
	for _, v := range list {
		if key(v) != id {
			out = append(out, v)
		}
	}
	return out
}
