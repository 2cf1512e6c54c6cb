package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Selectors rely on data-testid attributes rendered by the web app.
const (
	selLoginEmail    = `[data-testid="login-email"]`
	selLoginPassword = `[data-testid="login-password"]`
	selLoginSubmit   = `[data-testid="login-submit"]`
	selLoginError    = `[data-testid="login-error"]`
	selUserMenu      = `[data-testid="user-menu"]`

	selSessionHeader = `[data-testid="session-header"]`
	selSessionStatus = `[data-testid="session-status"]`
	selSessionStart  = `[data-testid="session-start"]`
	selApplicantRow  = `[data-testid="applicant-row"]`
)

// LoginPage is the sign-in screen.
type LoginPage struct {
	b    *Browser
	path string
}

// NewLoginPage returns the login page served at /login.
func NewLoginPage(b *Browser) *LoginPage {
	return &LoginPage{b: b, path: "/login"}
}

// Open navigates to the login page and waits for the form.
func (p *LoginPage) Open(ctx context.Context) error {
	if err := p.b.Navigate(ctx, p.path); err != nil {
		return err
	}
	return p.b.WaitVisible(ctx, selLoginEmail)
}

// Submit fills in the credentials and submits the form without waiting
// for the outcome.
func (p *LoginPage) Submit(ctx context.Context, email, password string) error {
	if err := p.b.Fill(ctx, selLoginEmail, email); err != nil {
		return err
	}
	if err := p.b.Fill(ctx, selLoginPassword, password); err != nil {
		return err
	}
	return p.b.Click(ctx, selLoginSubmit)
}

// Login opens the page, submits the credentials and waits for the signed
// in user menu.
func (p *LoginPage) Login(ctx context.Context, email, password string) error {
	if err := p.Open(ctx); err != nil {
		return err
	}
	if err := p.Submit(ctx, email, password); err != nil {
		return err
	}
	if err := p.b.WaitVisible(ctx, selUserMenu); err != nil {
		return fmt.Errorf("login as %s: %w", email, err)
	}
	return nil
}

// Error returns the message shown after a rejected login.
func (p *LoginPage) Error(ctx context.Context) (string, error) {
	return p.b.Text(ctx, selLoginError)
}

// SessionPage shows one applicant screening session.
type SessionPage struct {
	b  *Browser
	id string
}

// NewSessionPage returns the page of session id.
func NewSessionPage(b *Browser, id string) *SessionPage {
	return &SessionPage{b: b, id: id}
}

// Path returns the session page path.
func (p *SessionPage) Path() string {
	return "/sessions/" + url.PathEscape(p.id)
}

// Open navigates to the session and waits for its header.
func (p *SessionPage) Open(ctx context.Context) error {
	if err := p.b.Navigate(ctx, p.Path()); err != nil {
		return err
	}
	return p.b.WaitVisible(ctx, selSessionHeader)
}

// Status returns the session status badge, lower-cased.
func (p *SessionPage) Status(ctx context.Context) (string, error) {
	s, err := p.b.Text(ctx, selSessionStatus)
	return strings.ToLower(s), err
}

// Start clicks the start button and waits for the status to leave
// "pending".
func (p *SessionPage) Start(ctx context.Context) error {
	if err := p.b.Click(ctx, selSessionStart); err != nil {
		return err
	}
	return p.b.WaitNotVisible(ctx, selSessionStart)
}

// Applicants returns how many applicant rows the session lists.
func (p *SessionPage) Applicants(ctx context.Context) (int, error) {
	return p.b.Count(ctx, selApplicantRow)
}
