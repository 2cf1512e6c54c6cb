package datamanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/pkg/apiclient"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

// UserSpec describes a user to create. Empty Email and Password are
// generated.
type UserSpec struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// ApplicationSpec describes an application to create. An empty UserID
// means the first user created by the same call.
type ApplicationSpec struct {
	Name   string
	UserID string
	Status string
}

// SessionSpec describes a session to create. Empty ids default to the
// first user and application created by the same call.
type SessionSpec struct {
	UserID        string
	ApplicationID string
}

// Spec lists entities for CreateEntities.
type Spec struct {
	Users        []UserSpec
	Applications []ApplicationSpec
	Sessions     []SessionSpec
}

// CreatedUser is a created user together with its password so tests can
// log in as it.
type CreatedUser struct {
	apiclient.User
	Password string
}

// Created holds created entities by kind.
type Created struct {
	Users        []CreatedUser
	Applications []apiclient.Application
	Sessions     []apiclient.Session
}

func (c Created) clone() Created {
	return Created{
		Users:        append([]CreatedUser(nil), c.Users...),
		Applications: append([]apiclient.Application(nil), c.Applications...),
		Sessions:     append([]apiclient.Session(nil), c.Sessions...),
	}
}

// Status returns per-kind counts.
func (c Created) Status() cleanup.Status {
	return cleanup.Status{
		Users:        len(c.Users),
		Applications: len(c.Applications),
		Sessions:     len(c.Sessions),
	}
}

// Track registers every entity in c with tracker under identifier.
func (c Created) Track(tracker *cleanup.EntityTracker, identifier string) {
	for _, u := range c.Users {
		tracker.TrackUser(identifier, u.ID, u.Email)
	}
	for _, a := range c.Applications {
		tracker.TrackApplication(identifier, a.ID, a.Name)
	}
	for _, s := range c.Sessions {
		tracker.TrackSession(identifier, s.ID)
	}
}

// NewEmail returns a unique fixture email address.
func (m *Manager) NewEmail(prefix string) string {
	if prefix == "" {
		prefix = "e2e"
	}
	return fmt.Sprintf("%s+%s@%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", "")[:16], m.cfg.EmailDomain)
}

// CreateEntities creates users, then applications, then sessions. On error
// it returns what was created so far alongside the error, so callers can
// still track it for cleanup.
func (m *Manager) CreateEntities(ctx context.Context, spec Spec) (Created, error) {
	var out Created
	defer func() { m.record(out) }()

	for _, us := range spec.Users {
		if us.Email == "" {
			us.Email = m.NewEmail("")
		}
		if us.Password == "" {
			us.Password = m.cfg.DefaultPassword
		}
		u, err := m.client.CreateUser(ctx, &apiclient.CreateUserRequest{
			Email:     us.Email,
			Password:  us.Password,
			FirstName: us.FirstName,
			LastName:  us.LastName,
			Role:      us.Role,
		})
		if err != nil {
			return out, fmt.Errorf("create user %s: %w", us.Email, err)
		}
		out.Users = append(out.Users, CreatedUser{User: *u, Password: us.Password})
		logger.DebugCtx(ctx, "📝 Created user", logger.KeyEntityID, u.ID, logger.KeyEmail, u.Email)
	}

	for _, as := range spec.Applications {
		if as.UserID == "" && len(out.Users) > 0 {
			as.UserID = out.Users[0].ID
		}
		if as.Name == "" {
			as.Name = "E2E application " + uuid.NewString()[:8]
		}
		a, err := m.client.CreateApplication(ctx, &apiclient.CreateApplicationRequest{
			UserID: as.UserID,
			Name:   as.Name,
			Status: as.Status,
		})
		if err != nil {
			return out, fmt.Errorf("create application %q: %w", as.Name, err)
		}
		out.Applications = append(out.Applications, *a)
		logger.DebugCtx(ctx, "📝 Created application", logger.KeyEntityID, a.ID, logger.KeyEntityLabel, a.Name)
	}

	for _, ss := range spec.Sessions {
		if ss.UserID == "" && len(out.Users) > 0 {
			ss.UserID = out.Users[0].ID
		}
		if ss.ApplicationID == "" && len(out.Applications) > 0 {
			ss.ApplicationID = out.Applications[0].ID
		}
		s, err := m.client.CreateSession(ctx, &apiclient.CreateSessionRequest{
			UserID:        ss.UserID,
			ApplicationID: ss.ApplicationID,
		})
		if err != nil {
			return out, fmt.Errorf("create session: %w", err)
		}
		out.Sessions = append(out.Sessions, *s)
		logger.DebugCtx(ctx, "📝 Created session", logger.KeyEntityID, s.ID)
	}

	return out, nil
}
