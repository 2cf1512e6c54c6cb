package apiclient

import (
	"context"
	"time"
)

// Session is an applicant screening session.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	ApplicationID string    `json:"application_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	UserID        string `json:"user_id,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
}

// CreateSession creates a session.
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	return createResource[Session](ctx, c, "/sessions", req)
}

// GetSession returns a session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	return getResource[Session](ctx, c, resourcePath("sessions", id))
}

// DeleteSession deletes a session by id.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("sessions", id))
}
