package apiclient

import (
	"context"
	"time"
)

// AuthRequest is the body of POST /auth.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UUID     string `json:"uuid"`
	OS       string `json:"os"`
}

// AuthResponse is returned by POST /auth.
type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Authenticate logs in and returns the session token. The client's own
// token is not changed.
func (c *Client) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	return createResource[AuthResponse](ctx, c, "/auth", req)
}
