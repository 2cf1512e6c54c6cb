package apiclient

import (
	"context"
	"time"
)

// User is a product user account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	return createResource[User](ctx, c, "/users", req)
}

// GetUser returns a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	return getResource[User](ctx, c, resourcePath("users", id))
}

// DeleteUser deletes a user by id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("users", id))
}
