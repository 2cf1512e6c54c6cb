package apiclient

import (
	"context"
	"time"
)

// Application is a screening application owned by a user.
type Application struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CreateApplicationRequest is the body of POST /applications.
type CreateApplicationRequest struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// CreateApplication creates an application.
func (c *Client) CreateApplication(ctx context.Context, req *CreateApplicationRequest) (*Application, error) {
	return createResource[Application](ctx, c, "/applications", req)
}

// GetApplication returns an application by id.
func (c *Client) GetApplication(ctx context.Context, id string) (*Application, error) {
	return getResource[Application](ctx, c, resourcePath("applications", id))
}

// ListApplications returns the applications visible to the caller.
func (c *Client) ListApplications(ctx context.Context) ([]Application, error) {
	return listResources[Application](ctx, c, "/applications")
}

// DeleteApplication deletes an application by id.
func (c *Client) DeleteApplication(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("applications", id))
}
