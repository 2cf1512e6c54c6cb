package apiclient

import (
	"context"
	"fmt"
	"net/url"
)

// These helpers wrap Client.get/post/delete with typed decoding so resource
// files stay one-liners.

// getResource performs a GET request and decodes the body into a T.
func getResource[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// listResources performs a GET request and decodes the body into a []T.
func listResources[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var results []T
	if err := c.get(ctx, path, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// createResource performs a POST request and decodes the body into a T.
//
// Example:
//
//	user, err := createResource[User](ctx, c, "/users", req)
func createResource[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.post(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// resourcePath builds "/collection/{id}" with id path-escaped.
func resourcePath(collection, id string) string {
	return fmt.Sprintf("/%s/%s", collection, url.PathEscape(id))
}
