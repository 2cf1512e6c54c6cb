package fakeapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/screening-e2e/pkg/apiclient"
)

func TestPasswordsStoredHashed(t *testing.T) {
	ctx := context.Background()
	srv := New(t)
	client := apiclient.New(srv.URL)

	resp, err := client.Authenticate(ctx, &apiclient.AuthRequest{Email: AdminEmail, Password: AdminPassword})
	require.NoError(t, err)
	client.SetToken(resp.Token)

	_, err = client.CreateUser(ctx, &apiclient.CreateUserRequest{Email: "e2e@example.com", Password: "s3cret"})
	require.NoError(t, err)
	srv.SeedUser(apiclient.User{ID: "seeded", Email: "seeded@example.com"}, "seeded-pw")

	srv.mu.Lock()
	stored := map[string][]byte{
		"s3cret":    srv.passwords["e2e@example.com"],
		"seeded-pw": srv.passwords["seeded@example.com"],
	}
	srv.mu.Unlock()
	for plain, hash := range stored {
		assert.NotEqual(t, plain, string(hash))
		assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte(plain)))
	}

	_, err = client.Authenticate(ctx, &apiclient.AuthRequest{Email: "seeded@example.com", Password: "seeded-pw"})
	require.NoError(t, err)
}

func TestAuthRejectsWrongPassword(t *testing.T) {
	srv := New(t)
	client := apiclient.New(srv.URL)

	_, err := client.Authenticate(context.Background(), &apiclient.AuthRequest{Email: AdminEmail, Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, "nope", srv.LastAuth().Password)
}
