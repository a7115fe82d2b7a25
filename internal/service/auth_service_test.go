package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpipe/internal/model"
	"mailpipe/internal/testutil"
	"mailpipe/internal/util"
)

func TestRegisterAndLogin(t *testing.T) {
	users := testutil.NewUserStore()
	s := NewAuthService(users, "test-secret")
	ctx := context.Background()

	u, err := s.Register(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, u.Role)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	_, err = s.Register(ctx, "alice@example.com", "other")
	assert.EqualError(t, err, "email already exists")

	token, err := s.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	userID, role, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, string(model.RoleMember), role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := testutil.NewUserStore()
	s := NewAuthService(users, "test-secret")
	ctx := context.Background()

	_, err := s.Register(ctx, "bob@example.com", "correct")
	require.NoError(t, err)

	_, err = s.Login(ctx, "bob@example.com", "wrong")
	assert.EqualError(t, err, "invalid email or password")

	_, err = s.Login(ctx, "nobody@example.com", "whatever")
	assert.EqualError(t, err, "invalid email or password")
}
