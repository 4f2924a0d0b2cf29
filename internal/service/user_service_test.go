package service

import (
	"context"
	"errors"
	"testing"

	"blogapp/internal/models"
	"blogapp/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	post := createPost(t, env, alice, "Hello")

	updated, err := env.user.UpdateMe(ctx, alice, ProfileUpdate{
		Email:       strPtr(" Alice@New.com "),
		DisplayName: strPtr("alicia"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@new.com", updated.Email)
	assert.Equal(t, "alicia", updated.DisplayName)
	assert.Equal(t, models.RoleUser, updated.Role)

	renamed, err := env.post.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", renamed.Author.Name, "posts follow the display name")
}

func TestUpdateMeConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	env.signup(t, "b@x.com", "bob", "secret123")

	_, err := env.user.UpdateMe(ctx, alice, ProfileUpdate{Email: strPtr("b@x.com")})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = env.user.UpdateMe(ctx, alice, ProfileUpdate{DisplayName: strPtr("bob")})
	assert.ErrorIs(t, err, ErrDisplayNameTaken)

	_, err = env.user.UpdateMe(ctx, alice, ProfileUpdate{Email: strPtr("not-an-email")})
	var verr validation.ValidationError
	assert.True(t, errors.As(err, &verr))

	same, err := env.user.UpdateMe(ctx, alice, ProfileUpdate{Email: strPtr("a@x.com")})
	require.NoError(t, err, "keeping your own email is not a conflict")
	assert.Equal(t, "a@x.com", same.Email)
}

func TestDeleteMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	bob := env.signup(t, "b@x.com", "bob", "secret123").User
	mine := createPost(t, env, alice, "Mine")
	theirs := createPost(t, env, bob, "Theirs")

	require.NoError(t, env.user.DeleteMe(ctx, alice))

	gone, err := env.store.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = env.post.Get(ctx, mine.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = env.post.Get(ctx, theirs.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, env.user.DeleteMe(ctx, alice), ErrUserNotFound)
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User

	require.NoError(t, env.user.SetRole(ctx, "A@x.com", models.RoleAdmin))
	user, err := env.store.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	assert.ErrorIs(t, env.user.SetRole(ctx, "nobody@x.com", models.RoleAdmin), ErrUserNotFound)

	var verr validation.ValidationError
	assert.True(t, errors.As(env.user.SetRole(ctx, "a@x.com", models.Role("root")), &verr))
}
