package service

import (
	"context"
	"errors"
	"testing"

	"blogapp/internal/models"
	"blogapp/internal/security"
	"blogapp/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func createPost(t *testing.T, env *testEnv, author *models.User, title string) *models.Post {
	t.Helper()
	post, err := env.post.Create(context.Background(), author, PostInput{
		Title:   title,
		Content: "Body of " + title,
		Tags:    []string{"go"},
	})
	require.NoError(t, err)
	return post
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User

	post := createPost(t, env, alice, "  Hello  ")
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, models.Author{ID: alice.ID, Name: "alice"}, post.Author)

	_, err := env.post.Create(ctx, alice, PostInput{Title: "Hello", Content: "again"})
	assert.ErrorIs(t, err, ErrTitleTaken)

	_, err = env.post.Create(ctx, alice, PostInput{Title: "No body"})
	var verr validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "content", verr.Field)

	_, err = env.post.Create(ctx, nil, PostInput{Title: "Anon", Content: "x"})
	assert.ErrorIs(t, err, security.ErrForbidden)
}

func TestGetAndListPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User

	first := createPost(t, env, alice, "First")
	createPost(t, env, alice, "Second")
	createPost(t, env, alice, "Third")

	got, err := env.post.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)

	_, err = env.post.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrPostNotFound)

	page1, err := env.post.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := env.post.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	all, err := env.post.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdatePostOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	bob := env.signup(t, "b@x.com", "bob", "secret123").User
	admin := env.admin(t, "root@x.com", "root")
	post := createPost(t, env, alice, "Mine")

	_, err := env.post.Update(ctx, bob, post.ID, models.PostUpdate{Title: strPtr("Stolen")})
	assert.ErrorIs(t, err, security.ErrForbidden)

	_, err = env.post.Update(ctx, admin, post.ID, models.PostUpdate{Title: strPtr("Moderated")})
	assert.ErrorIs(t, err, security.ErrForbidden, "admins do not bypass ownership on update")

	tags := []string{"a", "b"}
	updated, err := env.post.Update(ctx, alice, post.ID, models.PostUpdate{Title: strPtr("Still mine"), Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Still mine", updated.Title)
	assert.Equal(t, tags, updated.Tags)
	assert.Equal(t, post.Content, updated.Content)

	unchanged, err := env.post.Update(ctx, alice, post.ID, models.PostUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Still mine", unchanged.Title)

	_, err = env.post.Update(ctx, alice, 9999, models.PostUpdate{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestUpdatePostTitleConflict(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	createPost(t, env, alice, "One")
	two := createPost(t, env, alice, "Two")

	_, err := env.post.Update(context.Background(), alice, two.ID, models.PostUpdate{Title: strPtr("One")})
	assert.ErrorIs(t, err, ErrTitleTaken)
}

func TestDeletePostByNonOwnerIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	bob := env.signup(t, "b@x.com", "bob", "secret123").User
	post := createPost(t, env, alice, "Keep me")

	err := env.post.Delete(ctx, bob, post.ID)
	assert.ErrorIs(t, err, security.ErrForbidden)

	still, err := env.post.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, still.Title)
	assert.Equal(t, post.Content, still.Content)
}

func TestDeletePostByAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	admin := env.admin(t, "root@x.com", "root")
	post := createPost(t, env, alice, "Spam")

	require.NoError(t, env.post.Delete(ctx, admin, post.ID))

	_, err := env.post.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePostByOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "secret123").User
	post := createPost(t, env, alice, "Draft")

	require.NoError(t, env.post.Delete(ctx, alice, post.ID))
	assert.ErrorIs(t, env.post.Delete(ctx, alice, post.ID), ErrPostNotFound)
}
