package repository

import (
	"context"
	"database/sql"
	"testing"

	"blogapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostCRUD(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, users, "a@x.com", "alice")

	created, err := posts.CreatePost(ctx, &models.Post{
		Title:    "Hello",
		Content:  "First post",
		Category: "news",
		Tags:     []string{"intro", "go"},
		Author:   models.Author{ID: author.ID, Name: author.DisplayName},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, []models.Comment{}, created.Comments)

	got, err := posts.GetPostByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"intro", "go"}, got.Tags)
	assert.Equal(t, models.Author{ID: author.ID, Name: "alice"}, got.Author)

	got.Title = "Hello again"
	got.Tags = nil
	require.NoError(t, posts.UpdatePost(ctx, got))

	got, err = posts.GetPostByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got.Title)
	assert.Equal(t, []string{}, got.Tags)

	list, err := posts.ListPosts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, posts.DeletePost(ctx, created.ID))
	got, err = posts.GetPostByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, posts.DeletePost(ctx, created.ID), sql.ErrNoRows)
}

func TestPostTitleUnique(t *testing.T) {
	db := setupDB(t)
	author := createUser(t, NewUserRepository(db), "a@x.com", "alice")
	posts := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Same", Content: "x", Author: models.Author{ID: author.ID, Name: "alice"}}
	_, err := posts.CreatePost(ctx, post)
	require.NoError(t, err)

	_, err = posts.CreatePost(ctx, post)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDeletePostsByAuthorAndRename(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "a@x.com", "alice")
	bob := createUser(t, users, "b@x.com", "bob")

	for _, p := range []models.Post{
		{Title: "a1", Content: "x", Author: models.Author{ID: alice.ID, Name: "alice"}},
		{Title: "a2", Content: "x", Author: models.Author{ID: alice.ID, Name: "alice"}},
		{Title: "b1", Content: "x", Author: models.Author{ID: bob.ID, Name: "bob"}},
	} {
		_, err := posts.CreatePost(ctx, &p)
		require.NoError(t, err)
	}

	require.NoError(t, posts.RenameAuthor(ctx, bob.ID, "robert"))

	n, err := posts.DeletePostsByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := posts.ListPosts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "robert", list[0].Author.Name)
}
