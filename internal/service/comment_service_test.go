package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/model"
)

func TestCommentCountTracksLiveComments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	env.seedUser(t, "u2")
	idea := env.seedIdea(t, "u1", "library of things", "Education")

	c1, err := env.comments.AddComment(ctx, "u2", idea.ID, "love it")
	require.NoError(t, err)
	_, err = env.comments.AddComment(ctx, "u1", idea.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.idea(t, idea.ID).CommentCount)
	assert.Equal(t, "Firstu2 Lastu2", c1.AuthorName)

	// 作者自己评论不通知
	notes := env.notificationsOf(t, "u1", model.NotificationComment)
	require.Len(t, notes, 1)
	assert.Equal(t, "u2", notes[0].SenderID)

	require.NoError(t, env.comments.DeleteComment(ctx, "u2", c1.ID))
	assert.Equal(t, int64(1), env.idea(t, idea.ID).CommentCount)

	list, err := env.comments.ListComments(ctx, idea.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "thanks", list[0].Content)
}

func TestCommentAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	env.seedUser(t, "u2")
	idea := env.seedIdea(t, "u1", "seed swap", "Agriculture")
	c, err := env.comments.AddComment(ctx, "u2", idea.ID, "count me in")
	require.NoError(t, err)

	_, err = env.comments.UpdateComment(ctx, "u1", c.ID, "hijack")
	assert.ErrorIs(t, err, apperr.ErrPermission)
	err = env.comments.DeleteComment(ctx, "u1", c.ID)
	assert.ErrorIs(t, err, apperr.ErrPermission)
	assert.Equal(t, int64(1), env.idea(t, idea.ID).CommentCount)

	updated, err := env.comments.UpdateComment(ctx, "u2", c.ID, "  count me in twice  ")
	require.NoError(t, err)
	assert.Equal(t, "count me in twice", updated.Content)
}

func TestCommentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	idea := env.seedIdea(t, "u1", "x", "Other")

	_, err := env.comments.AddComment(ctx, "u1", idea.ID, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.comments.AddComment(ctx, "u1", idea.ID, strings.Repeat("a", maxCommentLength+1))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.comments.AddComment(ctx, "u1", "ghost", "hello")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.comments.ListComments(ctx, "ghost", 10, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCommentsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	idea := env.seedIdea(t, "u1", "x", "Other")
	for _, text := range []string{"one", "two", "three"} {
		_, err := env.comments.AddComment(ctx, "u1", idea.ID, text)
		require.NoError(t, err)
	}
	list, err := env.comments.ListComments(ctx, idea.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "three", list[0].Content)
	assert.Equal(t, "two", list[1].Content)
}

func TestDeleteCommentRaceDoesNotDoubleDecrement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	idea := env.seedIdea(t, "u1", "street libraries", "Education")
	c1, err := env.comments.AddComment(ctx, "u1", idea.ID, "one")
	require.NoError(t, err)
	_, err = env.comments.AddComment(ctx, "u1", idea.ID, "two")
	require.NoError(t, err)

	env.interleaveDelete(t, "comments",
		func(tx *gorm.DB) error {
			return tx.Exec("DELETE FROM comments WHERE id = ?", c1.ID).Error
		},
		func(tx *gorm.DB) error {
			return tx.Exec("UPDATE ideas SET comment_count = comment_count - 1 WHERE id = ?", idea.ID).Error
		},
	)

	require.NoError(t, env.comments.DeleteComment(ctx, "u1", c1.ID))

	live, err := env.store.Comments.CountByIdea(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), live)
	assert.Equal(t, live, env.idea(t, idea.ID).CommentCount)
}
