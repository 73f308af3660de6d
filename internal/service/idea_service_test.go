package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/model"
)

func categoryCount(t *testing.T, env *testEnv, name string) int64 {
	t.Helper()
	cats, err := env.ideas.ListCategories(context.Background())
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c.IdeaCount
		}
	}
	return -1
}

func TestCreateIdea(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")

	idea, err := env.ideas.CreateIdea(ctx, "u1", IdeaInput{Title: " Water ", Body: "filters", Category: "Health"})
	require.NoError(t, err)
	assert.Equal(t, "Water", idea.Title)
	assert.Equal(t, "Firstu1 Lastu1", idea.AuthorName)
	assert.Equal(t, int64(1), categoryCount(t, env, "Health"))

	pending, err := env.store.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	_, err = env.ideas.CreateIdea(ctx, "u1", IdeaInput{Title: "", Body: "b", Category: "Art"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.ideas.CreateIdea(ctx, "ghost", IdeaInput{Title: "t", Body: "b", Category: "Art"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateIdeaUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1")
	env.seedIdea(t, "u1", "street choir", "Music")
	assert.Equal(t, int64(1), categoryCount(t, env, "Music"))
}

func TestUpdateIdeaMovesCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	env.seedUser(t, "u2")
	idea := env.seedIdea(t, "u1", "tree census", "Environment")

	_, err := env.ideas.UpdateIdea(ctx, "u2", idea.ID, IdeaInput{Title: "x", Body: "y", Category: "Art"})
	assert.ErrorIs(t, err, apperr.ErrPermission)

	updated, err := env.ideas.UpdateIdea(ctx, "u1", idea.ID, IdeaInput{Title: "tree census 2", Body: "y", Category: "Education"})
	require.NoError(t, err)
	assert.Equal(t, "tree census 2", updated.Title)
	assert.Greater(t, updated.Version, idea.Version)
	assert.Equal(t, int64(0), categoryCount(t, env, "Environment"))
	assert.Equal(t, int64(1), categoryCount(t, env, "Education"))
}

func TestDeleteIdeaCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	env.seedUser(t, "u2")
	idea := env.seedIdea(t, "u1", "tool library", "Other")
	other := env.seedIdea(t, "u1", "keep me", "Other")

	c, err := env.comments.AddComment(ctx, "u2", idea.ID, "nice")
	require.NoError(t, err)
	_, _, err = env.engagement.ToggleCommentLike(ctx, "u1", c.ID)
	require.NoError(t, err)
	_, _, err = env.engagement.ToggleIdeaLike(ctx, "u2", idea.ID)
	require.NoError(t, err)
	_, _, err = env.engagement.ToggleIdeaLike(ctx, "u2", other.ID)
	require.NoError(t, err)
	_, err = env.views.ViewIdea(ctx, "u2", idea.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.ideas.DeleteIdea(ctx, "u2", idea.ID), apperr.ErrPermission)
	require.NoError(t, env.ideas.DeleteIdea(ctx, "u1", idea.ID))

	_, err = env.ideas.GetIdea(ctx, idea.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.store.Comments.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	n, err := env.store.Likes.Count(ctx, model.LikeTargetIdea, idea.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = env.store.Likes.Count(ctx, model.LikeTargetComment, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = env.store.Views.CountByIdea(ctx, idea.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	liked, err := env.engagement.LikedIdeaIDs(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, liked)
	assert.Equal(t, int64(1), categoryCount(t, env, "Other"))

	recent, err := env.views.RecentlyViewed(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, recent)
}
