package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/domain"
)

func TestFollowAndUnfollow(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.followSvc.Follow(context.Background(), "fan", "star"))

	following, err := env.followSvc.IsFollowing(context.Background(), "fan", "star")
	require.NoError(t, err)
	assert.True(t, following)

	// The edge is directional.
	reverse, err := env.followSvc.IsFollowing(context.Background(), "star", "fan")
	require.NoError(t, err)
	assert.False(t, reverse)

	assert.Contains(t, env.pub.userMessageTypes("fan"), domain.MsgFollowUpdated)
	assert.Contains(t, env.pub.userMessageTypes("star"), domain.MsgFollowUpdated)

	require.NoError(t, env.followSvc.Unfollow(context.Background(), "fan", "star"))
	following, err = env.followSvc.IsFollowing(context.Background(), "fan", "star")
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.followSvc.Follow(context.Background(), "fan", "star"))
	require.NoError(t, env.followSvc.Follow(context.Background(), "fan", "star"))

	followers, err := env.followSvc.Followers(context.Background(), "star")
	require.NoError(t, err)
	assert.Equal(t, []string{"fan"}, followers)
}

func TestFollowSelfRejected(t *testing.T) {
	env := newTestEnv(t)

	err := env.followSvc.Follow(context.Background(), "fan", "fan")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFollowersSorted(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.followSvc.Follow(context.Background(), "charlie", "star"))
	require.NoError(t, env.followSvc.Follow(context.Background(), "alice", "star"))
	require.NoError(t, env.followSvc.Follow(context.Background(), "bob", "star"))

	followers, err := env.followSvc.Followers(context.Background(), "star")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "charlie"}, followers)
}
