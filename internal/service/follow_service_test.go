package service

import (
	"Sodium/internal/model"
	"Sodium/internal/pkg/mongo"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleFollowRoundTripKeepsCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := seedUser(t, env.db, "alice")
	fan := seedUser(t, env.db, "bobby")
	character := seedCharacter(t, env.db, creator.ID, "gemini-2.0-flash")

	result, err := env.follows.ToggleFollow(ctx, fan.ID, character.ID)
	require.NoError(t, err)
	assert.True(t, result.Following)
	assert.EqualValues(t, 1, result.FollowerCount)

	assertFollowCounters(t, env, character.ID, creator.ID, 1)
	stored, err := env.repos.Users.GetUserById(ctx, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Merit)
	assert.Len(t, env.notifications.byType(creator.ID, mongo.NotifyFollow), 1)

	following, err := env.follows.GetFollowing(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.True(t, following[0].IsFollowing)

	result, err = env.follows.ToggleFollow(ctx, fan.ID, character.ID)
	require.NoError(t, err)
	assert.False(t, result.Following)
	assert.EqualValues(t, 0, result.FollowerCount)

	assertFollowCounters(t, env, character.ID, creator.ID, 0)
	stored, err = env.repos.Users.GetUserById(ctx, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Merit)
}

func TestToggleFollowSelfIsRejectedWithoutMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := seedUser(t, env.db, "alice")
	character := seedCharacter(t, env.db, creator.ID, "gemini-2.0-flash")

	_, err := env.follows.ToggleFollow(ctx, creator.ID, character.ID)
	require.ErrorIs(t, err, ErrFollowSelf)
	code, _, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, BadRequest, code)

	assertFollowCounters(t, env, character.ID, creator.ID, 0)
	following, err := env.repos.Relations.IsFollowing(ctx, creator.ID, character.ID)
	require.NoError(t, err)
	assert.False(t, following)
	assert.Empty(t, env.notifications.byType(creator.ID, mongo.NotifyFollow))
}

func TestToggleFollowUnapprovedCharacterNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := seedUser(t, env.db, "alice")
	fan := seedUser(t, env.db, "bobby")
	character := seedCharacter(t, env.db, creator.ID, "gemini-2.0-flash")
	require.NoError(t, env.db.Model(&model.Character{}).Where("id = ?", character.ID).Update("is_approved", false).Error)

	_, err := env.follows.ToggleFollow(ctx, fan.ID, character.ID)
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func assertFollowCounters(t *testing.T, env *testEnv, characterID, creatorID uint64, expected int64) {
	t.Helper()
	ctx := context.Background()
	character, err := env.repos.Characters.GetCharacterById(ctx, characterID)
	require.NoError(t, err)
	followers, err := env.repos.Relations.CountFollowers(ctx, characterID)
	require.NoError(t, err)
	creator, err := env.repos.Users.GetUserById(ctx, creatorID)
	require.NoError(t, err)

	assert.Equal(t, expected, character.FollowerCount)
	assert.Equal(t, followers, character.FollowerCount)
	assert.Equal(t, expected, creator.TotalFollowers)
}

func TestToggleFollowReportsCountCommittedByConcurrentFollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := seedUser(t, env.db, "alice")
	first := seedUser(t, env.db, "bobby")
	second := seedUser(t, env.db, "carol")
	third := seedUser(t, env.db, "david")
	character := seedCharacter(t, env.db, creator.ID, "gemini-2.0-flash")

	_, err := env.follows.ToggleFollow(ctx, first.ID, character.ID)
	require.NoError(t, err)

	onceAfterQuery(t, env.db, "characters", func() {
		_, err := env.follows.ToggleFollow(ctx, third.ID, character.ID)
		require.NoError(t, err)
	})
	result, err := env.follows.ToggleFollow(ctx, second.ID, character.ID)
	require.NoError(t, err)
	assert.True(t, result.Following)
	assert.EqualValues(t, 3, result.FollowerCount)
	assertFollowCounters(t, env, character.ID, creator.ID, 3)
}
