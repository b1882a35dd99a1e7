package repository

import (
	"Sodium/internal/model"
	"Sodium/internal/pkg/database"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Password: "x", Role: model.RoleUser, Status: model.UserStatusActive}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCharacter(t *testing.T, db *gorm.DB, creatorID uint64) *model.Character {
	t.Helper()
	c := &model.Character{CreatorID: creatorID, Name: "Nova", Gender: "female", Personality: "kind", Opening: "Hi!", Model: "gemini-2.0-flash", IsApproved: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func TestUnitOfWorkRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	creator := seedUser(t, db, "alice")
	fan := seedUser(t, db, "bobby")
	character := seedCharacter(t, db, creator.ID)

	uow := NewUnitOfWork(db)
	boom := errors.New("boom")
	err := uow.Transaction(ctx, func(r *Repos) error {
		added, err := r.Relations.AddFollower(ctx, fan.ID, character.ID)
		require.NoError(t, err)
		require.True(t, added)
		require.NoError(t, r.Characters.IncrFollowerCount(ctx, character.ID, 1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	repos := NewRepos(db)
	following, err := repos.Relations.IsFollowing(ctx, fan.ID, character.ID)
	require.NoError(t, err)
	assert.False(t, following)
	reloaded, err := repos.Characters.GetCharacterById(ctx, character.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.FollowerCount)
}

func TestCounterNeverGoesNegative(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	creator := seedUser(t, db, "alice")
	character := seedCharacter(t, db, creator.ID)

	repos := NewRepos(db)
	err := repos.Characters.IncrFollowerCount(ctx, character.ID, -1)
	assert.ErrorIs(t, err, ErrRowsAffected)
	err = repos.Users.IncrTotalFollowers(ctx, creator.ID, -1)
	assert.ErrorIs(t, err, ErrRowsAffected)
}

func TestAdjustMeritClamps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "alice")
	repos := NewRepos(db)

	require.NoError(t, repos.Users.AdjustMerit(ctx, u.ID, 250))
	got, err := repos.Users.GetUserById(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MeritMax, got.Merit)

	require.NoError(t, repos.Users.AdjustMerit(ctx, u.ID, -500))
	got, err = repos.Users.GetUserById(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MeritMin, got.Merit)

	require.NoError(t, repos.Users.AdjustMerit(ctx, u.ID, 3))
	got, err = repos.Users.GetUserById(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MeritMin+3, got.Merit)
}

func TestIncrSuspensionEscalates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "alice")
	repos := NewRepos(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := repos.Moderation.IncrSuspension(ctx, u.ID, 7, now, "spam")
	require.NoError(t, err)
	assert.Equal(t, 1, first.SuspensionCount)
	assert.True(t, first.SuspensionEndDate.Equal(now.AddDate(0, 0, 7)))

	second, err := repos.Moderation.IncrSuspension(ctx, u.ID, 7, now, "spam again")
	require.NoError(t, err)
	assert.Equal(t, 2, second.SuspensionCount)
	assert.True(t, second.SuspensionEndDate.Equal(now.AddDate(0, 0, 14)))
	assert.Equal(t, first.ID, second.ID)
}

func TestIncrUserReportAndReset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "alice")
	repos := NewRepos(db)

	for i := 1; i <= 3; i++ {
		count, err := repos.Moderation.IncrUserReport(ctx, u.ID, "rude")
		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
	}
	require.NoError(t, repos.Moderation.ResetUserReport(ctx, u.ID))
	count, err := repos.Moderation.IncrUserReport(ctx, u.ID, "rude")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteWithRepliesRemovesDirectReplies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "alice")
	character := seedCharacter(t, db, u.ID)
	repos := NewRepos(db)

	root := &model.Comment{CharacterID: character.ID, UserID: u.ID, Content: "root"}
	require.NoError(t, repos.Comments.CreateComment(ctx, root))
	other := &model.Comment{CharacterID: character.ID, UserID: u.ID, Content: "other"}
	require.NoError(t, repos.Comments.CreateComment(ctx, other))
	for i := 0; i < 2; i++ {
		reply := &model.Comment{CharacterID: character.ID, UserID: u.ID, ParentID: &root.ID, Content: "reply"}
		require.NoError(t, repos.Comments.CreateComment(ctx, reply))
		_, err := repos.Comments.AddLike(ctx, u.ID, reply.ID)
		require.NoError(t, err)
	}

	ids, err := repos.Comments.DeleteWithReplies(ctx, root.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	remaining, err := repos.Comments.GetComments(ctx, character.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].ID)

	var likes int64
	require.NoError(t, db.Model(&model.CommentLike{}).Count(&likes).Error)
	assert.Zero(t, likes)
}

func TestAddFollowerIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "alice")
	character := seedCharacter(t, db, u.ID)
	repos := NewRepos(db)

	added, err := repos.Relations.AddFollower(ctx, u.ID, character.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repos.Relations.AddFollower(ctx, u.ID, character.ID)
	require.NoError(t, err)
	assert.False(t, added)

	removed, err := repos.Relations.RemoveFollower(ctx, u.ID, character.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repos.Relations.RemoveFollower(ctx, u.ID, character.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}
