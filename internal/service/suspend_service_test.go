package service

import (
	"Sodium/internal/model"
	"Sodium/internal/pkg/cron"
	"Sodium/internal/pkg/mongo"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSuspensionEscalatesAndBans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env.db, "carol")
	day := 24 * time.Hour

	for count := 1; count < testBanThreshold; count++ {
		suspend, err := env.suspender.RegisterSuspension(ctx, user.ID, "spam")
		require.NoError(t, err)
		assert.Equal(t, count, suspend.SuspensionCount)
		assert.True(t, suspend.SuspensionEndDate.Equal(env.now.Add(time.Duration(count*testSuspendDays)*day)))

		stored, err := env.repos.Users.GetUserById(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, model.UserStatusSuspended, stored.Status)
		assert.Equal(t, count*suspensionMeritPenalty, stored.Merit)
	}

	suspend, err := env.suspender.RegisterSuspension(ctx, user.ID, "spam again")
	require.NoError(t, err)
	assert.Equal(t, testBanThreshold, suspend.SuspensionCount)
	stored, err := env.repos.Users.GetUserById(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusBanned, stored.Status)

	again, err := env.suspender.RegisterSuspension(ctx, user.ID, "ignored")
	require.NoError(t, err)
	assert.Equal(t, testBanThreshold, again.SuspensionCount)
	assert.Equal(t, "spam again", again.Reason)

	jobs := env.scheduler.jobs()
	require.Len(t, jobs, testBanThreshold-1)
	for _, job := range jobs {
		assert.Equal(t, cron.JobPushNotification, job.JobName)
		payload, ok := job.Payload.(*cron.NotificationPayload)
		require.True(t, ok)
		assert.Equal(t, mongo.NotifySuspensionLifted, payload.Type)
		assert.Equal(t, user.ID, payload.ReceiverID)
	}
	assert.Len(t, env.notifications.byType(user.ID, mongo.NotifySuspension), testBanThreshold)
	assert.Eventually(t, func() bool { return env.mailer.count() == testBanThreshold }, time.Second, 10*time.Millisecond)
}

func TestCheckStatusReactivatesExpiredSuspension(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env.db, "carol")

	_, err := env.suspender.RegisterSuspension(ctx, user.ID, "spam")
	require.NoError(t, err)

	checked, err := env.suspender.CheckStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusSuspended, checked.Status)
	assert.ErrorIs(t, env.suspender.EnsureActive(checked), ErrUserSuspended)

	env.now = env.now.Add(time.Duration(testSuspendDays+1) * 24 * time.Hour)
	checked, err = env.suspender.CheckStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, checked.Status)
	assert.NoError(t, env.suspender.EnsureActive(checked))

	stored, err := env.repos.Users.GetUserById(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, stored.Status)
}

func TestAdminSuspendRejectsAdministrators(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, "admin", func(u *model.User) { u.Role = model.RoleAdmin })

	_, err := env.suspender.AdminSuspend(ctx, admin.ID, "nope")
	assert.ErrorIs(t, err, ErrSuspendAdmin)

	user := seedUser(t, env.db, "dave")
	result, err := env.suspender.AdminSuspend(ctx, user.ID, "abuse")
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusSuspended, result.Status)
	assert.Equal(t, 1, result.SuspensionCount)
	assert.Equal(t, "abuse", result.Reason)
}

func TestReportUserAccumulatesToSuspension(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	target := seedUser(t, env.db, "target")

	assert.ErrorIs(t, env.reporter.ReportUser(ctx, target.ID, target.ID, "self"), ErrReportSelf)

	reporters := make([]*model.User, 0, testReportThreshold)
	for _, name := range []string{"r1", "r2", "r3"} {
		reporters = append(reporters, seedUser(t, env.db, name))
	}

	require.NoError(t, env.reporter.ReportUser(ctx, reporters[0].ID, target.ID, "rude"))
	assert.ErrorIs(t, env.reporter.ReportUser(ctx, reporters[0].ID, target.ID, "rude"), ErrReportDuplicate)
	require.NoError(t, env.reporter.ReportUser(ctx, reporters[1].ID, target.ID, "rude"))

	suspend, err := env.repos.Moderation.GetSuspend(ctx, target.ID)
	require.NoError(t, err)
	assert.Nil(t, suspend)

	require.NoError(t, env.reporter.ReportUser(ctx, reporters[2].ID, target.ID, "rude"))

	suspend, err = env.repos.Moderation.GetSuspend(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, suspend)
	assert.Equal(t, 1, suspend.SuspensionCount)

	var report model.UserReport
	require.NoError(t, env.db.Where("reported_user_id = ?", target.ID).First(&report).Error)
	assert.EqualValues(t, 0, report.ReportCount)
}

func TestReportUserKeepsReportsWhenSuspensionFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	target := seedUser(t, env.db, "target")
	reporters := make([]*model.User, 0, testReportThreshold)
	for _, name := range []string{"r1", "r2", "r3"} {
		reporters = append(reporters, seedUser(t, env.db, name))
	}

	require.NoError(t, env.reporter.ReportUser(ctx, reporters[0].ID, target.ID, "rude"))
	require.NoError(t, env.reporter.ReportUser(ctx, reporters[1].ID, target.ID, "rude"))

	failing := failWrites(t, env.db, "suspends")
	failing.Store(true)
	require.Error(t, env.reporter.ReportUser(ctx, reporters[2].ID, target.ID, "rude"))
	failing.Store(false)

	var report model.UserReport
	require.NoError(t, env.db.Where("reported_user_id = ?", target.ID).First(&report).Error)
	assert.EqualValues(t, 2, report.ReportCount)
	stored, err := env.repos.Users.GetUserById(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, stored.Status)

	require.NoError(t, env.reporter.ReportUser(ctx, reporters[2].ID, target.ID, "rude"))

	require.NoError(t, env.db.Where("reported_user_id = ?", target.ID).First(&report).Error)
	assert.EqualValues(t, 0, report.ReportCount)
	stored, err = env.repos.Users.GetUserById(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusSuspended, stored.Status)
	suspend, err := env.repos.Moderation.GetSuspend(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, suspend)
	assert.Equal(t, 1, suspend.SuspensionCount)
	assert.Len(t, env.notifications.byType(target.ID, mongo.NotifySuspension), 1)
}
