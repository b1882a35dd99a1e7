package service

import (
	"Sodium/internal/pkg/es"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db            *gorm.DB
	repos         *repository.Repos
	memoryRepo    *fakeMemoryRepo
	notifications *fakeNotificationRepo
	store         *fakeStore
	scheduler     *fakeScheduler
	moderator     *fakeModerator
	provider      *fakeProvider
	storage       *fakeStorage
	mailer        *fakeMailer
	now           time.Time

	notifier    NotificationService
	memories    MemoryService
	suspender   SuspendService
	reporter    ReportService
	follows     FollowService
	characters  CharacterService
	comments    CommentService
	communicate CommunicateService
}

const (
	testSuspendDays     = 7
	testBanThreshold    = 3
	testReportThreshold = 3
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:            newTestDB(t),
		memoryRepo:    newFakeMemoryRepo(),
		notifications: &fakeNotificationRepo{},
		store:         newFakeStore(),
		scheduler:     &fakeScheduler{},
		moderator:     &fakeModerator{unsafe: map[string]bool{}},
		provider:      &fakeProvider{reply: "Nice to meet you!"},
		storage:       newFakeStorage(),
		mailer:        &fakeMailer{},
		now:           time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.repos = repository.NewRepos(env.db)
	uow := repository.NewUnitOfWork(env.db)
	clock := func() time.Time { return env.now }

	env.notifier = NewNotificationService(env.notifications)

	memories := NewMemoryService(env.memoryRepo, env.repos.Characters).(*MemoryServiceImpl)
	memories.now = clock
	env.memories = memories

	suspender := NewSuspendService(env.repos.Users, env.repos.Moderation, uow, env.notifier, env.scheduler, env.mailer,
		testSuspendDays, testBanThreshold).(*SuspendServiceImpl)
	suspender.now = clock
	env.suspender = suspender

	env.reporter = NewReportService(env.repos.Users, uow, env.store, env.suspender, testReportThreshold)
	env.follows = NewFollowService(env.repos.Characters, env.repos.Relations, uow, env.notifier)
	env.characters = NewCharacterService(env.repos.Characters, env.repos.Relations, uow, es.NewNoopCharacterRepo(),
		env.storage, env.moderator, env.memories, env.suspender, env.notifier)
	env.comments = NewCommentService(env.repos.Comments, env.repos.Characters, env.repos.Users, uow, env.moderator,
		env.suspender, env.notifier, nil, testReportThreshold)

	composer, err := llm.NewComposer()
	require.NoError(t, err)
	communicate := NewCommunicateService(env.repos.Characters, env.repos.Relations, uow, env.memories, env.suspender,
		env.notifier, env.scheduler, env.moderator, composer, llm.NewDispatcher(env.provider), true, 72*time.Hour).(*CommunicateServiceImpl)
	communicate.now = clock
	env.communicate = communicate
	return env
}
