package cron

import (
	"Sodium/internal/pkg/logger"
	"Sodium/internal/pkg/mongo"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultMaxAttempts = 3
	staleAfter         = 10 * time.Minute
	sweepHorizon       = 100 * 365 * 24 * time.Hour
)

var ErrUnknownJob = errors.New("unknown job name")

// HandlerFunc 任务处理函数, payload 为 JSON
type HandlerFunc func(ctx context.Context, payload []byte) error

// Scheduler 延时任务调度
type Scheduler interface {
	Schedule(ctx context.Context, at time.Time, jobName string, payload any) error
}

// onceSchedule 只触发一次, 触发后 Next 返回零值
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if s.at.After(t) {
		return s.at
	}
	return time.Time{}
}

// Manager 持久化到 Mongo 的一次性任务调度器, 至少执行一次
type Manager struct {
	engine      *cron.Cron
	repo        mongo.ScheduledJobRepo
	sweepSpec   string
	maxAttempts int

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	entries  map[primitive.ObjectID]cron.EntryID
}

func NewCronManager(repo mongo.ScheduledJobRepo, sweepSpec string) *Manager {
	return &Manager{
		engine:      cron.New(cron.WithSeconds()),
		repo:        repo,
		sweepSpec:   sweepSpec,
		maxAttempts: defaultMaxAttempts,
		handlers:    make(map[string]HandlerFunc),
		entries:     make(map[primitive.ObjectID]cron.EntryID),
	}
}

// Register 按名称注册任务处理函数
func (s *Manager) Register(name string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

// Schedule 持久化任务并注册一次性触发
func (s *Manager) Schedule(ctx context.Context, at time.Time, jobName string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}
	job := &mongo.ScheduledJob{
		Name:    jobName,
		RunAt:   at,
		Payload: string(data),
	}
	if err = s.repo.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}
	s.arm(job)
	log.InfoContext(ctx, "job scheduled", "job", jobName, "id", job.ID.Hex(), "run_at", at)
	return nil
}

// arm 过期任务推迟一秒触发
func (s *Manager) arm(job *mongo.ScheduledJob) {
	at := job.RunAt
	if minAt := time.Now().Add(time.Second); at.Before(minAt) {
		at = minAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.ID]; ok {
		return
	}
	id := job.ID
	s.entries[id] = s.engine.Schedule(onceSchedule{at: at}, cron.FuncJob(func() {
		s.Fire(id)
	}))
}

func (s *Manager) disarm(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[id]; ok {
		s.engine.Remove(entryID)
		delete(s.entries, id)
	}
}

// Fire 领取并执行任务, 执行后移除 cron 条目
func (s *Manager) Fire(id primitive.ObjectID) {
	defer s.disarm(id)

	ctx := logger.NewTraceContext(context.Background(), "job")
	job, err := s.repo.ClaimJob(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "claim job error", "id", id.Hex(), "err", err)
		return
	}
	if job == nil {
		return
	}
	ctx = logger.NewTraceContext(context.Background(), "job-"+job.Name)

	s.mu.Lock()
	handler, ok := s.handlers[job.Name]
	s.mu.Unlock()
	if !ok {
		s.fail(ctx, job, fmt.Errorf("%w: %s", ErrUnknownJob, job.Name))
		return
	}

	if err = handler(ctx, []byte(job.Payload)); err != nil {
		s.fail(ctx, job, err)
		return
	}
	if err = s.repo.FinishJob(ctx, job.ID); err != nil {
		log.ErrorContext(ctx, "finish job error", "id", job.ID.Hex(), "err", err)
		return
	}
	log.InfoContext(ctx, "job done", "job", job.Name, "id", job.ID.Hex(), "attempts", job.Attempts)
}

func (s *Manager) fail(ctx context.Context, job *mongo.ScheduledJob, cause error) {
	log.ErrorContext(ctx, "job failed", "job", job.Name, "id", job.ID.Hex(), "attempts", job.Attempts, "err", cause)
	if err := s.repo.FailJob(ctx, job.ID, cause, s.maxAttempts); err != nil {
		log.ErrorContext(ctx, "mark job failed error", "id", job.ID.Hex(), "err", err)
	}
}

// LoadPending 启动时重新注册所有待执行任务
func (s *Manager) LoadPending(ctx context.Context) error {
	if _, err := s.repo.ReleaseStaleJobs(ctx, time.Now()); err != nil {
		return err
	}
	jobs, err := s.repo.GetPendingJobs(ctx, time.Now().Add(sweepHorizon))
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.arm(job)
	}
	log.InfoContext(ctx, "pending jobs loaded", "count", len(jobs))
	return nil
}

// Run 周期扫描: 回收卡住的任务并补触发已到期的任务
func (s *Manager) Run() {
	ctx := logger.NewTraceContext(context.Background(), "job-sweep")
	released, err := s.repo.ReleaseStaleJobs(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		log.ErrorContext(ctx, "release stale jobs error", "err", err)
		return
	}
	jobs, err := s.repo.GetPendingJobs(ctx, time.Now())
	if err != nil {
		log.ErrorContext(ctx, "get pending jobs error", "err", err)
		return
	}
	for _, job := range jobs {
		s.mu.Lock()
		_, armed := s.entries[job.ID]
		s.mu.Unlock()
		if !armed {
			s.arm(job)
		}
	}
	if released > 0 || len(jobs) > 0 {
		log.InfoContext(ctx, "job sweep finished", "released", released, "overdue", len(jobs))
	}
}

func (s *Manager) Start(ctx context.Context) error {
	if err := s.LoadPending(ctx); err != nil {
		return err
	}
	if _, err := s.engine.AddJob(s.sweepSpec, s); err != nil {
		return err
	}
	log.Info("Cron engine started")
	s.engine.Start()
	return nil
}

func (s *Manager) Stop() {
	log.Info("Cron engine stopping")
	<-s.engine.Stop().Done()
}
