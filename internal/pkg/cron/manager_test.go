package cron

import (
	"Sodium/internal/pkg/mongo"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[primitive.ObjectID]*mongo.ScheduledJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[primitive.ObjectID]*mongo.ScheduledJob)}
}

func (r *memJobRepo) CreateJob(_ context.Context, job *mongo.ScheduledJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	job.Status = mongo.JobStatusPending
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) ClaimJob(_ context.Context, id primitive.ObjectID) (*mongo.ScheduledJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != mongo.JobStatusPending {
		return nil, nil
	}
	job.Status = mongo.JobStatusRunning
	job.Attempts++
	cp := *job
	return &cp, nil
}

func (r *memJobRepo) FinishJob(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].Status = mongo.JobStatusDone
	return nil
}

func (r *memJobRepo) FailJob(_ context.Context, id primitive.ObjectID, cause error, maxAttempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[id]
	job.LastError = cause.Error()
	if job.Attempts >= maxAttempts {
		job.Status = mongo.JobStatusFailed
	} else {
		job.Status = mongo.JobStatusPending
	}
	return nil
}

func (r *memJobRepo) GetPendingJobs(_ context.Context, before time.Time) ([]*mongo.ScheduledJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*mongo.ScheduledJob
	for _, job := range r.jobs {
		if job.Status == mongo.JobStatusPending && !job.RunAt.After(before) {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memJobRepo) ReleaseStaleJobs(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *memJobRepo) status(id primitive.ObjectID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id].Status
}

func (r *memJobRepo) only(t *testing.T) *mongo.ScheduledJob {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.jobs, 1)
	for _, job := range r.jobs {
		return job
	}
	return nil
}

func TestOnceSchedule_FiresOnce(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := onceSchedule{at: at}

	assert.Equal(t, at, s.Next(at.Add(-time.Minute)))
	assert.True(t, s.Next(at).IsZero())
	assert.True(t, s.Next(at.Add(time.Hour)).IsZero())
}

func TestFire_RunsHandlerOnceAndSelfCancels(t *testing.T) {
	repo := newMemJobRepo()
	m := NewCronManager(repo, "@every 1m")

	var got []EmailPayload
	m.Register(JobSendEmail, func(_ context.Context, payload []byte) error {
		var p EmailPayload
		require.NoError(t, json.Unmarshal(payload, &p))
		got = append(got, p)
		return nil
	})

	err := m.Schedule(context.Background(), time.Now().Add(time.Hour), JobSendEmail, EmailPayload{To: "a@b.c", Subject: "hi"})
	require.NoError(t, err)
	job := repo.only(t)
	require.Len(t, m.entries, 1)

	m.Fire(job.ID)
	m.Fire(job.ID)

	require.Len(t, got, 1)
	assert.Equal(t, "a@b.c", got[0].To)
	assert.Equal(t, mongo.JobStatusDone, repo.status(job.ID))
	assert.Empty(t, m.entries)
}

func TestFire_FailureReturnsJobToPendingUntilMaxAttempts(t *testing.T) {
	repo := newMemJobRepo()
	m := NewCronManager(repo, "@every 1m")
	calls := 0
	m.Register(JobPushNotification, func(context.Context, []byte) error {
		calls++
		return errors.New("boom")
	})

	require.NoError(t, m.Schedule(context.Background(), time.Now(), JobPushNotification, NotificationPayload{ReceiverID: 1}))
	job := repo.only(t)

	m.Fire(job.ID)
	assert.Equal(t, mongo.JobStatusPending, repo.status(job.ID))

	m.Run()
	require.Len(t, m.entries, 1)

	m.Fire(job.ID)
	m.Fire(job.ID)
	assert.Equal(t, 3, calls)
	assert.Equal(t, mongo.JobStatusFailed, repo.status(job.ID))
}

func TestFire_UnknownJobFails(t *testing.T) {
	repo := newMemJobRepo()
	m := NewCronManager(repo, "@every 1m")

	require.NoError(t, m.Schedule(context.Background(), time.Now(), "nope", map[string]string{}))
	job := repo.only(t)

	m.Fire(job.ID)
	assert.Contains(t, repo.only(t).LastError, ErrUnknownJob.Error())
}

func TestStart_FiresDueJob(t *testing.T) {
	repo := newMemJobRepo()
	m := NewCronManager(repo, "@every 1h")
	done := make(chan struct{}, 1)
	m.Register(JobSendEmail, func(context.Context, []byte) error {
		done <- struct{}{}
		return nil
	})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.NoError(t, m.Schedule(context.Background(), time.Now(), JobSendEmail, EmailPayload{To: "x@y.z"}))
	job := repo.only(t)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not fire")
	}
	require.Eventually(t, func() bool {
		return repo.status(job.ID) == mongo.JobStatusDone
	}, 2*time.Second, 20*time.Millisecond)
}
