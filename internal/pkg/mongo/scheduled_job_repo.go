package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ScheduledJobRepo interface {
	CreateJob(ctx context.Context, job *ScheduledJob) error
	ClaimJob(ctx context.Context, id primitive.ObjectID) (*ScheduledJob, error)
	FinishJob(ctx context.Context, id primitive.ObjectID) error
	FailJob(ctx context.Context, id primitive.ObjectID, cause error, maxAttempts int) error
	GetPendingJobs(ctx context.Context, before time.Time) ([]*ScheduledJob, error)
	ReleaseStaleJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

type scheduledJobRepoImpl struct {
	col *mongo.Collection
}

func NewScheduledJobRepo(db *mongo.Database) ScheduledJobRepo {
	return &scheduledJobRepoImpl{
		col: db.Collection(JobCollection),
	}
}

func (s *scheduledJobRepoImpl) CreateJob(ctx context.Context, job *ScheduledJob) error {
	now := time.Now()
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	job.Status = JobStatusPending
	job.CreatedAt, job.UpdatedAt = now, now
	_, err := s.col.InsertOne(ctx, job)
	return err
}

// ClaimJob 原子地将 pending 置为 running，已被领取时返回 nil
func (s *scheduledJobRepoImpl) ClaimJob(ctx context.Context, id primitive.ObjectID) (*ScheduledJob, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var job ScheduledJob
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": JobStatusPending},
		bson.M{
			"$set": bson.M{"status": JobStatusRunning, "updated_at": time.Now()},
			"$inc": bson.M{"attempts": 1},
		},
		opts,
	).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (s *scheduledJobRepoImpl) FinishJob(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": JobStatusDone, "updated_at": time.Now()}},
	)
	return err
}

// FailJob 失败后重新放回 pending，超过最大次数置为 failed
func (s *scheduledJobRepoImpl) FailJob(ctx context.Context, id primitive.ObjectID, cause error, maxAttempts int) error {
	now := time.Now()
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "attempts": bson.M{"$gte": maxAttempts}},
		bson.M{"$set": bson.M{"status": JobStatusFailed, "last_error": cause.Error(), "updated_at": now}},
	)
	if err != nil {
		return err
	}
	_, err = s.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": JobStatusRunning},
		bson.M{"$set": bson.M{"status": JobStatusPending, "last_error": cause.Error(), "updated_at": now}},
	)
	return err
}

// GetPendingJobs 获取 run_at 早于 before 的待执行任务
func (s *scheduledJobRepoImpl) GetPendingJobs(ctx context.Context, before time.Time) ([]*ScheduledJob, error) {
	opts := options.Find().SetSort(bson.D{{Key: "run_at", Value: 1}}).SetLimit(500)
	cursor, err := s.col.Find(ctx, bson.M{"status": JobStatusPending, "run_at": bson.M{"$lte": before}}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	jobs := make([]*ScheduledJob, 0)
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ReleaseStaleJobs 进程崩溃遗留的 running 任务重新放回 pending
func (s *scheduledJobRepoImpl) ReleaseStaleJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.col.UpdateMany(ctx,
		bson.M{"status": JobStatusRunning, "updated_at": bson.M{"$lt": olderThan}},
		bson.M{"$set": bson.M{"status": JobStatusPending, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
