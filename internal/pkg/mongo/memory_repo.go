package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrMemoryExists 唯一索引冲突，说明并发请求已经创建了记忆
var ErrMemoryExists = errors.New("memory already exists")

type MemoryRepo interface {
	CreateMemory(ctx context.Context, memory *Memory) error
	GetMemory(ctx context.Context, userID, characterID uint64) (*Memory, error)
	GetMemoryByID(ctx context.Context, id primitive.ObjectID) (*Memory, error)
	ReplaceMessages(ctx context.Context, id primitive.ObjectID, version int64, messages []MemoryMessage) (bool, error)
	DeleteByCharacter(ctx context.Context, characterID uint64) (int64, error)
}

type memoryRepoImpl struct {
	col *mongo.Collection
}

func NewMemoryRepo(db *mongo.Database) MemoryRepo {
	return &memoryRepoImpl{
		col: db.Collection(MemoryCollection),
	}
}

// CreateMemory 插入记忆，重复时返回 ErrMemoryExists
func (s *memoryRepoImpl) CreateMemory(ctx context.Context, memory *Memory) error {
	if memory.ID.IsZero() {
		memory.ID = primitive.NewObjectID()
	}
	now := time.Now()
	memory.CreatedAt, memory.UpdatedAt = now, now

	_, err := s.col.InsertOne(ctx, memory)
	if mongo.IsDuplicateKeyError(err) {
		return ErrMemoryExists
	}
	return err
}

// GetMemory 不存在返回 nil
func (s *memoryRepoImpl) GetMemory(ctx context.Context, userID, characterID uint64) (*Memory, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "character_id": characterID})
}

func (s *memoryRepoImpl) GetMemoryByID(ctx context.Context, id primitive.ObjectID) (*Memory, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// ReplaceMessages 以 version 做乐观锁整体替换消息，版本不匹配返回 false
func (s *memoryRepoImpl) ReplaceMessages(ctx context.Context, id primitive.ObjectID, version int64, messages []MemoryMessage) (bool, error) {
	filter := bson.M{"_id": id, "version": version}
	update := bson.M{
		"$set": bson.M{"messages": messages, "updated_at": time.Now()},
		"$inc": bson.M{"version": 1},
	}
	result, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (s *memoryRepoImpl) DeleteByCharacter(ctx context.Context, characterID uint64) (int64, error) {
	result, err := s.col.DeleteMany(ctx, bson.M{"character_id": characterID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *memoryRepoImpl) findOne(ctx context.Context, filter bson.M) (*Memory, error) {
	var memory Memory
	err := s.col.FindOne(ctx, filter).Decode(&memory)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &memory, nil
}
