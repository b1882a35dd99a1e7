package mongo

import (
	"Sodium/internal/api/config"
	"Sodium/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	MemoryCollection       = "memories"
	NotificationCollection = "notifications"
	JobCollection          = "scheduled_jobs"
)

// InitMongo 建立连接并返回 Database 引用，同时初始化索引
func InitMongo(cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URL).
		SetMonitor(logger.NewMongoMonitor()),
	)
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	if err = EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	log.Info("MongoDB initialized successfully", "db", cfg.Database)
	return db, nil
}

// EnsureIndexes 创建业务依赖的索引，(user_id, character_id) 唯一索引保证记忆只创建一次
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(MemoryCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "character_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user_character"),
		},
		{Keys: bson.D{{Key: "character_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(NotificationCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(JobCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "run_at", Value: 1}},
	})
	return err
}
