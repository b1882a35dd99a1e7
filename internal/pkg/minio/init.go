package minio

import (
	"Sodium/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client 全局 MinIO 客户端实例
var Client *minio.Client

// Init 初始化 MinIO 客户端并确保存储桶存在
func Init(cfg config.MinIOConfig) error {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("minio bucket created", "bucket", cfg.Bucket)
	}
	if err = ensurePublicRead(ctx, client, cfg.Bucket); err != nil {
		return err
	}

	Client = client
	return nil
}

// ensurePublicRead 头像与角色图片需要匿名可读
func ensurePublicRead(ctx context.Context, client *minio.Client, bucket string) error {
	current, err := client.GetBucketPolicy(ctx, bucket)
	if err == nil && current != "" {
		return nil
	}
	readOnly := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
	if err = client.SetBucketPolicy(ctx, bucket, readOnly); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}
