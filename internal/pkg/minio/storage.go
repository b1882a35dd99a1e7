package minio

import (
	"Sodium/internal/api/config"
	"Sodium/internal/pkg/consts"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	log "log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const (
	ResultOK       = "ok"
	ResultNotFound = "not-found"
	ResultError    = "error"
)

const (
	ResourceImage = "image"
	ResourceRaw   = "raw"
)

// UploadResult 上传结果, PublicID 即对象名
type UploadResult struct {
	URL      string
	PublicID string
}

// DeleteResult 删除结果
type DeleteResult struct {
	Result string
}

// Storage 对象存储
type Storage interface {
	Upload(ctx context.Context, localPath string, folder string) (*UploadResult, error)
	Delete(ctx context.Context, publicID string, resourceType string) (*DeleteResult, error)
}

type storageImpl struct {
	client   *minio.Client
	bucket   string
	endpoint string
	maxSide  int
}

func NewStorage(client *minio.Client, cfg config.MinIOConfig) Storage {
	endpoint := cfg.PublicEndpoint
	if endpoint == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}
	return &storageImpl{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
		maxSide:  cfg.MaxImageSide,
	}
}

// Upload 上传本地文件, 图片会先等比缩放到 maxSide 以内
func (s *storageImpl) Upload(ctx context.Context, localPath string, folder string) (*UploadResult, error) {
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(localPath))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = http.DetectContentType(raw)
	}

	var reader io.Reader = bytes.NewReader(raw)
	size := int64(len(raw))
	if strings.HasPrefix(contentType, consts.MimePrefixImage) {
		resized, err := ResizeImage(raw, s.maxSide)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(resized)
		size = int64(len(resized))
		contentType = "image/jpeg"
		ext = ".jpg"
	}

	objectName := fmt.Sprintf("%s/%s%s", strings.Trim(folder, "/"), uuid.NewString(), ext)
	info, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &UploadResult{
		URL:      fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, info.Key),
		PublicID: info.Key,
	}, nil
}

// Delete 删除对象, 对象不存在时返回 not-found
func (s *storageImpl) Delete(ctx context.Context, publicID string, resourceType string) (*DeleteResult, error) {
	if publicID == "" {
		return &DeleteResult{Result: ResultNotFound}, nil
	}
	_, err := s.client.StatObject(ctx, s.bucket, publicID, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == minio.NoSuchKey {
			return &DeleteResult{Result: ResultNotFound}, nil
		}
		return &DeleteResult{Result: ResultError}, fmt.Errorf("failed to stat object: %w", err)
	}
	if err = s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return &DeleteResult{Result: ResultError}, fmt.Errorf("failed to delete file: %w", err)
	}
	log.InfoContext(ctx, "object deleted", "public_id", publicID, "resource_type", resourceType)
	return &DeleteResult{Result: ResultOK}, nil
}

// ResizeImage 缩放图片使最长边不超过 maxSide, 输出 JPEG
func ResizeImage(raw []byte, maxSide int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if maxSide > 0 {
		img = fit(img, maxSide)
	}
	var buf bytes.Buffer
	if err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}
