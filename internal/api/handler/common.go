package handler

import (
	"Sodium/internal/api/config"
	"Sodium/internal/api/middleware"
	"Sodium/internal/pkg/response"
	"Sodium/internal/pkg/util"
	"Sodium/internal/service"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageSize = 10 << 20

func viewerOf(c *gin.Context) service.Viewer {
	return service.Viewer{
		UserID: c.GetUint64(middleware.CtxUserID),
		Role:   c.GetString(middleware.CtxRole),
	}
}

// paramID 解析路径参数, 失败时已写入 400
func paramID(c *gin.Context, name string) (uint64, bool) {
	id, ok := util.ParseUint64(c.Param(name))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return 0, false
	}
	return id, true
}

// bindJSON 绑定并校验 JSON 请求体, 失败时已写入响应
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return false
	}
	if err := util.ValidateDTO(obj); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// bindQuery 绑定并校验查询参数
func bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return false
	}
	if err := util.ValidateDTO(obj); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// saveImage 将 multipart 图片落盘到临时目录, 调用方负责 cleanup
func saveImage(c *gin.Context, field string) (*service.ImageFile, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, service.ErrImageRequired
	}
	if header.Size > maxImageSize {
		return nil, nil, service.ErrFileNotSupported
	}

	src, err := header.Open()
	if err != nil {
		return nil, nil, service.ErrParamInvalid
	}
	defer func() { _ = src.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, nil, service.ErrParamInvalid
	}
	mime := http.DetectContentType(head[:n])

	dst, err := os.Create(filepath.Join(tempDir(), uuid.NewString()+filepath.Ext(header.Filename)))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.Remove(dst.Name()) }

	if _, err = dst.Write(head[:n]); err == nil {
		_, err = io.Copy(dst, src)
	}
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return &service.ImageFile{Path: dst.Name(), MIME: mime}, cleanup, nil
}

func tempDir() string {
	if config.Cfg != nil && config.Cfg.Server.TempDir != "" {
		return config.Cfg.Server.TempDir
	}
	return os.TempDir()
}
