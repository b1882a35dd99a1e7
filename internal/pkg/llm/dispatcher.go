package llm

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

var (
	ErrQuotaExceeded = errors.New("llm quota exceeded")
	ErrDispatch      = errors.New("llm dispatch failed")
)

// quotaPattern 各供应商额度耗尽时的错误特征, 状态码必须带上下文
var quotaPattern = regexp.MustCompile(`(?i)\bresource[_ ]exhausted\b|\binsufficient_quota\b|\brate_limit_exceeded\b|\bexceeded your current quota\b|\bquota exceeded\b|status code:? 429\b|\berror 429\b|\b429 too many requests\b`)

// Provider 模型供应商适配器
type Provider interface {
	Generate(ctx context.Context, prompt *Prompt, modelID string) (string, error)
}

type route struct {
	prefix   string
	provider Provider
}

// Dispatcher 按模型名前缀路由到供应商, 不做重试
type Dispatcher struct {
	routes   []route
	fallback Provider
}

// NewDispatcher fallback 处理所有未命中前缀的模型
func NewDispatcher(fallback Provider) *Dispatcher {
	return &Dispatcher{fallback: fallback}
}

// Route 注册前缀路由, 先注册先匹配
func (d *Dispatcher) Route(prefix string, provider Provider) *Dispatcher {
	d.routes = append(d.routes, route{prefix: prefix, provider: provider})
	return d
}

func (d *Dispatcher) providerFor(modelID string) Provider {
	for _, r := range d.routes {
		if strings.HasPrefix(modelID, r.prefix) {
			return r.provider
		}
	}
	return d.fallback
}

// Dispatch 结果只有三种: 非空文本, ErrQuotaExceeded, ErrDispatch
func (d *Dispatcher) Dispatch(ctx context.Context, prompt *Prompt, modelID string) (string, error) {
	provider := d.providerFor(modelID)
	if provider == nil {
		return "", fmt.Errorf("%w: no provider for model %s", ErrDispatch, modelID)
	}

	text, err := provider.Generate(ctx, prompt, modelID)
	if err != nil {
		if IsQuotaError(err) {
			log.WarnContext(ctx, "llm quota exceeded", "model", modelID, "err", err)
			return "", fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		log.ErrorContext(ctx, "llm dispatch failed", "model", modelID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		log.ErrorContext(ctx, "llm returned empty text", "model", modelID)
		return "", fmt.Errorf("%w: empty response", ErrDispatch)
	}
	return text, nil
}

// IsQuotaError 判断供应商错误是否为额度耗尽
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) || llms.IsQuotaExceededError(err) || llms.IsRateLimitError(err) {
		return true
	}
	return quotaPattern.MatchString(err.Error())
}
