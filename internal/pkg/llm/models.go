package llm

import (
	"Sodium/internal/model"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PremiumPrefix 付费模型族
const PremiumPrefix = "gpt"

var ErrModelNotConfigured = errors.New("model memory budget not configured")

// ModelMemory 每个模型检索的历史消息条数
var ModelMemory = map[string]int{
	"gemini-2.0-flash": 20,
	"gemini-2.5-flash": 30,
	"gemini-2.5-pro":   40,
	"gpt-4o-mini":      20,
	"gpt-4o":           30,
	"gpt-4":            24,
	"gpt-4.1":          40,
}

// IsSupported 模型是否在 ModelMemory 中
func IsSupported(modelID string) bool {
	_, ok := ModelMemory[modelID]
	return ok
}

// MemoryLimit 未知模型直接报错, 不使用默认值
func MemoryLimit(modelID string) (int, error) {
	limit, ok := ModelMemory[modelID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrModelNotConfigured, modelID)
	}
	return limit, nil
}

func IsPremium(modelID string) bool {
	return strings.HasPrefix(modelID, PremiumPrefix)
}

// CanUseModel user 为 nil 表示游客
func CanUseModel(user *model.User, modelID string) bool {
	if !IsPremium(modelID) {
		return true
	}
	if user == nil {
		return false
	}
	return user.IsPaid || user.IsAdmin()
}

// SupportedModels 按名称排序
func SupportedModels() []string {
	models := make([]string, 0, len(ModelMemory))
	for m := range ModelMemory {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
