package util

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
)

const digits = "0123456789"

// GenerateCode 生成指定长度的数字验证码
func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	upper := big.NewInt(int64(len(digits)))
	for i := range code {
		n, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", err
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}

// PageToLimit 将页码转换为 limit/offset
func PageToLimit(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 50 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}

// ParseUint64 解析路径参数中的ID
func ParseUint64(s string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// PtrUint64 用于将 uint64 转换为 *uint64
func PtrUint64(i uint64) *uint64 {
	return &i
}

// ContainsUint64 判断切片中是否包含某个值
func ContainsUint64(items []uint64, v uint64) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
