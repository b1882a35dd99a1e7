package service

import (
	"Sodium/internal/pkg/consts"
	"Sodium/internal/pkg/redis"
	"Sodium/internal/pkg/util"
	"context"
	"fmt"
	"time"
)

const otpLength = 6

// OTPService 一次性验证码, 按 context 区分用途
type OTPService interface {
	Generate(ctx context.Context, userID uint64, purpose string) (string, error)
	Verify(ctx context.Context, userID uint64, purpose, code string) error
}

type OTPServiceImpl struct {
	store       redis.Store
	ttl         time.Duration
	maxAttempts int
}

func NewOTPService(store redis.Store, ttl time.Duration, maxAttempts int) OTPService {
	return &OTPServiceImpl{
		store:       store,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

// Generate 生成新验证码并清空尝试次数
func (s *OTPServiceImpl) Generate(ctx context.Context, userID uint64, purpose string) (string, error) {
	code, err := util.GenerateCode(otpLength)
	if err != nil {
		return "", err
	}
	codeKey, attemptsKey := otpKeys(userID, purpose)
	if err = s.store.SetWithExpiration(ctx, codeKey, code, s.ttl); err != nil {
		return "", err
	}
	if err = s.store.DeleteKey(ctx, attemptsKey); err != nil {
		return "", err
	}
	return code, nil
}

// Verify 每次校验先累加尝试次数, 超过上限后即使验证码正确也拒绝
func (s *OTPServiceImpl) Verify(ctx context.Context, userID uint64, purpose, code string) error {
	codeKey, attemptsKey := otpKeys(userID, purpose)

	attempts, err := s.store.IncrWithExpiration(ctx, attemptsKey, s.ttl)
	if err != nil {
		return err
	}
	if attempts > int64(s.maxAttempts) {
		return ErrOTPTooManyAttempts
	}

	stored, err := s.store.GetValue(ctx, codeKey)
	if err != nil {
		return err
	}
	if stored == "" {
		return ErrOTPExpired
	}
	if stored != code {
		return ErrOTPIncorrect
	}

	return s.store.DeleteKey(ctx, codeKey, attemptsKey)
}

func otpKeys(userID uint64, purpose string) (string, string) {
	suffix := fmt.Sprintf("%s:%d", purpose, userID)
	return consts.OTPCodeKey + suffix, consts.OTPAttemptsKey + suffix
}
