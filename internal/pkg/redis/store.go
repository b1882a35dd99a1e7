package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// incrScript 自增并在首次创建时设置过期时间
const incrScript = `
local n = redis.call('incr', KEYS[1])
if n == 1 then redis.call('pexpire', KEYS[1], ARGV[1]) end
return n`

// Store 业务使用的 KV 操作
type Store interface {
	SetWithExpiration(ctx context.Context, key string, value any, expiration time.Duration) error
	GetValue(ctx context.Context, key string) (string, error)
	DeleteKey(ctx context.Context, keys ...string) error
	IncrWithExpiration(ctx context.Context, key string, expiration time.Duration) (int64, error)
	TryLock(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	UnLock(ctx context.Context, key string, value any) error
}

type storeImpl struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) Store {
	return &storeImpl{rdb: rdb}
}

// SetWithExpiration 设置键值对并设置过期时间
func (s *storeImpl) SetWithExpiration(ctx context.Context, key string, value any, expiration time.Duration) error {
	return s.rdb.Set(ctx, key, value, expiration).Err()
}

// GetValue 获取字符串类型的值，不存在返回空串
func (s *storeImpl) GetValue(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// DeleteKey 删除键
func (s *storeImpl) DeleteKey(ctx context.Context, keys ...string) error {
	return s.rdb.Del(ctx, keys...).Err()
}

// IncrWithExpiration 计数 +1，窗口从第一次计数开始
func (s *storeImpl) IncrWithExpiration(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	return s.rdb.Eval(ctx, incrScript, []string{key}, expiration.Milliseconds()).Int64()
}

// TryLock 尝试加锁，不重试
func (s *storeImpl) TryLock(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, expiration).Result()
}

// UnLock 释放锁，只删除自己持有的锁
func (s *storeImpl) UnLock(ctx context.Context, key string, value any) error {
	return s.rdb.Eval(ctx, unlockScript, []string{key}, value).Err()
}
