package data

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	// DefaultLockTTL 回调去重锁默认有效期
	DefaultLockTTL = 24 * time.Hour
	notifyKeyPrefix = "bepusdt:notify:"
)

// NotifyLocker 回调去重锁，同一笔回调只处理一次
type NotifyLocker interface {
	// Claim 抢占 key，已被占用返回 false
	Claim(ctx context.Context, key string) (bool, error)
	// Release 处理失败时释放，网关重发后可再次处理
	Release(ctx context.Context, key string) error
}

// RedisNotifyLocker 基于 SETNX 的去重锁，多实例共享
type RedisNotifyLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisNotifyLocker(client *redis.Client, ttl time.Duration) *RedisNotifyLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisNotifyLocker{client: client, ttl: ttl}
}

func (l *RedisNotifyLocker) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, notifyKeyPrefix+key, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "抢占回调锁失败: %s", key)
	}
	return ok, nil
}

func (l *RedisNotifyLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, notifyKeyPrefix+key).Err(); err != nil {
		return errors.Wrapf(err, "释放回调锁失败: %s", key)
	}
	return nil
}

// MemoryNotifyLocker 进程内去重锁，单实例使用
type MemoryNotifyLocker struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	claims map[string]time.Time
}

func NewMemoryNotifyLocker(ttl time.Duration) *MemoryNotifyLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &MemoryNotifyLocker{
		ttl:    ttl,
		now:    time.Now,
		claims: make(map[string]time.Time),
	}
}

func (l *MemoryNotifyLocker) Claim(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)
	if _, ok := l.claims[key]; ok {
		return false, nil
	}
	l.claims[key] = now.Add(l.ttl)
	return true, nil
}

func (l *MemoryNotifyLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.claims, key)
	l.mu.Unlock()
	return nil
}

// Len 当前有效锁数量
func (l *MemoryNotifyLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return len(l.claims)
}

func (l *MemoryNotifyLocker) evict(now time.Time) {
	for k, expireAt := range l.claims {
		if !now.Before(expireAt) {
			delete(l.claims, k)
		}
	}
}
