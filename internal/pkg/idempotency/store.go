// Package idempotency 提供基于 Idempotency-Key 的请求结果存储。
//
// 同一用户、同一路由、同一幂等键的请求只会执行一次：第一次请求先写入 pending 标记，
// 处理完成后把响应（状态码 + 原始字节）写回；后续重复请求直接重放存储的响应。
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tsu-tactics/internal/pkg/redis"
)

const pendingMarker = "__pending__"

// ErrInProgress 相同幂等键的请求仍在处理
var ErrInProgress = errors.New("idempotency: request in progress")

// Record 已完成请求的响应快照
type Record struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store 幂等存储
type Store interface {
	// Reserve 尝试占用 key。返回已存储的 Record 表示应直接重放；
	// 返回 ErrInProgress 表示另一个请求持有该 key。
	Reserve(ctx context.Context, key string, lockTTL time.Duration) (*Record, error)
	// Complete 写入最终响应并把 TTL 延长到 ttl
	Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error
	// Release 释放 pending 标记，后续请求可以重新执行
	Release(ctx context.Context, key string) error
}

// Key 构造存储键：idem:<user>:<method>:<route>:<key>
func Key(userID, method, route, idemKey string) string {
	return fmt.Sprintf("idem:%s:%s:%s:%s", userID, method, route, idemKey)
}

// RedisStore Redis 实现，多实例部署共享同一份幂等记录
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 幂等存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, lockTTL time.Duration) (*Record, error) {
	ok, err := s.client.SetIfAbsent(ctx, key, pendingMarker, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.GetString(ctx, key)
	if errors.Is(err, redis.Nil) {
		// pending 标记恰好过期，按正在处理返回，由客户端重试
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotency record: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	return s.client.SetWithTTL(ctx, key, data, ttl)
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.DeleteKey(ctx, key)
}

func decode(raw string) (*Record, error) {
	if raw == pendingMarker {
		return nil, ErrInProgress
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

// MemoryStore 进程内实现，仅用于单实例开发环境和测试
type MemoryStore struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]memoryItem
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore 创建进程内幂等存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, items: make(map[string]memoryItem)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, lockTTL time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if item, ok := s.items[key]; ok && now.Before(item.expiresAt) {
		return decode(item.value)
	}
	s.items[key] = memoryItem{value: pendingMarker, expiresAt: now.Add(lockTTL)}
	return nil, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	s.mu.Lock()
	s.items[key] = memoryItem{value: string(data), expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}
