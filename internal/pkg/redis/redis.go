package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tsu-tactics/internal/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// Nil 键不存在
var Nil = redis.Nil

// Config Redis 配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Client Redis 客户端封装，每个命令都会记录资源指标
type Client struct {
	*redis.Client
	service string
}

// NewClient 创建 Redis 客户端
func NewClient(cfg Config, service string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	return Wrap(rdb, service), nil
}

// Wrap 用已有的 go-redis 客户端构造 Client
func Wrap(rdb *redis.Client, service string) *Client {
	if service == "" {
		service = metrics.GetServiceName()
	}
	return &Client{Client: rdb, service: service}
}

func (c *Client) record(op string, start time.Time, err error) {
	metrics.DefaultResourceMetrics.RecordRedisOperation(op, err == nil || errors.Is(err, redis.Nil), time.Since(start), c.service)
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil):
		metrics.DefaultResourceMetrics.RecordRedisError("nil", c.service)
	case errors.Is(err, context.DeadlineExceeded):
		metrics.DefaultResourceMetrics.RecordRedisError("timeout", c.service)
	default:
		metrics.DefaultResourceMetrics.RecordRedisError("operation_error", c.service)
	}
}

// SetWithTTL 设置键值对，带过期时间
func (c *Client) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := c.Set(ctx, key, value, ttl).Err()
	c.record("SET", start, err)
	return err
}

// SetIfAbsent 仅在键不存在时写入（SET NX），返回是否写入成功
func (c *Client) SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	start := time.Now()
	ok, err := c.SetNX(ctx, key, value, ttl).Result()
	c.record("SETNX", start, err)
	return ok, err
}

// GetString 获取字符串值，键不存在时返回 redis.Nil
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	start := time.Now()
	result, err := c.Get(ctx, key).Result()
	c.record("GET", start, err)
	return result, err
}

// Exists 检查键是否存在
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	n, err := c.Client.Exists(ctx, key).Result()
	c.record("EXISTS", start, err)
	return n > 0, err
}

// DeleteKey 删除键
func (c *Client) DeleteKey(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.Del(ctx, keys...).Err()
	c.record("DEL", start, err)
	return err
}

// IncrWindow 固定窗口计数：INCR 后在首次写入时设置过期时间，返回当前计数和剩余 TTL
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	start := time.Now()
	pipe := c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	_, err := pipe.Exec(ctx)
	c.record("INCR", start, err)
	if err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// RemainingTTL 键的剩余过期时间，键不存在或没有过期时间时返回 0
func (c *Client) RemainingTTL(ctx context.Context, key string) (time.Duration, error) {
	start := time.Now()
	ttl, err := c.PTTL(ctx, key).Result()
	c.record("PTTL", start, err)
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
