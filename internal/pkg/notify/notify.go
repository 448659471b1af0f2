package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

var (
	ncMu sync.RWMutex
	nc   *nats.Conn
)

// SetNatsConn 设置全局 NATS 连接（由 main 提供）
func SetNatsConn(conn *nats.Conn) {
	ncMu.Lock()
	defer ncMu.Unlock()
	nc = conn
}

// Publisher 战斗事件广播接口
type Publisher interface {
	PublishCombatEvents(ctx context.Context, sessionID string, payload interface{}) error
	PublishCombatEnded(ctx context.Context, payload interface{}) error
}

// NatsPublisher 基于全局 NATS 连接的 Publisher
type NatsPublisher struct{}

// PublishCombatEvents 发布某个战斗会话本次提交的事件
func (NatsPublisher) PublishCombatEvents(ctx context.Context, sessionID string, payload interface{}) error {
	return Publish(ctx, CombatEventsSubject(sessionID), payload)
}

// PublishCombatEnded 发布战斗结束通知，供奖励展示、叙事等下游服务订阅
func (NatsPublisher) PublishCombatEnded(ctx context.Context, payload interface{}) error {
	return Publish(ctx, SubjectCombatEnded, payload)
}

// NopPublisher 关闭广播时使用
type NopPublisher struct{}

func (NopPublisher) PublishCombatEvents(context.Context, string, interface{}) error { return nil }

func (NopPublisher) PublishCombatEnded(context.Context, interface{}) error { return nil }

// Publish 序列化后发布到指定 subject
func Publish(ctx context.Context, subject string, payload interface{}) error {
	ncMu.RLock()
	conn := nc
	ncMu.RUnlock()
	if conn == nil {
		return nil // 没有连接时静默降级
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal combat event failed: %w", err)
	}
	return conn.Publish(subject, data)
}

// CombatEventsSubject 单个战斗会话的事件 subject
func CombatEventsSubject(sessionID string) string {
	return SubjectCombatEventsPrefix + sessionID
}

// Default subjects
const (
	SubjectCombatEventsPrefix = "combat.events."
	SubjectCombatEnded        = "combat.ended"
)
