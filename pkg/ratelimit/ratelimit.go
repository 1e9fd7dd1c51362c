package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket 令牌桶速率限制器
type TokenBucket struct {
	capacity   int       // 桶容量
	tokens     int       // 当前令牌数
	refillRate int       // 每秒补充的令牌数
	lastRefill time.Time // 上次补充时间
	mu         sync.Mutex
}

// NewTokenBucket 创建新的令牌桶
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}
}

// Allow 检查是否允许请求
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 等待直到允许请求（或 ctx 取消）
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}
		waitTime := time.Second
		if tb.refillRate > 0 {
			waitTime = time.Second / time.Duration(tb.refillRate)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// Manager 按端点维护独立的令牌桶
type Manager struct {
	buckets map[string]*TokenBucket
	mu      sync.Mutex
}

// 默认限额：交易所对下单端点限制更严
var defaultLimits = map[string]struct{ capacity, refillRate int }{
	"clob:order:post": {capacity: 5, refillRate: 5},
	"clob:nonce:get":  {capacity: 20, refillRate: 20},
}

// NewManager 创建速率限制管理器
func NewManager() *Manager {
	return &Manager{buckets: make(map[string]*TokenBucket)}
}

// Wait 等待指定端点允许请求
func (m *Manager) Wait(ctx context.Context, key string) error {
	m.mu.Lock()
	tb, ok := m.buckets[key]
	if !ok {
		limits, has := defaultLimits[key]
		if !has {
			limits = struct{ capacity, refillRate int }{capacity: 10, refillRate: 10}
		}
		tb = NewTokenBucket(limits.capacity, limits.refillRate)
		m.buckets[key] = tb
	}
	m.mu.Unlock()
	return tb.Wait(ctx)
}
