package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RunLock 流水线运行锁
// 通过 Redis SETNX 保证同一提交同时最多只有一个流水线实例在处理
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock 创建运行锁
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

// lockKey 构建锁键
func (l *RunLock) lockKey(submissionID string) string {
	return "pipeline:run:" + submissionID
}

// Acquire 尝试获取提交的运行锁
// 返回 false 表示该提交已有流水线在运行（调用方应忽略本次触发）
func (l *RunLock) Acquire(ctx context.Context, submissionID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.lockKey(submissionID), time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// Release 释放提交的运行锁
func (l *RunLock) Release(ctx context.Context, submissionID string) error {
	if err := l.client.Del(ctx, l.lockKey(submissionID)).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
