package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueueKey - 작업 큐 Redis 키
const QueueKey = "jobs:queue"

// Queue - 작업 ID 큐
type Queue interface {
	// Push - 큐에 추가하고 현재 길이 반환
	Push(ctx context.Context, jobID string) (int64, error)
	// Pop - timeout 동안 대기, 작업이 없으면 "" 반환
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	// Remove - 아직 처리되지 않은 작업 제거, 제거된 개수 반환
	Remove(ctx context.Context, jobID string) (int64, error)
}

// RedisQueue - LPUSH / BRPOP 기반 큐
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue - RedisQueue 생성
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: QueueKey}
}

func (q *RedisQueue) Push(ctx context.Context, jobID string) (int64, error) {
	return q.rdb.LPush(ctx, q.key, jobID).Result()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	// result[0]은 큐 키, result[1]이 job_id
	result, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return result[1], nil
}

func (q *RedisQueue) Remove(ctx context.Context, jobID string) (int64, error) {
	return q.rdb.LRem(ctx, q.key, 0, jobID).Result()
}
