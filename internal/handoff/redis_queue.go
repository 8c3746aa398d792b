package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultListKey = "handoff:enrich"

// RedisQueue is a Redis-list-backed handoff transport. It is intentionally
// minimal: RPUSH to send, BLPOP to receive. Durability across Redis restarts
// is not required because the staleness sweep re-derives lost triggers from
// the ledger.
type RedisQueue struct {
	client  *redis.Client
	listKey string
}

// NewRedisQueue builds a transport on the given client. An empty listKey
// uses the default.
func NewRedisQueue(client *redis.Client, listKey string) *RedisQueue {
	if listKey == "" {
		listKey = defaultListKey
	}
	return &RedisQueue{client: client, listKey: listKey}
}

func (q *RedisQueue) Send(ctx context.Context, msg Message) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal handoff: %w", err)
	}
	if err := q.client.RPush(ctx, q.listKey, data).Err(); err != nil {
		return fmt.Errorf("push handoff: %w", err)
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context, wait time.Duration) (Message, bool, error) {
	res, err := q.client.BLPop(ctx, wait, q.listKey).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("pop handoff: %w", err)
	}
	// BLPop returns [key, value].
	if len(res) < 2 {
		return Message{}, false, fmt.Errorf("pop handoff: unexpected reply length %d", len(res))
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return Message{}, false, fmt.Errorf("decode handoff: %w", err)
	}
	return msg, true, nil
}

// Depth reports the number of queued triggers, for telemetry.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.listKey).Result()
}
