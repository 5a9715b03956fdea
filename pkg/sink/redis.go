package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/sec-correlate/correlator/internal/alert"
)

// RedisStreamSink appends each alert to a Redis stream via XADD, grounded
// on the teacher's core/redis_client.go connection-setup pattern
// (redis.ParseURL + redis.NewClient) adapted from a DB-isolated key/value
// store to a single append-only stream — the correlator has no use for
// the teacher's DB-isolation scheme since alerts are its only Redis
// traffic.
type RedisStreamSink struct {
	client *redis.Client
	stream string
}

// NewRedisStreamSink connects to redisURL and returns a sink that XADDs
// to stream.
func NewRedisStreamSink(ctx context.Context, redisURL, stream string) (*RedisStreamSink, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("sink: invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("sink: redis ping failed: %w", err)
	}

	return &RedisStreamSink{client: client, stream: stream}, nil
}

func (s *RedisStreamSink) Name() string { return "redis_stream" }

func (s *RedisStreamSink) Emit(ctx context.Context, a alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("sink: marshal alert: %w", err)
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"alert_id": a.ID,
			"rule_id":  a.RuleID,
			"payload":  string(payload),
		},
	}).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisStreamSink) Close() error {
	return s.client.Close()
}
