package workers

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ReplyChannel names the pub/sub channel a connection listens on.
func ReplyChannel(connID string) string { return "voice:reply:" + connID }

// RedisQueue enqueues voice jobs on a stream and subscribes to replies.
type RedisQueue struct {
	rdb    *redis.Client
	stream string
}

func NewRedisQueue(rdb *redis.Client, stream string) *RedisQueue {
	if stream == "" {
		stream = DefaultVoiceStream
	}
	return &RedisQueue{rdb: rdb, stream: stream}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job VoiceJob) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: 10000,
		Approx: true,
		Values: job.values(),
	}).Err()
}

// Subscribe waits for the subscription to be confirmed so no reply published
// afterwards is lost.
func (q *RedisQueue) Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error, error) {
	ps := q.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	return ps.Channel(), ps.Close, nil
}
