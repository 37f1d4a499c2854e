package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/walletledger/internal/models"
)

// Message fields of the stream entry
const (
	FieldKey     = "key"
	FieldPayload = "payload"
)

const defaultMaxLen = 100_000

// RedisStream publishes events to redis streams
// With more than one partition the event goes to '<stream>.<n>', where n is picked by the event key,
// so all events of one transaction id always land in the same partition
type RedisStream struct {
	client     redis.Cmdable
	stream     string
	partitions int
	maxLen     int64
}

func NewRedisStream(client redis.Cmdable, stream string, partitions int) *RedisStream {
	if partitions < 1 {
		partitions = 1
	}

	return &RedisStream{
		client:     client,
		stream:     stream,
		partitions: partitions,
		maxLen:     defaultMaxLen,
	}
}

// Streams lists every stream the publisher may write to
func (p *RedisStream) Streams() []string {
	if p.partitions == 1 {
		return []string{p.stream}
	}

	streams := make([]string, 0, p.partitions)
	for i := range p.partitions {
		streams = append(streams, fmt.Sprintf("%s.%d", p.stream, i))
	}
	return streams
}

func (p *RedisStream) StreamFor(key string) string {
	if p.partitions == 1 {
		return p.stream
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return fmt.Sprintf("%s.%d", p.stream, h.Sum32()%uint32(p.partitions))
}

func (p *RedisStream) Publish(ctx context.Context, event models.TransactionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("can't encode event. Err: %w", err)
	}

	key := event.TransactionID.String()
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.StreamFor(key),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			FieldKey:     key,
			FieldPayload: payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}
