package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StreamMaxLen bounds each refresh stream; trimming is approximate.
const StreamMaxLen = 1000

// RefreshEvent announces a completed fixture refresh.
type RefreshEvent struct {
	ID           string      `json:"id"`
	League       string      `json:"league"`
	Season       string      `json:"season"`
	Teams        int         `json:"teams"`
	Entries      int         `json:"entries"`
	SkippedCount int         `json:"skipped_count"`
	RankingError string      `json:"ranking_error,omitempty"`
	GeneratedAt  time.Time   `json:"generated_at"`
	Payload      interface{} `json:"payload,omitempty"`
}

// StreamName is the Redis stream a league's refresh events go to.
func StreamName(league string) string {
	return fmt.Sprintf("fixtures.refreshed.%s", league)
}

// RedisPublisher publishes refresh events to Redis streams
type RedisPublisher struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisPublisher creates a publisher from an existing client
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		now:    time.Now,
	}
}

// PublishRefresh appends the event to StreamName(event.League).
func (rp *RedisPublisher) PublishRefresh(ctx context.Context, event RefreshEvent) error {
	args, err := rp.xaddArgs(event)
	if err != nil {
		return err
	}
	return rp.client.XAdd(ctx, args).Err()
}

func (rp *RedisPublisher) xaddArgs(event RefreshEvent) (*redis.XAddArgs, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding refresh event: %w", err)
	}

	return &redis.XAddArgs{
		Stream: StreamName(event.League),
		MaxLen: StreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": rp.now().Unix(),
		},
	}, nil
}
