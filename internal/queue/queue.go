package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/armelgeek/heysprech-api/internal/model"
)

var (
	// ErrEmpty is returned when a blocking dequeue times out with nothing
	// available. Not a fault; the worker loop just polls again.
	ErrEmpty = errors.New("queue empty")

	// ErrUnavailable is returned when Redis cannot be reached. Nothing can
	// be assumed persisted or consumed; callers back off and retry.
	ErrUnavailable = errors.New("queue unavailable")
)

// Entry is the unit placed on a stage queue. It carries everything the next
// stage needs so the job record's result column is written exactly once, at
// completion.
type Entry struct {
	JobID        string          `json:"jobId"`
	ArtifactPath string          `json:"artifactPath"`
	Segments     []model.Segment `json:"segments,omitempty"`
}

// Queue is a named, ordered, durable hand-off channel backed by Redis lists.
// LPUSH/BRPOP gives FIFO per queue and delivers each entry to exactly one of
// any number of competing consumers.
type Queue struct {
	redis *redis.Client
}

func New(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

// Enqueue appends an entry durably. On error the entry must be assumed
// unpersisted.
func (q *Queue) Enqueue(ctx context.Context, name string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := q.redis.LPush(ctx, name, data).Err(); err != nil {
		return fmt.Errorf("%w: lpush %s: %v", ErrUnavailable, name, err)
	}
	return nil
}

// Dequeue blocks up to timeout for an entry, removing and returning exactly
// one. ErrEmpty on timeout, ErrUnavailable on transport failure.
func (q *Queue) Dequeue(ctx context.Context, name string, timeout time.Duration) (*Entry, error) {
	vals, err := q.redis.BRPop(ctx, timeout, name).Result()
	if err == redis.Nil {
		return nil, ErrEmpty
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: brpop %s: %v", ErrUnavailable, name, err)
	}
	// BRPOP returns [key, value]
	if len(vals) != 2 {
		return nil, fmt.Errorf("%w: brpop %s: unexpected reply", ErrUnavailable, name)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(vals[1]), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Depth returns the current entry count. Observability only; never used for
// correctness decisions.
func (q *Queue) Depth(ctx context.Context, name string) (int64, error) {
	n, err := q.redis.LLen(ctx, name).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: llen %s: %v", ErrUnavailable, name, err)
	}
	return n, nil
}
