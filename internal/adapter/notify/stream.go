package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meref-loan-engine/internal/domain/event"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultDedupeTTL = 24 * time.Hour

// Sender delivers one event. Implementations must be safe to call again for
// the same event after a failure.
type Sender interface {
	Send(ctx context.Context, e event.Event) error
}

// StreamSender appends events to a Redis stream. A marker on the event's
// dedupe key, set once the append succeeds, makes a retried delivery of an
// already sent event a no-op. Delivery is at-least-once: a crash between the
// append and the marker lets the event go out again.
type StreamSender struct {
	rdb       *redis.Client
	stream    string
	dedupeTTL time.Duration
}

func NewStreamSender(rdb *redis.Client, stream string, dedupeTTL time.Duration) *StreamSender {
	if dedupeTTL <= 0 {
		dedupeTTL = defaultDedupeTTL
	}
	return &StreamSender{rdb: rdb, stream: stream, dedupeTTL: dedupeTTL}
}

func dedupeKey(e event.Event) string { return "notify:sent:" + e.DedupeKey() }

func (s *StreamSender) Send(ctx context.Context, e event.Event) error {
	key := dedupeKey(e)
	sent, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("dedupe %s: %w", key, err)
	}
	if sent > 0 {
		return nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"notification_id": uuid.NewString(),
			"kind":            string(e.Kind),
			"subject_id":      e.SubjectID,
			"payload":         payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	if err := s.rdb.Set(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), s.dedupeTTL).Err(); err != nil {
		return fmt.Errorf("mark %s sent: %w", key, err)
	}
	return nil
}
