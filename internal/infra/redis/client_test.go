package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

// fakeRedis keeps stream entries in insertion order.
type fakeRedis struct {
	stream  []redis.XMessage
	maxLen  int64
	latest  string
	streams map[string]bool
}

func (f *fakeRedis) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	if f.streams == nil {
		f.streams = map[string]bool{}
	}
	f.streams[a.Stream] = true
	f.maxLen = a.MaxLen

	values := map[string]interface{}{}
	for k, v := range a.Values.(map[string]interface{}) {
		values[k] = v
	}
	id := strconv.Itoa(len(f.stream)+1) + "-0"
	f.stream = append(f.stream, redis.XMessage{ID: id, Values: values})
	if a.MaxLen > 0 && int64(len(f.stream)) > a.MaxLen {
		f.stream = f.stream[int64(len(f.stream))-a.MaxLen:]
	}

	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal(id)
	return cmd
}

func (f *fakeRedis) XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd {
	var out []redis.XMessage
	for i := len(f.stream) - 1; i >= 0 && int64(len(out)) < count; i-- {
		out = append(out, f.stream[i])
	}
	cmd := redis.NewXMessageSliceCmd(ctx)
	cmd.SetVal(out)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.latest = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Close() error { return nil }

func TestClient_SaveAndRecent(t *testing.T) {
	fake := &fakeRedis{}
	c := newClient(fake, Config{Prefix: "test", StreamLen: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ev := &domain.ConnectionEvent{
			ID:         strconv.Itoa(i),
			Type:       domain.EventRetryScheduled,
			RetryCount: uint(i),
			OccurredAt: time.Unix(int64(i), 0).UTC(),
		}
		if err := c.Save(ctx, ev); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if !fake.streams["test:connection_events"] {
		t.Errorf("expected prefixed stream key, got %v", fake.streams)
	}
	if fake.maxLen != 3 {
		t.Errorf("expected MaxLen 3, got %d", fake.maxLen)
	}

	events, err := c.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after trimming, got %d", len(events))
	}
	if events[0].ID != "4" || events[2].ID != "2" {
		t.Errorf("expected newest first, got %s..%s", events[0].ID, events[2].ID)
	}
	if fake.latest == "" {
		t.Error("latest key not written")
	}
}

func TestClient_SaveRejectsInvalidEvent(t *testing.T) {
	c := newClient(&fakeRedis{}, Config{})
	if err := c.Save(context.Background(), &domain.ConnectionEvent{}); err == nil {
		t.Error("expected validation error")
	}
}

func TestDecodeMessage_Errors(t *testing.T) {
	if _, err := decodeMessage(redis.XMessage{Values: map[string]interface{}{}}); err == nil {
		t.Error("expected error for missing field")
	}
	if _, err := decodeMessage(redis.XMessage{Values: map[string]interface{}{eventField: "{"}}); err == nil {
		t.Error("expected error for bad JSON")
	}
}
