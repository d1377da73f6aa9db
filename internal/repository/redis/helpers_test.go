package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// testClock - управляемые часы для тестов хранилищ
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestKVStore поднимает miniredis и возвращает хранилище поверх него
func newTestKVStore(t *testing.T) (*KVStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv, err := NewKVStore(client, "test", nil)
	require.NoError(t, err)
	return kv, mr
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// newKVStorePair поднимает miniredis с двумя независимыми клиентами.
// Хук на клиенте первого хранилища позволяет вклинить запись второго
// между командами чтения и коммита.
func newKVStorePair(t *testing.T) (primary *KVStore, primaryClient *redis.Client, other *KVStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	primaryClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	otherClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = primaryClient.Close()
		_ = otherClient.Close()
	})

	var err error
	primary, err = NewKVStore(primaryClient, "test", nil)
	require.NoError(t, err)
	other, err = NewKVStore(otherClient, "test", nil)
	require.NoError(t, err)
	return primary, primaryClient, other
}

// onceHook один раз вызывает fn перед первой командой из names
// (или после первой успешной, если after)
type onceHook struct {
	names []string
	after bool
	once  sync.Once
	fn    func()
}

func (h *onceHook) matches(cmd redis.Cmder) bool {
	for _, name := range h.names {
		if cmd.Name() == name {
			return true
		}
	}
	return false
}

func (h *onceHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	if !h.after && h.matches(cmd) {
		h.once.Do(h.fn)
	}
	return ctx, nil
}

func (h *onceHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	if h.after && h.matches(cmd) && cmd.Err() == nil {
		h.once.Do(h.fn)
	}
	return nil
}

func (h *onceHook) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *onceHook) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	return nil
}

// scriptCommands - имена, под которыми уходит вызов скрипта (EVALSHA, затем EVAL при NOSCRIPT)
var scriptCommands = []string{"evalsha", "eval"}
