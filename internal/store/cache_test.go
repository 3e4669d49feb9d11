package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache(nil)
	defer cache.Close()

	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, cache.Set(ctx, "k", payload{Name: "toby"}, time.Minute))

	var got payload
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, "toby", got.Name)

	require.NoError(t, cache.Delete(ctx, "k"))
	assert.ErrorIs(t, cache.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	cache := NewInMemoryCache(nil)
	defer cache.Close()

	var dest map[string]string
	assert.ErrorIs(t, cache.Get(context.Background(), "missing", &dest), ErrCacheMiss)
}

func TestProfileCacheTTLKeys(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache(nil)
	defer cache.Close()

	require.NoError(t, cache.SetProfile(ctx, "u1", map[string]bool{"banned": false}))

	var got map[string]bool
	require.NoError(t, cache.GetProfile(ctx, "u1", &got))
	assert.False(t, got["banned"])

	require.NoError(t, cache.InvalidateProfile(ctx, "u1"))
	assert.ErrorIs(t, cache.GetProfile(ctx, "u1", &got), ErrCacheMiss)
}

func TestPublishChangeFanout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := NewInMemoryCache(nil)
	defer cache.Close()

	// Two independent subscribers each see every event.
	first := cache.SubscribeChanges(ctx, "animals")
	second := cache.SubscribeChanges(ctx, "animals")
	defer first.Close()
	defer second.Close()

	cache.PublishChange(ctx, ChangeEvent{Table: "animals", Action: ChangeInsert, RecordID: "a1"})

	for _, sub := range []*ChangeSubscription{first, second} {
		select {
		case event := <-sub.Events():
			assert.Equal(t, "a1", event.RecordID)
			assert.False(t, event.At.IsZero(), "publish stamps the event time")
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestSubscriptionScopedToTable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := NewInMemoryCache(nil)
	defer cache.Close()

	sub := cache.SubscribeChanges(ctx, "messages")
	defer sub.Close()

	cache.PublishChange(ctx, ChangeEvent{Table: "animals", Action: ChangeInsert, RecordID: "a1"})

	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected cross-table event: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriptionCloseIdempotent(t *testing.T) {
	cache := NewInMemoryCache(nil)
	defer cache.Close()

	sub := cache.SubscribeChanges(context.Background(), "animals")
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}

func TestInMemoryMode(t *testing.T) {
	cache := NewInMemoryCache(nil)
	defer cache.Close()

	assert.True(t, cache.IsInMemoryMode())
	assert.NoError(t, cache.Ping(context.Background()))
}
