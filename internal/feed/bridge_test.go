package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/store"
)

func TestBridgeRefreshesOnChange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cache := store.NewInMemoryCache(nil)

	s := NewStore(repo, 8, nil)
	_, err := s.Refresh(ctx)
	require.NoError(t, err)

	list, _, _ := s.Snapshot()
	require.Empty(t, list)

	bridge := NewBridge(ctx, cache, "animals", s, nil, nil)
	defer bridge.Close()

	seedAnimals(t, repo, 1, entities.StatusLost)
	cache.PublishChange(ctx, store.ChangeEvent{
		Table:    "animals",
		Action:   store.ChangeInsert,
		RecordID: "new-row",
	})

	assert.Eventually(t, func() bool {
		list, _, _ := s.Snapshot()
		return len(list) == 1
	}, 2*time.Second, 10*time.Millisecond, "insert event must trigger a page one reload")
}

func TestBridgeRefreshesOnAnyAction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cache := store.NewInMemoryCache(nil)
	seedAnimals(t, repo, 2, entities.StatusAvailable)

	s := NewStore(repo, 8, nil)
	bridge := NewBridge(ctx, cache, "animals", s, nil, nil)
	defer bridge.Close()

	// Delete and update events also reload; the bridge never inspects
	// the action.
	for _, action := range []string{store.ChangeUpdate, store.ChangeDelete} {
		cache.PublishChange(ctx, store.ChangeEvent{
			Table:    "animals",
			Action:   action,
			RecordID: "some-row",
		})
	}

	assert.Eventually(t, func() bool {
		list, _, _ := s.Snapshot()
		return len(list) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBridgeCloseIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cache := store.NewInMemoryCache(nil)

	s := NewStore(repo, 8, nil)
	bridge := NewBridge(ctx, cache, "animals", s, nil, nil)

	require.NoError(t, bridge.Close())
	require.NoError(t, bridge.Close())
	require.NoError(t, bridge.Close())
}
