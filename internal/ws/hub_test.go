package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patitas/patitas-backend/internal/store"
)

func TestHubBroadcastsChangeEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := store.NewInMemoryCache(nil)
	hub := NewHub(nil, nil)
	hub.Watch(ctx, cache, "animals")
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the registration a moment before publishing.
	time.Sleep(50 * time.Millisecond)
	cache.PublishChange(ctx, store.ChangeEvent{
		Table:    "animals",
		Action:   store.ChangeInsert,
		RecordID: "a1",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event store.ChangeEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "animals", event.Table)
	assert.Equal(t, store.ChangeInsert, event.Action)
	assert.Equal(t, "a1", event.RecordID)
}

func TestSSEStreamsChangeEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := store.NewInMemoryCache(nil)
	server := httptest.NewServer(SSEHandler(cache, "animals", nil))
	defer server.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	time.Sleep(50 * time.Millisecond)
	cache.PublishChange(ctx, store.ChangeEvent{
		Table:    "animals",
		Action:   store.ChangeDelete,
		RecordID: "a2",
	})

	buf := make([]byte, 4096)
	deadline := time.Now().Add(2 * time.Second)
	var got string
	for time.Now().Before(deadline) && !strings.Contains(got, "event: change") {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			got += string(buf[:n])
		}
		if err != nil {
			break
		}
	}

	assert.Contains(t, got, "event: change")
	assert.Contains(t, got, `"record_id":"a2"`)
}
