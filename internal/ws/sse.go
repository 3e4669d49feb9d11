package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/store"
)

// SSEHandler streams change events of one table as server-sent events.
// It is the fallback transport for clients that cannot hold a
// websocket open.
func SSEHandler(cache *store.Cache, table string, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub := cache.SubscribeChanges(ctx, table)
		defer sub.Close()

		heartbeat := time.NewTicker(25 * time.Second)
		defer heartbeat.Stop()

		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					if logger != nil {
						logger.Warnw("SSE event marshal failed", "error", err)
					}
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
				flusher.Flush()
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	}
}
