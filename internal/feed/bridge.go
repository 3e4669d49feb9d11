package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/metrics"
	"github.com/patitas/patitas-backend/internal/store"
)

// Bridge ties a feed store to the change stream of its table. Any
// change event, regardless of action or whether the changed row matches
// the active filter, triggers a full refresh of page one. Coarse, but a
// refresh is cheap and the stream carries no row payload to be smarter
// with.
type Bridge struct {
	sub     *store.ChangeSubscription
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewBridge subscribes to the table's change channel and refreshes the
// store on every event until Close is called.
func NewBridge(ctx context.Context, cache *store.Cache, table string, feedStore *Store, m *metrics.Metrics, logger *zap.SugaredLogger) *Bridge {
	ctx, cancel := context.WithCancel(ctx)
	b := &Bridge{
		sub:     cache.SubscribeChanges(ctx, table),
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logger,
		metrics: m,
	}

	go func() {
		defer close(b.done)
		for event := range b.sub.Events() {
			if _, err := feedStore.Refresh(ctx); err != nil {
				if logger != nil {
					logger.Warnw("Feed refresh after change event failed",
						"table", event.Table, "action", event.Action, "error", err)
				}
				continue
			}
			if m != nil {
				m.RecordFeedRefresh(ctx, event.Table)
			}
		}
	}()

	return b
}

// Close tears down the subscription. Safe to call more than once; the
// underlying channel is removed exactly once.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		b.cancel()
		err = b.sub.Close()
		<-b.done
	})
	return err
}
