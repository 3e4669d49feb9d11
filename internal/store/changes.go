package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Change actions mirror the hosted backend's row-level events.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// ChangeEvent is the row-level change notification delivered to every
// subscriber of a table's change channel.
type ChangeEvent struct {
	Table    string    `json:"table"`
	Action   string    `json:"action"`
	RecordID string    `json:"record_id"`
	At       time.Time `json:"at"`
}

// ChangeChannel names the pubsub channel carrying a table's changes.
func ChangeChannel(table string) string {
	return "pat:changes:" + table
}

// PublishChange notifies every subscriber that a row in the table was
// inserted, updated, or deleted. Delivery is fire-and-forget: a failed
// publish is logged but never fails the originating write.
func (c *Cache) PublishChange(ctx context.Context, event ChangeEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	if err := c.Publish(ctx, ChangeChannel(event.Table), event); err != nil && c.logger != nil {
		c.logger.Warnw("Change event publish failed", "table", event.Table, "action", event.Action, "error", err)
	}
}

// ChangeSubscription is one independent subscriber to a table's change
// stream. Multiple subscriptions on the same table each receive every
// event; Close tears the subscription down exactly once.
type ChangeSubscription struct {
	events  chan ChangeEvent
	closeFn func() error
	once    sync.Once
}

func (s *ChangeSubscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *ChangeSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.closeFn()
	})
	return err
}

// SubscribeChanges opens a change subscription for one table. Events
// arrive on Events() until Close is called or ctx is done.
func (c *Cache) SubscribeChanges(ctx context.Context, table string) *ChangeSubscription {
	channel := ChangeChannel(table)
	events := make(chan ChangeEvent, 32)

	if c.client != nil {
		pubsub := c.client.Subscribe(ctx, channel)
		go func() {
			defer close(events)
			for msg := range pubsub.Channel() {
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					if c.logger != nil {
						c.logger.Warnw("Malformed change event", "channel", msg.Channel, "error", err)
					}
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}()
		return &ChangeSubscription{
			events:  events,
			closeFn: pubsub.Close,
		}
	}

	pubsub := c.pubsubHub.Subscribe(ctx, channel)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return &ChangeSubscription{
		events:  events,
		closeFn: pubsub.Close,
	}
}
