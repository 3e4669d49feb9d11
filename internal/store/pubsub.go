package store

import (
	"context"
	"sync"
)

// MemMessage mirrors redis.Message for the in-memory pubsub.
type MemMessage struct {
	Channel string
	Payload string
}

// MemPubSub is a single subscriber's view of the in-memory hub.
type MemPubSub struct {
	channels map[string]bool
	msgChan  chan *MemMessage
	closeCh  chan struct{}
	closed   bool
	mu       sync.RWMutex
}

func newMemPubSub(channels []string) *MemPubSub {
	channelMap := make(map[string]bool)
	for _, ch := range channels {
		channelMap[ch] = true
	}

	return &MemPubSub{
		channels: channelMap,
		msgChan:  make(chan *MemMessage, 100),
		closeCh:  make(chan struct{}),
	}
}

// Channel returns the message channel
func (m *MemPubSub) Channel() <-chan *MemMessage {
	return m.msgChan
}

// Close closes the subscription. Safe to call more than once.
func (m *MemPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.closeCh)
		close(m.msgChan)
	}
	return nil
}

func (m *MemPubSub) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// sendMessage delivers a message without blocking; a full buffer drops
// the message rather than stalling the publisher.
func (m *MemPubSub) sendMessage(msg *MemMessage) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed || !m.channels[msg.Channel] {
		return
	}

	select {
	case m.msgChan <- msg:
	default:
	}
}

// PubSubHub fans messages out to in-memory subscribers. Each subscriber
// is independent: no coordination or deduplication between them.
type PubSubHub struct {
	subscribers map[string][]*MemPubSub // channel -> subscribers
	mu          sync.RWMutex
}

func NewPubSubHub() *PubSubHub {
	return &PubSubHub{
		subscribers: make(map[string][]*MemPubSub),
	}
}

// Subscribe registers a new subscriber for the given channels. The
// subscription is torn down when ctx is done or Close is called.
func (h *PubSubHub) Subscribe(ctx context.Context, channels ...string) *MemPubSub {
	pubsub := newMemPubSub(channels)

	h.mu.Lock()
	for _, channel := range channels {
		h.subscribers[channel] = append(h.subscribers[channel], pubsub)
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			pubsub.Close()
		case <-pubsub.closeCh:
		}

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, channel := range channels {
			subscribers := h.subscribers[channel]
			for i, sub := range subscribers {
				if sub == pubsub {
					h.subscribers[channel] = append(subscribers[:i], subscribers[i+1:]...)
					break
				}
			}
			if len(h.subscribers[channel]) == 0 {
				delete(h.subscribers, channel)
			}
		}
	}()

	return pubsub
}

// Publish sends a message to all subscribers of a channel
func (h *PubSubHub) Publish(channel, payload string) {
	h.mu.RLock()
	subscribers := make([]*MemPubSub, len(h.subscribers[channel]))
	copy(subscribers, h.subscribers[channel])
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return
	}

	msg := &MemMessage{
		Channel: channel,
		Payload: payload,
	}

	for _, sub := range subscribers {
		if !sub.isClosed() {
			sub.sendMessage(msg)
		}
	}
}
