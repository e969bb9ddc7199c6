package pubsub

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process PubSubClient for tests and single-binary setups.
// Publish blocks until every current subscriber has taken the message or
// has gone away.
type Memory struct {
	mu   sync.Mutex
	subs map[string][]*memorySub
	// Ready is closed after the first Subscribe registers.
	Ready chan struct{}
	once  sync.Once
}

type memorySub struct {
	ch   chan []byte
	done chan struct{}
}

var _ PubSubClient = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{subs: map[string][]*memorySub{}, Ready: make(chan struct{})}
}

func (m *Memory) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.mu.Lock()
	subs := append([]*memorySub(nil), m.subs[channel]...)
	m.mu.Unlock()

	return deliver(ctx, subs, data)
}

// deliver hands data to each subscriber, skipping any that unsubscribed
// after subs was taken.
func deliver(ctx context.Context, subs []*memorySub, data []byte) error {
	for _, s := range subs {
		select {
		case s.ch <- data:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	sub := m.subscribe(channel)
	m.once.Do(func() { close(m.Ready) })

	defer m.unsubscribe(channel, sub)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-sub.ch:
			_ = handler(ctx, data)
		}
	}
}

func (m *Memory) subscribe(channel string) *memorySub {
	sub := &memorySub{ch: make(chan []byte), done: make(chan struct{})}
	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], sub)
	m.mu.Unlock()
	return sub
}

func (m *Memory) unsubscribe(channel string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	close(sub.done)
	subs := m.subs[channel]
	for i, s := range subs {
		if s == sub {
			m.subs[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (m *Memory) Close() error { return nil }
