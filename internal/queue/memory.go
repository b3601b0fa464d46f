package queue

import (
	"context"
	"fmt"
	"sync"
)

const defaultQueueCapacity = 1024

// Memory is a channel-backed queue satisfying both Publisher and Consumer.
type Memory struct {
	mu       sync.Mutex
	queues   map[string]chan DeliveryMessage
	capacity int
	closed   bool
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Memory{
		queues:   make(map[string]chan DeliveryMessage),
		capacity: capacity,
	}
}

func (m *Memory) queue(name string) (chan DeliveryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("queue is closed")
	}

	ch, ok := m.queues[name]
	if !ok {
		ch = make(chan DeliveryMessage, m.capacity)
		m.queues[name] = ch
	}
	return ch, nil
}

func (m *Memory) Publish(ctx context.Context, queue string, msg DeliveryMessage) error {
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid delivery message: %w", err)
	}

	ch, err := m.queue(queue)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume pulls messages until the context is cancelled. Handler errors are
// the handler's problem; the message is not redelivered.
func (m *Memory) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	ch, err := m.queue(queue)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
