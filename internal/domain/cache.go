package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// EventPublisher broadcasts payloads on a named channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// SignalBus provides pub/sub across processes.
type SignalBus interface {
	EventPublisher
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
