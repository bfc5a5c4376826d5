package domain

import (
	"context"
	"io"
	"time"
)

// MarketCache is a read-through cache in front of the market store. A miss
// returns ErrNotFound; callers fall back to the store. Implementations own
// their TTL policy.
type MarketCache interface {
	Get(ctx context.Context, id string) (Market, error)
	Set(ctx context.Context, m Market) error
	Invalidate(ctx context.Context, id string) error
}

// SignalBus carries lifecycle events between processes. Publish/Subscribe is
// pub/sub fan-out to live subscribers; the stream methods give durable,
// replayable delivery.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream, lastID string, count int) ([]StreamMessage, error)
}

// StreamMessage is one durable message read from a SignalBus stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// BlobWriter writes archive objects to durable object storage. PutMultipart
// is for payloads large enough to be worth splitting into parts.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobInfo describes one stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobReader reads archive objects back out of object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}
