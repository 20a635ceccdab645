package port

import (
	"context"
	"time"
)

// ReportCache stores serialized report payloads keyed by a stable string.
// Backed by the in-memory TTL cache or redis depending on deployment.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
