package cache

import (
	"context"
	"time"

	"github.com/havenlabs/haven-core-go/internal/port"
)

// ReportCache adapts InMemory to the report-cache port for deployments
// without Redis.
type ReportCache struct {
	inner *InMemory[[]byte]
}

// NewReportCache creates an in-memory report cache with the given default TTL.
func NewReportCache(defaultTTL time.Duration) *ReportCache {
	return &ReportCache{inner: New[[]byte](defaultTTL)}
}

var _ port.ReportCache = (*ReportCache)(nil)

func (c *ReportCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.inner.Get(key)
}

func (c *ReportCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.inner.SetWithTTL(key, value, ttl)
}
