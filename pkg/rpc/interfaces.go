package rpc

import (
	"context"
)

// Client captures the upstream calls used by the sync stages.
type Client interface {
	LatestHeight(ctx context.Context) (int64, error)
	Genesis(ctx context.Context) ([]byte, error)

	// WaitForAvailable blocks until an endpoint can take another request and reserves it.
	WaitForAvailable(ctx context.Context) (Slot, error)
	// WaitForAllFinished blocks until every reserved request completed.
	WaitForAllFinished(ctx context.Context) error
	// Capacity is the maximum number of concurrent requests across endpoints.
	Capacity() int
	Stats() []EndpointStats
}

var _ Client = (*HTTPClient)(nil)
