package rpc

import (
	"context"
	"fmt"
)

// LatestHeight returns the height of the chain head.
func (c *HTTPClient) LatestHeight(ctx context.Context) (int64, error) {
	raw, err := c.Get(ctx, statusPath)
	if err != nil {
		return 0, fmt.Errorf("cannot probe head: %w", err)
	}
	st, err := parse[StatusResult](raw)
	if err != nil {
		return 0, fmt.Errorf("cannot probe head: %w", err)
	}
	if st.SyncInfo.LatestBlockHeight <= 0 {
		return 0, fmt.Errorf("cannot probe head: node reports height %d", st.SyncInfo.LatestBlockHeight)
	}
	return int64(st.SyncInfo.LatestBlockHeight), nil
}

// Block returns the verbatim block payload at height.
func (c *HTTPClient) Block(ctx context.Context, height int64) ([]byte, error) {
	return c.Get(ctx, BlockPath(height))
}

// Genesis returns the verbatim genesis payload.
func (c *HTTPClient) Genesis(ctx context.Context) ([]byte, error) {
	return c.Get(ctx, genesisPath)
}
