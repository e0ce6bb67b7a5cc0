package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Publisher receives processing progress. The processor accepts a nil
// Publisher.
type Publisher interface {
	PublishProcessed(ctx context.Context, ev BlockProcessed)
}

// BlockProcessed describes one committed processing window.
type BlockProcessed struct {
	FromHeight  int64     `json:"fromHeight"`
	ToHeight    int64     `json:"toHeight"`
	Blocks      int       `json:"blocks"`
	Messages    int       `json:"messages"`
	ProcessedAt time.Time `json:"processedAt"`
}

// MarshalBinary lets go-redis publish the event as JSON.
func (e BlockProcessed) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e BlockProcessed) values() map[string]interface{} {
	return map[string]interface{}{
		"from_height":  e.FromHeight,
		"to_height":    e.ToHeight,
		"blocks":       e.Blocks,
		"messages":     e.Messages,
		"processed_at": e.ProcessedAt.UTC().Format(time.RFC3339Nano),
	}
}
