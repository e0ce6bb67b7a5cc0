package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockProcessedEncoding(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := BlockProcessed{FromHeight: 10, ToHeight: 19, Blocks: 10, Messages: 4, ProcessedAt: at}

	bz, err := ev.MarshalBinary()
	require.NoError(t, err)
	var back BlockProcessed
	require.NoError(t, json.Unmarshal(bz, &back))
	assert.Equal(t, ev, back)

	v := ev.values()
	assert.Equal(t, int64(19), v["to_height"])
	assert.Equal(t, "2024-05-01T12:00:00Z", v["processed_at"])
}
