package rpc

import (
	"context"
	"encoding/json"
	"strconv"
)

// Tx returns the verbatim transaction result payload for hash.
func (c *HTTPClient) Tx(ctx context.Context, hash string) ([]byte, error) {
	return c.Get(ctx, TxPath(hash))
}

// MsgEvents are the ABCI events emitted by one message, keyed by event type.
type MsgEvents map[string]map[string]string

// Attr returns the first value for eventType.key.
func (e MsgEvents) Attr(eventType, key string) (string, bool) {
	if e == nil {
		return "", false
	}
	attrs, ok := e[eventType]
	if !ok {
		return "", false
	}
	v, ok := attrs[key]
	return v, ok
}

type rawLog struct {
	MsgIndex json.RawMessage `json:"msg_index"`
	Events   []struct {
		Type       string `json:"type"`
		Attributes []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"attributes"`
	} `json:"events"`
}

// ParseLog splits a successful tx log into per-message events. Logs of failed
// transactions are plain strings and yield nil.
func ParseLog(log string) []MsgEvents {
	var entries []rawLog
	if err := json.Unmarshal([]byte(log), &entries); err != nil {
		return nil
	}
	out := make([]MsgEvents, len(entries))
	for i, entry := range entries {
		idx := i
		if len(entry.MsgIndex) > 0 {
			var n int
			if err := json.Unmarshal(entry.MsgIndex, &n); err == nil {
				idx = n
			} else {
				var s string
				if err := json.Unmarshal(entry.MsgIndex, &s); err == nil {
					if n, err := strconv.Atoi(s); err == nil {
						idx = n
					}
				}
			}
		}
		if idx < 0 || idx >= len(out) {
			continue
		}
		evs := MsgEvents{}
		for _, ev := range entry.Events {
			attrs, ok := evs[ev.Type]
			if !ok {
				attrs = map[string]string{}
				evs[ev.Type] = attrs
			}
			for _, a := range ev.Attributes {
				if _, seen := attrs[a.Key]; !seen {
					attrs[a.Key] = a.Value
				}
			}
		}
		out[idx] = evs
	}
	return out
}
