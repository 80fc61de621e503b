package web

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nhooyr.io/websocket"
)

// WatchServerHashes subscribes to the directory's registered-hash set over
// a websocket and delivers each pushed revision in full. The channel closes
// when the context is cancelled or the stream breaks; consumers treat any
// delivery as a resync hint, not as matching input.
func (kv *KVClient) WatchServerHashes(ctx context.Context) (<-chan []string, error) {
	wsURL := strings.Replace(kv.baseURL, "http", "ws", 1) + "/watch/user_hashes"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory watch websocket: %w", err)
	}
	// Hash sets of large directories exceed the 32KB default.
	conn.SetReadLimit(1 << 20)
	updates := make(chan []string)
	go kv.readHashUpdates(ctx, conn, updates)
	return updates, nil
}

func (kv *KVClient) readHashUpdates(ctx context.Context, conn *websocket.Conn, updates chan<- []string) {
	log := kv.log.With().Str("websocket_type", "hash_watch").Logger()
	defer close(updates)
	defer func() {
		_ = conn.CloseNow()
	}()
	for {
		msgType, msg, err := conn.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("Directory watch stream closed")
			return
		} else if msgType != websocket.MessageText {
			log.Warn().Stringer("message_type", msgType).Msg("Unexpected directory watch message type")
			return
		}
		var hashes []string
		if err = json.Unmarshal(msg, &hashes); err != nil {
			log.Warn().Err(err).Msg("Failed to parse directory watch payload")
			continue
		}
		select {
		case updates <- hashes:
		case <-ctx.Done():
			return
		}
	}
}
