package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"nftstake/core"
)

const wsWriteTimeout = 10 * time.Second

// EventUpdateResult is the frame pushed to /ws/events subscribers.
type EventUpdateResult struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	TxHash     string            `json:"txHash"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

func formatEventUpdate(update core.EventUpdate) EventUpdateResult {
	return EventUpdateResult{
		Sequence:   update.Sequence,
		Cursor:     update.Cursor,
		TxHash:     "0x" + hex.EncodeToString(update.TxHash),
		Type:       update.Event.Type,
		Attributes: update.Event.Attributes,
		Timestamp:  update.Timestamp,
	}
}

// handleEventsWS streams committed ledger events. Clients resume by passing
// the last cursor they saw.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	updates, cancel, backlog, err := s.node.SubscribeEvents(r.Context(), cursor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cancel()

	// The listener's write timeout would otherwise cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	s.metrics.ObserveRPC("ws_events", "ok")

	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, updates, backlog); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan core.EventUpdate, backlog []core.EventUpdate) error {
	for _, update := range backlog {
		if err := writeEventUpdate(ctx, conn, update); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEventUpdate(ctx, conn, update); err != nil {
				return err
			}
		}
	}
}

func writeEventUpdate(ctx context.Context, conn *websocket.Conn, update core.EventUpdate) error {
	data, err := json.Marshal(formatEventUpdate(update))
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
