package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"nftstake/core/types"
)

const eventHistoryLimit = 2048

// EventUpdate is a committed ledger event as delivered to stream subscribers.
type EventUpdate struct {
	Sequence  uint64
	Cursor    string
	TxHash    []byte
	Event     types.Event
	Timestamp int64
}

type eventStream struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan EventUpdate
	history []EventUpdate
}

func cloneEventUpdate(update EventUpdate) EventUpdate {
	cloned := update
	if len(update.TxHash) > 0 {
		cloned.TxHash = append([]byte(nil), update.TxHash...)
	}
	if update.Event.Attributes != nil {
		attrs := make(map[string]string, len(update.Event.Attributes))
		for k, v := range update.Event.Attributes {
			attrs[k] = v
		}
		cloned.Event.Attributes = attrs
	}
	return cloned
}

// publishReceipt fans the events of a committed receipt out to subscribers.
// Slow subscribers miss updates rather than stalling the ledger.
func (n *Node) publishReceipt(receipt *types.Receipt) {
	if n == nil || receipt == nil || len(receipt.Events) == 0 {
		return
	}
	s := &n.stream
	for _, evt := range receipt.Events {
		s.mu.Lock()
		if s.subs == nil {
			s.subs = make(map[uint64]chan EventUpdate)
		}
		s.seq++
		update := EventUpdate{
			Sequence:  s.seq,
			Cursor:    strconv.FormatUint(s.seq, 10),
			TxHash:    receipt.TxHash,
			Event:     evt,
			Timestamp: receipt.Timestamp,
		}
		s.history = append(s.history, cloneEventUpdate(update))
		if len(s.history) > eventHistoryLimit {
			excess := len(s.history) - eventHistoryLimit
			trimmed := make([]EventUpdate, eventHistoryLimit)
			copy(trimmed, s.history[excess:])
			s.history = trimmed
		}
		// Sends stay under the lock so cancel cannot close a channel mid-send.
		for _, ch := range s.subs {
			select {
			case ch <- cloneEventUpdate(update):
			default:
			}
		}
		s.mu.Unlock()
	}
}

// SubscribeEvents registers a subscriber for committed events published after
// cursor. The backlog holds retained history past the cursor; the returned
// cancel func unregisters the subscriber and closes its channel.
func (n *Node) SubscribeEvents(ctx context.Context, cursor string) (<-chan EventUpdate, func(), []EventUpdate, error) {
	if n == nil {
		return nil, nil, nil, fmt.Errorf("node not initialised")
	}
	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		since = parsed
	}
	updates := make(chan EventUpdate, 32)

	s := &n.stream
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan EventUpdate)
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = updates
	backlog := make([]EventUpdate, 0, len(s.history))
	for _, entry := range s.history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneEventUpdate(entry))
		}
	}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
			s.mu.Unlock()
		})
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return updates, cancel, backlog, nil
}
