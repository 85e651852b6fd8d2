package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is a broadcast-only notification emitted by the assembly pipeline
// and the cleaning scheduler, mirroring the teacher's console prints but
// delivered over a socket for a live dashboard (SPEC_FULL.md §2/§6).
type Event struct {
	Kind string `json:"kind"` // "block_sealed" | "block_mutated"
	Hash string `json:"hash,omitempty"`
	Info string `json:"info,omitempty"`
}

// EventBus fans events out to every connected websocket client. A slow or
// absent client never blocks publishers: each subscriber gets a small
// buffered channel and is dropped if it falls behind.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *EventBus) subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *EventBus) unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeEvents upgrades the connection and streams events until the client
// disconnects. No client-to-server messages are honored (SPEC_FULL.md §6).
func (b *EventBus) ServeEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	for e := range ch {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
