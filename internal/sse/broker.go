// Package sse implements a Server-Sent Events broker that fans note change
// events out to the subscribers of the note's owner.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Event represents an SSE event addressed to one owner.
type Event struct {
	Owner string `json:"-"`
	Type  string `json:"type"`
	Data  any    `json:"data"`
}

type subscription struct {
	owner string
	ch    chan []byte
}

// Broker manages SSE client connections and delivers events to the
// connections of the event's owner.
//
// Concurrency model: a single internal event loop (goroutine) owns the client
// registry. Public methods communicate with this loop through channels, so no
// mutexes are required.
type Broker struct {
	buffer int

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan countReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type countReq struct {
	owner string
	resp  chan int
}

// NewBroker creates a new SSE broker. buffer is the per-client queue length;
// events for a client whose queue is full are dropped.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}

	b := &Broker{
		buffer:        buffer,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan countReq),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	// owner -> set of client channels
	clients := make(map[string]map[chan []byte]struct{})
	owners := make(map[chan []byte]string)

	for {
		select {
		case <-b.stopCh:
			for ch := range owners {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			set, ok := clients[sub.owner]
			if !ok {
				set = make(map[chan []byte]struct{})
				clients[sub.owner] = set
			}
			set[sub.ch] = struct{}{}
			owners[sub.ch] = sub.owner

		case ch := <-b.unsubscribeCh:
			owner, ok := owners[ch]
			if !ok {
				continue
			}
			delete(owners, ch)
			delete(clients[owner], ch)
			if len(clients[owner]) == 0 {
				delete(clients, owner)
			}
			close(ch)

		case event := <-b.publishCh:
			raw, err := encode(event)
			if err != nil {
				continue
			}
			for ch := range clients[event.Owner] {
				select {
				case ch <- raw:
				default:
					// Client buffer full; skip to avoid blocking broker loop.
				}
			}

		case req := <-b.countReqCh:
			if req.owner == "" {
				req.resp <- len(owners)
			} else {
				req.resp <- len(clients[req.owner])
			}
		}
	}
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client for owner and returns its channel.
func (b *Broker) Subscribe(owner string) chan []byte {
	ch := make(chan []byte, b.buffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{owner: owner, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients of owner, or of all
// owners when owner is empty.
func (b *Broker) ClientCount(owner string) int {
	if b.closed.Load() {
		return 0
	}

	req := countReq{owner: owner, resp: make(chan int, 1)}
	select {
	case b.countReqCh <- req:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-req.resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish queues an event for the subscribers of event.Owner.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes note.<kind> with the note id to owner's clients.
func (b *Broker) PublishNoteEvent(owner, kind, noteID string) {
	b.Publish(Event{
		Owner: owner,
		Type:  "note." + kind,
		Data:  map[string]string{"id": noteID},
	})
}

// Serve streams owner's events to the client until the request ends or the
// broker closes.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, owner string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(owner)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
