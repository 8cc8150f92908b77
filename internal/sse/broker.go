// Package sse streams vault change events to HTTP clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/anota/internal/models"
)

const (
	clientBuffer = 64
	historySize  = 128
)

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type subscription struct {
	ch    chan []byte
	since uint64
}

type frame struct {
	seq uint64
	raw []byte
}

// Broker fans events out to subscribed clients and keeps a short history
// so a reconnecting client can resume from its Last-Event-ID.
//
// The loop goroutine owns the client set, the history and the
// vault.changed throttle. Everything else reaches it through channels.
type Broker struct {
	vaultMin time.Duration

	joinCh  chan subscription
	leaveCh chan chan []byte
	eventCh chan routed
	countCh chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// routed is an event plus whether it counts as a vault change.
type routed struct {
	Event
	change bool
}

// NewBroker creates a broker that sends vault.changed at most once per
// throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		vaultMin: throttle,
		joinCh:   make(chan subscription),
		leaveCh:  make(chan chan []byte),
		eventCh:  make(chan routed, 256),
		countCh:  make(chan chan int),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go b.loop()
	return b
}

// hub is the state owned by the loop goroutine.
type hub struct {
	clients   map[chan []byte]struct{}
	history   []frame
	seq       uint64
	lastVault time.Time
}

func (h *hub) broadcast(e Event) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	h.seq++
	f := frame{seq: h.seq, raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", h.seq, e.Type, payload)}
	if len(h.history) == historySize {
		h.history = h.history[1:]
	}
	h.history = append(h.history, f)

	for ch := range h.clients {
		select {
		case ch <- f.raw:
		default:
			// Slow client; it can resume with Last-Event-ID.
		}
	}
}

// replay queues the frames after since for a new client, as many as fit.
func (h *hub) replay(s subscription) {
	if s.since == 0 {
		return
	}
	for _, f := range h.history {
		if f.seq <= s.since {
			continue
		}
		select {
		case s.ch <- f.raw:
		default:
			return
		}
	}
}

func (b *Broker) loop() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return

		case s := <-b.joinCh:
			h.replay(s)
			h.clients[s.ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}

		case e := <-b.eventCh:
			h.broadcast(e.Event)
			if !e.change {
				continue
			}
			if now := time.Now(); now.Sub(h.lastVault) >= b.vaultMin {
				h.lastVault = now
				h.broadcast(Event{Type: models.EventVaultChanged, Data: map[string]string{}})
			}

		case resp := <-b.countCh:
			resp <- len(h.clients)
		}
	}
}

// Close stops the loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeSince(0)
}

// SubscribeSince adds a client that first receives the retained events
// with an id greater than since.
func (b *Broker) SubscribeSince(since uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.joinCh <- subscription{ch: ch, since: since}:
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
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients as is.
func (b *Broker) Publish(event Event) {
	b.send(routed{Event: event})
}

// Notify sends a change event followed by a throttled vault.changed.
func (b *Broker) Notify(kind string, data any) {
	b.send(routed{Event: Event{Type: kind, Data: data}, change: true})
}

func (b *Broker) send(e routed) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- e:
	case <-b.stopped:
	}
}

// lastEventID reads the resume point from the Last-Event-ID header, or
// the lastEventId query parameter for clients that cannot set headers.
func lastEventID(r *http.Request) uint64 {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		v = r.URL.Query().Get("lastEventId")
	}
	id, _ := strconv.ParseUint(v, 10, 64)
	return id
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.SubscribeSince(lastEventID(r))
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
