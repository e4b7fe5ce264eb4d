// Package display is the minimal external WebSocket adapter named in
// spec.md §6: a read-only fan-out of one session's Stream Chunks and
// Coordination Tracker events to any number of subscribers. It holds no
// coordination logic of its own — the orchestrator decides, this package
// only broadcasts.
package display

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/massgen/massgen/pkg/coordination"
	"github.com/massgen/massgen/pkg/stream"
)

// envelope is the wire shape written to every WebSocket subscriber. Exactly
// one of Chunk / Event is populated, mirroring the Stream Chunk Bus's own
// tagged-union discipline.
type envelope struct {
	Kind  string             `json:"kind"`
	Chunk *stream.Chunk      `json:"chunk,omitempty"`
	Event *coordination.Event `json:"event,omitempty"`
}

// feed is the per-session broadcaster: a set of live subscriber channels
// fed by Hub.Emit and, once attached, a session's Tracker. Tracker events
// are also kept in backlog so a subscriber connecting after the fact still
// sees the full coordination history, not just what happens from then on.
type feed struct {
	mu      sync.Mutex
	subs    map[chan envelope]struct{}
	backlog []envelope
}

func newFeed() *feed {
	return &feed{subs: make(map[chan envelope]struct{})}
}

func (f *feed) broadcast(e envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliverLocked(e)
}

// broadcastEvent is broadcast plus backlog retention, used for Coordination
// Tracker events so late subscribers still receive the full history.
func (f *feed) broadcastEvent(e envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backlog = append(f.backlog, e)
	f.deliverLocked(e)
}

func (f *feed) deliverLocked(e envelope) {
	for ch := range f.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("display: subscriber not keeping up, dropping envelope")
		}
	}
}

func (f *feed) subscribe() (chan envelope, func()) {
	f.mu.Lock()
	ch := make(chan envelope, 128+len(f.backlog))
	for _, e := range f.backlog {
		ch <- e
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}
}

// Hub multiplexes chunk/event broadcasting across sessions and serves
// WebSocket upgrades for live subscribers.
type Hub struct {
	mu       sync.Mutex
	feeds    map[string]*feed
	upgrader websocket.Upgrader
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		feeds: make(map[string]*feed),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) feedFor(sessionID string) *feed {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[sessionID]
	if !ok {
		f = newFeed()
		h.feeds[sessionID] = f
	}
	return f
}

// Emit returns an orchestrator/agentrunner-compatible sink that fans out
// every chunk of sessionID to its live WebSocket subscribers.
func (h *Hub) Emit(sessionID string) func(stream.Chunk) {
	f := h.feedFor(sessionID)
	return func(c stream.Chunk) {
		f.broadcast(envelope{Kind: "chunk", Chunk: &c})
	}
}

// AttachTracker mirrors every event already recorded by t, plus every
// future one, onto sessionID's feed. The returned cancel function stops
// delivery and must be called once the session's orchestrator is done.
func (h *Hub) AttachTracker(sessionID string, t *coordination.Tracker) (cancel func()) {
	f := h.feedFor(sessionID)
	for _, e := range t.Events() {
		e := e
		f.broadcastEvent(envelope{Kind: "event", Event: &e})
	}

	events, trackerCancel := t.Subscribe()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				f.broadcastEvent(envelope{Kind: "event", Event: &e})
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		trackerCancel()
	}
}

// Close removes sessionID's feed, closing out any remaining subscribers.
// Call it once a session's final turn has persisted and no more chunks or
// events will arrive.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[sessionID]
	if !ok {
		return
	}
	delete(h.feeds, sessionID)

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}

// ServeSession upgrades r to a WebSocket connection and streams sessionID's
// chunk/event feed to it until the client disconnects or the request
// context is cancelled. It never reads from the connection: the feed is
// read-only by design, per spec.md §6's external interface contract.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("display: websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	f := h.feedFor(sessionID)
	ch, cancel := f.subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}

// ServeHTTP adapts Hub to http.Handler for a fixed sessionID, convenient
// when registering one mux route per active session.
func (h *Hub) ServeHTTP(sessionID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ServeSession(w, r, sessionID)
	}
}
