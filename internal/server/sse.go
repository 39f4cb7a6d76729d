package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/events"
)

const (
	// streamBacklog is the number of recent events kept for Last-Event-ID replay.
	streamBacklog = 256

	streamKeepalive = 15 * time.Second
)

// streamEvent is one envelope delivered to stream clients.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte // JSON-encoded events.Envelope
}

// eventHub fans out published events to GET /v1/events/stream clients.
type eventHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	nextID  uint64
	backlog []streamEvent
}

type streamClient struct {
	topics []string // NATS-style patterns; empty = all
	ch     chan streamEvent
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*streamClient]struct{})}
}

// broadcast records the envelope and hands it to every matching client.
// Slow clients miss events rather than blocking the publisher.
func (h *eventHub) broadcast(env *events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Warn("failed to encode stream event", "topic", env.Topic, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	evt := streamEvent{ID: h.nextID, Topic: env.Topic, Data: data}
	h.backlog = append(h.backlog, evt)
	if len(h.backlog) > streamBacklog {
		h.backlog = h.backlog[len(h.backlog)-streamBacklog:]
	}
	for c := range h.clients {
		if !c.matches(env.Topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *eventHub) subscribe(topics []string) *streamClient {
	c := &streamClient{topics: topics, ch: make(chan streamEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *eventHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns the buffered events newer than lastID, oldest first.
func (h *eventHub) since(lastID uint64) []streamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []streamEvent
	for _, evt := range h.backlog {
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

func (c *streamClient) matches(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchTopic(p, topic) {
			return true
		}
	}
	return false
}

// matchTopic matches a dot-separated topic against a NATS-style pattern:
// "*" matches one segment, a trailing ">" matches one or more.
func matchTopic(pattern, topic string) bool {
	pp := strings.Split(pattern, ".")
	tp := strings.Split(topic, ".")
	for i, seg := range pp {
		if seg == ">" {
			return i < len(tp)
		}
		if i >= len(tp) || (seg != "*" && seg != tp[i]) {
			return false
		}
	}
	return len(pp) == len(tp)
}

// handleEventStream handles GET /v1/events/stream?topics=a,b (server-sent events).
func (s *DashboardServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	client := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, evt := range s.hub.since(lastID) {
			if client.matches(evt.Topic) {
				writeStreamEvent(w, evt)
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, evt streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
