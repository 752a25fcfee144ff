package core

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/metrics"
)

// Hub fans rendered frames out to every connected browser. All client
// bookkeeping happens on the goroutine running Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	done       chan struct{}

	clients map[*Client]struct{}
	latest  atomic.Pointer[Frame]

	metrics metrics.Collector
	log     *zerolog.Logger
}

// NewHub creates a hub. A nil collector or logger disables the concern.
func NewHub(collector metrics.Collector, logger *zerolog.Logger) *Hub {
	if collector == nil {
		collector = metrics.Nop()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		metrics:    collector,
		log:        logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. On exit
// every client's event channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			delete(h.clients, c)
			c.close()
		}
		h.metrics.SetBrowsers(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.SetBrowsers(len(h.clients))
			if frame := h.latest.Load(); frame != nil {
				c.deliver(&Event{Kind: EventFrame, Frame: frame})
			}
			h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; !ok {
				continue
			}
			delete(h.clients, c)
			c.close()
			h.metrics.SetBrowsers(len(h.clients))
			h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client unregistered")
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

func (h *Hub) fanOut(ev *Event) {
	if ev.Kind == EventFrame {
		if prev := h.latest.Load(); prev != nil && prev.HTML == ev.Frame.HTML {
			return
		}
		h.latest.Store(ev.Frame)
		h.metrics.IncFramesPublished()
	}
	for c := range h.clients {
		if !c.deliver(ev) {
			// Drop if slow consumer.
			h.log.Warn().Str("client_id", c.ID).Msg("client too slow, event dropped")
		}
	}
}

// RegisterClient adds a client. It receives the latest frame right away.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient removes a client and closes its event channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish broadcasts a frame. A frame identical to the previous one is
// not sent again.
func (h *Hub) Publish(ctx context.Context, frame Frame) error {
	return h.send(ctx, &Event{Kind: EventFrame, Frame: &frame})
}

// Alert broadcasts an error event without touching the latest frame.
func (h *Hub) Alert(ctx context.Context, err *CoreError) error {
	return h.send(ctx, &Event{Kind: EventError, Error: err})
}

func (h *Hub) send(ctx context.Context, ev *Event) error {
	select {
	case h.broadcast <- ev:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the most recently published frame, or nil.
func (h *Hub) Latest() *Frame {
	return h.latest.Load()
}
