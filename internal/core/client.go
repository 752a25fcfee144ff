package core

import "sync"

const clientBuffer = 8

// Client is a connected browser as seen by the hub.
type Client struct {
	ID     string
	Events chan *Event

	closeOnce sync.Once
}

// NewClient constructs a client with an initialized event buffer.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan *Event, clientBuffer),
	}
}

// deliver queues an event without blocking. It reports false when the
// client is too slow and the event was dropped.
func (c *Client) deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Events) })
}
