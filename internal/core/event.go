package core

import "time"

// EventKind is a notification the hub emits to clients.
type EventKind int

const (
	// EventFrame delivers a freshly rendered frame.
	EventFrame EventKind = iota
	// EventError notifies clients about a problem with the live feed.
	EventError
)

// Frame is one rendered view of the channels. Each frame fully replaces the
// previous one.
type Frame struct {
	HTML       string
	Channels   int
	ReceivedAt time.Time
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind  EventKind
	Frame *Frame
	Error *CoreError
}
