package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ChannelStatus is the last ok/bad decision recorded for a channel.
type ChannelStatus struct {
	ChannelID string
	Ok        bool
	UpdatedAt time.Time
}

// Snapshot is the last feed payload received from upstream.
type Snapshot struct {
	Payload    []byte
	ReceivedAt time.Time
}

// StatusStore handles channel status persistence.
type StatusStore interface {
	// SaveStatus creates or replaces the status of a channel.
	SaveStatus(ctx context.Context, status ChannelStatus) error

	// GetStatus returns the status of one channel or ErrNotFound.
	GetStatus(ctx context.Context, channelID string) (*ChannelStatus, error)

	// ListStatuses returns all recorded statuses ordered by channel id.
	ListStatuses(ctx context.Context) ([]*ChannelStatus, error)
}

// SnapshotStore keeps the most recent feed payload.
type SnapshotStore interface {
	// SaveSnapshot replaces the stored payload.
	SaveSnapshot(ctx context.Context, payload []byte, receivedAt time.Time) error

	// LatestSnapshot returns the stored payload or ErrNotFound.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	StatusStore
	SnapshotStore

	// Close closes the underlying database connection.
	Close() error
}
