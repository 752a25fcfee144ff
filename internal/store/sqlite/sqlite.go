package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/figaro/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS channel_statuses (
	channel_id TEXT PRIMARY KEY,
	ok         BOOLEAN NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	payload     BLOB NOT NULL,
	received_at DATETIME NOT NULL
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate creates the schema. It is safe to run repeatedly.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== StatusStore implementation ====

// SaveStatus creates or replaces the status of a channel.
func (s *SQLiteStore) SaveStatus(ctx context.Context, status store.ChannelStatus) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}
	query := `
		INSERT INTO channel_statuses (channel_id, ok, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET ok = excluded.ok, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, status.ChannelID, status.Ok, status.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

// GetStatus returns the status of one channel.
func (s *SQLiteStore) GetStatus(ctx context.Context, channelID string) (*store.ChannelStatus, error) {
	query := `
		SELECT channel_id, ok, updated_at
		FROM channel_statuses
		WHERE channel_id = ?
	`
	var status store.ChannelStatus
	err := s.db.QueryRowContext(ctx, query, channelID).Scan(
		&status.ChannelID,
		&status.Ok,
		&status.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("status %s: %w", channelID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query status: %w", err)
	}
	return &status, nil
}

// ListStatuses returns all recorded statuses ordered by channel id.
func (s *SQLiteStore) ListStatuses(ctx context.Context) ([]*store.ChannelStatus, error) {
	query := `
		SELECT channel_id, ok, updated_at
		FROM channel_statuses
		ORDER BY channel_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	statuses := make([]*store.ChannelStatus, 0)
	for rows.Next() {
		var status store.ChannelStatus
		if err := rows.Scan(&status.ChannelID, &status.Ok, &status.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, &status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}
	return statuses, nil
}

// ==== SnapshotStore implementation ====

// SaveSnapshot replaces the stored payload.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, payload []byte, receivedAt time.Time) error {
	query := `
		INSERT INTO snapshots (id, payload, received_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, received_at = excluded.received_at
	`
	if _, err := s.db.ExecContext(ctx, query, payload, receivedAt.UTC()); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the stored payload.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*store.Snapshot, error) {
	query := `SELECT payload, received_at FROM snapshots WHERE id = 1`
	var snap store.Snapshot
	err := s.db.QueryRowContext(ctx, query).Scan(&snap.Payload, &snap.ReceivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return &snap, nil
}
