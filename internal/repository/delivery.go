package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"admission-relay/internal/clock"
	"admission-relay/internal/model"
)

// DeliveryRecord represents one relay attempt in the audit log.
// It holds attempt metadata only, never submission fields.
type DeliveryRecord struct {
	ID              int64     `json:"id"`
	RequestID       string    `json:"request_id"`
	DestinationHost string    `json:"destination_host"`
	Outcome         string    `json:"outcome"`
	StatusCode      int       `json:"status_code"`
	Error           string    `json:"error,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	ReceivedAt      time.Time `json:"received_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// DeliveryRepository handles database operations for delivery records
type DeliveryRepository struct {
	db    *sql.DB
	ttl   time.Duration
	clock clock.Clock
}

// NewDeliveryRepository opens (or creates) the audit log at dbPath
func NewDeliveryRepository(dbPath string, ttl time.Duration, clk clock.Clock) (*DeliveryRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	// Create table if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			destination_host TEXT NOT NULL,
			outcome TEXT NOT NULL,
			status_code INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			received_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_deliveries_received_at ON deliveries(received_at);
		CREATE INDEX IF NOT EXISTS idx_deliveries_expires_at ON deliveries(expires_at);
		CREATE INDEX IF NOT EXISTS idx_deliveries_outcome ON deliveries(outcome);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DeliveryRepository{db: db, ttl: ttl, clock: clk}, nil
}

// Close closes database connection
func (r *DeliveryRepository) Close() error {
	return r.db.Close()
}

// Record saves the outcome of one relay attempt
func (r *DeliveryRepository) Record(result model.DeliveryResult) error {
	receivedAt := result.ReceivedAt.UTC()
	_, err := r.db.Exec(`
		INSERT INTO deliveries (request_id, destination_host, outcome, status_code, error, duration_ms, received_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.RequestID, result.DestinationHost, result.Outcome, result.StatusCode, result.Error,
		result.Duration.Milliseconds(), receivedAt, receivedAt.Add(r.ttl))
	return err
}

// Recent returns the newest non-expired records, newest first
func (r *DeliveryRepository) Recent(limit int) ([]DeliveryRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, request_id, destination_host, outcome, status_code, error, duration_ms, received_at, expires_at
		FROM deliveries
		WHERE expires_at > ?
		ORDER BY received_at DESC, id DESC
		LIMIT ?
	`, r.clock.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]DeliveryRecord, 0, limit)
	for rows.Next() {
		var record DeliveryRecord
		if err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.DestinationHost,
			&record.Outcome,
			&record.StatusCode,
			&record.Error,
			&record.DurationMS,
			&record.ReceivedAt,
			&record.ExpiresAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// CountByOutcome returns active (non-expired) record counts per outcome
func (r *DeliveryRepository) CountByOutcome() (map[string]int64, error) {
	rows, err := r.db.Query(`
		SELECT outcome, COUNT(*) FROM deliveries WHERE expires_at > ? GROUP BY outcome
	`, r.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}

// CleanupExpired removes expired delivery records
func (r *DeliveryRepository) CleanupExpired() (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM deliveries WHERE expires_at <= ?
	`, r.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
