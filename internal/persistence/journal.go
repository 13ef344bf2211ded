package persistence

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Event is one journaled world occurrence.
type Event struct {
	Tick        uint64 `db:"tick" json:"tick"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
}

// Event categories.
const (
	CategoryTick    = "tick"
	CategoryCombat  = "combat"
	CategoryDeath   = "death"
	CategoryAccount = "account"
	CategoryAdmin   = "admin"
	CategoryNPC     = "npc"
)

// Journal is the SQLite side-store: an append-only event log plus a
// key-value metadata table. It is observability state, not the world
// document; losing it never corrupts the world.
type Journal struct {
	conn *sqlx.DB
}

// OpenJournal opens or creates the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{conn: conn}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the underlying connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		at INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// Record appends one event.
func (j *Journal) Record(tick uint64, category, description string) error {
	_, err := j.conn.Exec(
		"INSERT INTO events (tick, at, description, category) VALUES (?, ?, ?, ?)",
		tick, time.Now().Unix(), description, category,
	)
	return err
}

// RecordBatch appends events in one transaction.
func (j *Journal) RecordBatch(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := j.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, e := range events {
		if _, err := tx.Exec(
			"INSERT INTO events (tick, at, description, category) VALUES (?, ?, ?, ?)",
			e.Tick, now, e.Description, e.Category,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns the most recent limit events, newest first.
func (j *Journal) RecentEvents(limit int) ([]Event, error) {
	var events []Event
	err := j.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a metadata key-value pair.
func (j *Journal) SaveMeta(key, value string) error {
	_, err := j.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (j *Journal) GetMeta(key string) (string, error) {
	var value string
	err := j.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
