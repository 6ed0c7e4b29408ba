// Package runlog persists the append-only event log and the per-run summary
// counters to a local SQLite database. One row in runs per archival run; one
// row in run_events per logged event.
package runlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mailarc/mailarc/result"
)

// Fixed event identifiers, stable across versions so downstream reporting
// can key on them.
const (
	EventRunStarted      = 1000
	EventRunCompleted    = 1001
	EventMessageArchived = 1100
	EventMessageSkipped  = 1101
	EventMessageDeleted  = 1102
	EventFolderStarted   = 1200
	EventTaskError       = 1500
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	max_items INTEGER NOT NULL DEFAULT 0,
	total_items INTEGER NOT NULL DEFAULT 0,
	skipped_items INTEGER NOT NULL DEFAULT 0,
	success INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS run_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	event_id INTEGER NOT NULL,
	occurred_at TIMESTAMP NOT NULL,
	context TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id);
`

// Log is an open run log bound to one run row.
type Log struct {
	db    *sql.DB
	runID int64
}

// Open opens (creating if needed) the run-log database and starts a new run.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run log schema: %w", err)
	}

	res, err := db.Exec(`INSERT INTO runs (started_at) VALUES (?)`, time.Now().UTC())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start run record: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read run id: %w", err)
	}

	l := &Log{db: db, runID: runID}
	if err := l.Event(EventRunStarted, ""); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Event appends one event row for this run.
func (l *Log) Event(eventID int, context string) error {
	_, err := l.db.Exec(
		`INSERT INTO run_events (run_id, event_id, occurred_at, context) VALUES (?, ?, ?, ?)`,
		l.runID, eventID, time.Now().UTC(), context,
	)
	if err != nil {
		return fmt.Errorf("failed to append run event %d: %w", eventID, err)
	}
	return nil
}

// Finish records the run summary counters and the completion event.
func (l *Log) Finish(res *result.TaskResult) error {
	if err := l.Event(EventRunCompleted, res.Summary()); err != nil {
		return err
	}
	_, err := l.db.Exec(
		`UPDATE runs SET finished_at = ?, max_items = ?, total_items = ?, skipped_items = ?, success = ? WHERE id = ?`,
		time.Now().UTC(), res.MaxItems, res.TotalItems, res.SkippedItems, boolToInt(res.Success), l.runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run record: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// RunID identifies the run row this log writes to.
func (l *Log) RunID() int64 {
	return l.runID
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
