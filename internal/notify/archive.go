package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/domedit/edit"
	"github.com/hazyhaar/domedit/idgen"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS edit_archive (
	entry_id   TEXT PRIMARY KEY,
	timestamp  INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	sel_index  INTEGER NOT NULL,
	tag        TEXT NOT NULL,
	selector   TEXT,
	summary    TEXT,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edit_archive_timestamp ON edit_archive(timestamp);
CREATE INDEX IF NOT EXISTS idx_edit_archive_tag ON edit_archive(tag);
`

// ArchiveEntry is one persisted row of edit activity.
type ArchiveEntry struct {
	EntryID   string
	Timestamp time.Time
	Kind      string // "commit" or "removal"
	Index     int
	Tag       string
	Selector  string
	Summary   string
	Payload   string // full record as JSON
}

// Archive persists edit activity to SQLite, giving a page-editing run a
// durable audit trail that survives the browser.
type Archive struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewArchive creates the archive sink, ensuring the schema exists.
func NewArchive(db *sql.DB) (*Archive, error) {
	if _, err := db.Exec(archiveSchema); err != nil {
		return nil, fmt.Errorf("notify: archive schema: %w", err)
	}
	return &Archive{
		db:    db,
		newID: idgen.Prefixed("arch_", idgen.Default),
	}, nil
}

func (a *Archive) SendCommit(ctx context.Context, records []edit.Record) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("notify: archive begin: %w", err)
	}
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("notify: archive marshal: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO edit_archive
			(entry_id, timestamp, kind, sel_index, tag, selector, summary, payload)
			VALUES (?,?,?,?,?,?,?,?)`,
			a.newID(), rec.Timestamp, "commit", rec.Index, rec.Tag, rec.Selector,
			rec.Summary, string(payload)); err != nil {
			tx.Rollback()
			return fmt.Errorf("notify: archive insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("notify: archive commit: %w", err)
	}
	return nil
}

func (a *Archive) SendRemoval(ctx context.Context, rem edit.Removal) error {
	payload, err := json.Marshal(rem)
	if err != nil {
		return fmt.Errorf("notify: archive marshal: %w", err)
	}
	if _, err := a.db.ExecContext(ctx, `INSERT INTO edit_archive
		(entry_id, timestamp, kind, sel_index, tag, selector, summary, payload)
		VALUES (?,?,?,?,?,?,?,?)`,
		a.newID(), rem.Timestamp, "removal", rem.Index, "", "", "",
		string(payload)); err != nil {
		return fmt.Errorf("notify: archive insert: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]*ArchiveEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.QueryContext(ctx, `SELECT entry_id, timestamp, kind,
		sel_index, tag, selector, summary, payload
		FROM edit_archive ORDER BY timestamp DESC, entry_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("notify: archive query: %w", err)
	}
	defer rows.Close()

	var entries []*ArchiveEntry
	for rows.Next() {
		var e ArchiveEntry
		var ts int64
		var selector, summary sql.NullString
		if err := rows.Scan(&e.EntryID, &ts, &e.Kind, &e.Index, &e.Tag,
			&selector, &summary, &e.Payload); err != nil {
			return nil, fmt.Errorf("notify: archive scan: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Selector = selector.String
		e.Summary = summary.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Cleanup deletes entries older than retention.
func (a *Archive) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).UnixMilli()
	result, err := a.db.ExecContext(ctx, "DELETE FROM edit_archive WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("notify: archive cleanup: %w", err)
	}
	return result.RowsAffected()
}

func (a *Archive) Close() error { return nil }
