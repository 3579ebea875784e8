package domedit

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/hazyhaar/domedit/edit"
	"github.com/hazyhaar/domedit/internal/notify"
)

// Sink is the output interface for edit activity.
type Sink = notify.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return notify.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return notify.NewWebhook(url, notify.WithWebhookLogger(logger))
}

// NewArchiveSink creates a SQLite audit-trail sink on an open database.
func NewArchiveSink(db *sql.DB) (Sink, error) {
	return notify.NewArchive(db)
}

// CommitFunc is called for each committed batch.
type CommitFunc = notify.CommitFunc

// RemovalFunc is called for each selection removal.
type RemovalFunc = notify.RemovalFunc

// NewCallbackSink creates an in-process callback sink for embedding the
// engine in a larger binary — zero serialisation.
func NewCallbackSink(
	onCommit func(ctx context.Context, records []edit.Record) error,
	onRemoval func(ctx context.Context, rem edit.Removal) error,
) Sink {
	return notify.NewCallback(onCommit, onRemoval)
}
