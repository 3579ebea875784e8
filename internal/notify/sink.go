// Package notify defines output backends for edit activity. Committed
// edits and selection removals are delivered to different backends
// (stdout, webhook, SQLite archive, in-process callback).
package notify

import (
	"context"

	"github.com/hazyhaar/domedit/edit"
)

// Sink is the output interface. Implementations deliver commit and
// removal notifications to a backend.
type Sink interface {
	SendCommit(ctx context.Context, records []edit.Record) error
	SendRemoval(ctx context.Context, rem edit.Removal) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
