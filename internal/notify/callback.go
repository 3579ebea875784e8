package notify

import (
	"context"

	"github.com/hazyhaar/domedit/edit"
)

// CommitFunc is called for each committed batch (in-process, zero
// serialisation).
type CommitFunc func(ctx context.Context, records []edit.Record) error

// RemovalFunc is called for each selection removal.
type RemovalFunc func(ctx context.Context, rem edit.Removal) error

// Callback delivers notifications via Go function calls — the path for
// embedding the engine in a larger binary without serialisation overhead.
type Callback struct {
	onCommit  CommitFunc
	onRemoval RemovalFunc
}

// NewCallback creates a Callback sink. Any handler may be nil.
func NewCallback(onCommit CommitFunc, onRemoval RemovalFunc) *Callback {
	return &Callback{onCommit: onCommit, onRemoval: onRemoval}
}

func (c *Callback) SendCommit(ctx context.Context, records []edit.Record) error {
	if c.onCommit != nil {
		return c.onCommit(ctx, records)
	}
	return nil
}

func (c *Callback) SendRemoval(ctx context.Context, rem edit.Removal) error {
	if c.onRemoval != nil {
		return c.onRemoval(ctx, rem)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
