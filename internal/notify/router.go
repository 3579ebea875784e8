package notify

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/domedit/edit"
)

// Router fans out notifications to all configured sinks. One sink error
// does not block the others — errors are logged and the first
// encountered is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) SendCommit(ctx context.Context, records []edit.Record) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendCommit(ctx, records); err != nil {
			r.logger.Warn("sink: send commit failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) SendRemoval(ctx context.Context, rem edit.Removal) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendRemoval(ctx, rem); err != nil {
			r.logger.Warn("sink: send removal failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
