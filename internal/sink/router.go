package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/webclip/report"
)

// Router fans out reports to all configured sinks. One sink error does not
// block the others: errors are logged and the first encountered is returned.
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

// Add appends a sink.
func (r *Router) Add(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, rep report.Report) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, rep); err != nil {
			r.logger.Warn("sink: send report failed", "url", rep.URL, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) SendBatch(ctx context.Context, b report.Batch) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendBatch(ctx, b); err != nil {
			r.logger.Warn("sink: send batch failed", "batch", b.ID, "error", err)
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
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build creates a sink from its type name. Webhooks need a URL.
func Build(typ, url string, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch typ {
	case "stdout":
		return NewStdout(nil), nil
	case "webhook":
		if url == "" {
			return nil, fmt.Errorf("sink: webhook needs a url")
		}
		return NewWebhook(url, WithWebhookLogger(logger)), nil
	default:
		return nil, fmt.Errorf("sink: unknown type %q", typ)
	}
}
