package webclip

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/webclip/internal/sink"
	"github.com/hazyhaar/webclip/report"
)

// Sink is the output interface for webclip reports.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink. Either function may
// be nil.
func NewCallbackSink(
	onReport func(ctx context.Context, r report.Report) error,
	onBatch func(ctx context.Context, b report.Batch) error,
) Sink {
	return sink.NewCallback(onReport, onBatch)
}
