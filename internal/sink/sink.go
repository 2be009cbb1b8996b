// Package sink defines output backends for webclip reports.
package sink

import (
	"context"

	"github.com/hazyhaar/webclip/report"
)

// Sink receives reports as URLs and batches finish. Implementations deliver
// them to stdout, a webhook or an in-process callback.
type Sink interface {
	Send(ctx context.Context, r report.Report) error
	SendBatch(ctx context.Context, b report.Batch) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
