// CLAUDE:SUMMARY In-process callback sink delivering reports via Go function calls with zero serialization.
package sink

import (
	"context"

	"github.com/hazyhaar/webclip/report"
)

// ReportFunc is called for each finished URL.
type ReportFunc func(ctx context.Context, r report.Report) error

// BatchFunc is called for each finished batch.
type BatchFunc func(ctx context.Context, b report.Batch) error

// Callback delivers reports as in-memory function calls, for embedding
// webclip in another binary.
type Callback struct {
	onReport ReportFunc
	onBatch  BatchFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onReport ReportFunc, onBatch BatchFunc) *Callback {
	return &Callback{onReport: onReport, onBatch: onBatch}
}

func (c *Callback) Send(ctx context.Context, r report.Report) error {
	if c.onReport != nil {
		return c.onReport(ctx, r)
	}
	return nil
}

func (c *Callback) SendBatch(ctx context.Context, b report.Batch) error {
	if c.onBatch != nil {
		return c.onBatch(ctx, b)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
