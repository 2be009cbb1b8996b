package webclip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/webclip/clipdoc"
	"github.com/hazyhaar/webclip/internal/fetcher"
	"github.com/hazyhaar/webclip/internal/store"
	"github.com/hazyhaar/webclip/pageshot"
	"github.com/hazyhaar/webclip/report"
)

// ProcessBatch captures every URL through the page pool, at most
// cfg.Workers at a time, and merges all pages in input order into one PDF
// named <timestamp>_<safe title of the first page>.pdf. A URL that fails
// is reported and left out of the PDF. The batch fails only when no page
// was captured.
func (s *Service) ProcessBatch(ctx context.Context, urls []string) (*report.Batch, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidURL)
	}
	normalized := make([]string, len(urls))
	for i, u := range urls {
		if normalized[i] = fetcher.NormalizeURL(u); normalized[i] == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidURL, i)
		}
	}
	urls = normalized

	done := s.begin()
	defer done()

	b := &report.Batch{
		ID:        store.NewID(),
		Reports:   make([]report.Report, len(urls)),
		StartedAt: report.Now(),
	}
	if s.jobs != nil {
		if _, err := s.jobs.Create(ctx, b.ID, store.KindBatch, "", ModeCapture); err != nil {
			s.logger.Warn("webclip: batch not recorded", "batch", b.ID, "error", err)
		}
	}
	log := s.logger.With("batch", b.ID)
	log.Info("webclip: batch started", "urls", len(urls), "workers", s.cfg.Workers)

	captures := make([]*capture, len(urls))
	for i, u := range urls {
		b.Reports[i] = report.Report{
			ID:       store.NewID(),
			URL:      u,
			Mode:     ModeCapture,
			Strategy: report.StrategyCapture,
			State:    report.StateFailed,
			Error:    "not started",
		}
	}
	defer func() {
		for _, c := range captures {
			if err := c.release(); err != nil {
				log.Warn("webclip: scratch release", "error", err)
			}
		}
		os.Remove(filepath.Join(s.scratchRoot(), b.ID))
	}()

	pageshot.ForEach(ctx, len(urls), s.cfg.Workers, func(ctx context.Context, i int) {
		rep := &b.Reports[i]
		rep.StartedAt = report.Now()
		c, err := s.capture(ctx, rep.URL, i, filepath.Join(b.ID, rep.ID))
		captures[i] = c

		rep.FinishedAt = report.Now()
		if c != nil {
			rep.Title = c.title
			rep.Capture = report.Summarize(c.result)
		}
		switch {
		case err != nil:
			rep.Error = err.Error()
			log.Warn("webclip: batch url failed", "url", rep.URL, "error", err)
		case len(c.pages) == 0:
			rep.Error = ErrNothingCaptured.Error()
		default:
			rep.State, rep.Error = report.StateDone, ""
		}
	})

	err := s.mergeBatch(ctx, b, captures)
	b.FinishedAt = report.Now()
	b.Tally()

	dctx := context.WithoutCancel(ctx)
	if serr := s.sinkR.SendBatch(dctx, *b); serr != nil {
		log.Warn("webclip: batch delivery failed", "error", serr)
	}
	if s.jobs != nil {
		if jerr := s.jobs.Finish(dctx, b.ID, b, err); jerr != nil {
			log.Warn("webclip: batch not updated", "error", jerr)
		}
	}
	if err != nil {
		log.Error("webclip: batch failed", "error", err)
		return b, err
	}
	log.Info("webclip: batch processed", "succeeded", b.Succeeded, "failed", b.Failed,
		"pages", b.Pages, "pdf", b.MergedPDF)
	return b, nil
}

func (s *Service) mergeBatch(ctx context.Context, b *report.Batch, captures []*capture) error {
	var pages []string
	title := ""
	for i, c := range captures {
		if c == nil || b.Reports[i].State != report.StateDone {
			continue
		}
		if title == "" {
			title = c.title
		}
		pages = append(pages, c.pages...)
	}
	if len(pages) == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrNothingCaptured
	}
	if title == "" {
		title = "webpage"
	}

	base := time.Now().Format("20060102_150405") + "_" + clipdoc.SafeName(title)
	out := filepath.Join(s.dir(clipdoc.DocumentsDir), base+".pdf")
	n, size, err := clipdoc.WritePDF(pages, out)
	if err != nil {
		return err
	}
	b.MergedPDF, b.Pages = out, n
	b.Artifacts = append(b.Artifacts, report.Artifact{Kind: "pdf", Path: out, Bytes: size, Pages: n})

	art, err := s.textualize(ctx, base, title, pages)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("webclip: batch textualization failed", "batch", b.ID, "error", err)
	}
	if art != nil {
		b.Artifacts = append(b.Artifacts, *art)
	}
	return nil
}
