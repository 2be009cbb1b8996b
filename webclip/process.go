package webclip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/webclip/clipdoc"
	"github.com/hazyhaar/webclip/internal/fetcher"
	"github.com/hazyhaar/webclip/internal/store"
	"github.com/hazyhaar/webclip/ocr"
	"github.com/hazyhaar/webclip/pageshot"
	"github.com/hazyhaar/webclip/report"
)

// capture is one page run whose rasters still live in its scratch
// directory. release removes them.
type capture struct {
	title  string
	result *pageshot.Result
	pages  []string // PDF page rasters, top to bottom
	files  []string // engine output rasters (composite or chunks)

	scratch *pageshot.Scratch
}

func (c *capture) release() error {
	if c == nil || c.scratch == nil {
		return nil
	}
	err := c.scratch.Release()
	os.Remove(c.scratch.Dir())
	return err
}

// Process classifies pageURL and runs the matching strategy:
//
//	TEXT        -> Markdown of the main content
//	IMAGES_ONLY -> stitched screenshot -> PDF
//	PARTIAL     -> outline Markdown plus the screenshot PDF
//
// mode "capture" or "text" forces a strategy. The report is returned even
// on error, with State failed.
func (s *Service) Process(ctx context.Context, pageURL, mode string) (*report.Report, error) {
	pageURL = fetcher.NormalizeURL(pageURL)
	if pageURL == "" {
		return nil, ErrInvalidURL
	}
	if mode == "" {
		mode = ModeAuto
	}
	if mode != ModeAuto && mode != ModeCapture && mode != ModeText {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	done := s.begin()
	defer done()

	rep := &report.Report{
		ID:        store.NewID(),
		URL:       pageURL,
		Mode:      mode,
		State:     report.StateRunning,
		StartedAt: report.Now(),
	}
	if s.jobs != nil {
		if _, err := s.jobs.Create(ctx, rep.ID, store.KindURL, pageURL, mode); err != nil {
			s.logger.Warn("webclip: job not recorded", "url", pageURL, "error", err)
		}
	}

	err := s.run(ctx, rep)
	s.finish(ctx, rep, err)
	return rep, err
}

func (s *Service) run(ctx context.Context, rep *report.Report) error {
	log := s.logger.With("job", rep.ID, "url", rep.URL)

	var c fetcher.Classification
	switch rep.Mode {
	case ModeCapture:
		c = fetcher.Classification{Class: fetcher.ClassImagesOnly, Reason: "forced capture"}
	case ModeText:
		c = s.fetchDocument(ctx, rep.URL)
		if c.Err != nil {
			return c.Err
		}
		c.Class, c.Reason = fetcher.ClassText, "forced text"
	default:
		c = s.fetch.Classify(ctx, rep.URL, s.cfg.Classifier.TextThreshold)
	}
	rep.Class, rep.Reason = string(c.Class), c.Reason
	if c.Doc != nil {
		rep.Title = c.Doc.Title
	}
	log.Info("webclip: classified", "class", c.Class, "reason", c.Reason)

	base := s.baseName(rep)
	switch c.Class {
	case fetcher.ClassText:
		rep.Strategy = report.StrategyMarkdown
		return s.writeArticle(rep, base, c.Doc)
	case fetcher.ClassImagesOnly:
		rep.Strategy = report.StrategyCapture
		return s.captureToPDF(ctx, rep, base)
	default:
		rep.Strategy = report.StrategyOutline
		if c.Err != nil {
			rep.Note = "Fetch error: " + c.Err.Error()
		}
		if err := s.writeOutline(rep, base, c.Doc); err != nil {
			return err
		}
		return s.captureToPDF(ctx, rep, base)
	}
}

func (s *Service) fetchDocument(ctx context.Context, pageURL string) fetcher.Classification {
	page, err := s.fetch.Get(ctx, pageURL)
	if err != nil {
		return fetcher.Classification{Err: err}
	}
	doc, err := fetcher.ParseDocument(page.HTML)
	if err != nil {
		return fetcher.Classification{Page: page, Err: err}
	}
	return fetcher.Classification{Page: page, Doc: doc}
}

func (s *Service) writeArticle(rep *report.Report, base string, doc *fetcher.Document) error {
	md, err := s.md.Article(doc, rep.URL)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir(clipdoc.DocumentsDir), base+".md")
	n, err := clipdoc.WriteMarkdown(path, md)
	if err != nil {
		return err
	}
	rep.Artifacts = append(rep.Artifacts, report.Artifact{Kind: "markdown", Path: path, Bytes: n})
	return nil
}

func (s *Service) writeOutline(rep *report.Report, base string, doc *fetcher.Document) error {
	path := filepath.Join(s.dir(clipdoc.DocumentsDir), base+"_outline.md")
	n, err := clipdoc.WriteMarkdown(path, fetcher.Outline(doc, rep.URL, rep.Note))
	if err != nil {
		return err
	}
	rep.Artifacts = append(rep.Artifacts, report.Artifact{Kind: "markdown", Path: path, Bytes: n})
	return nil
}

// captureToPDF captures the page and writes its PDF, the optional raster
// copies and the optional RTF textualization.
func (s *Service) captureToPDF(ctx context.Context, rep *report.Report, base string) error {
	c, err := s.capture(ctx, rep.URL, 0, rep.ID)
	defer func() {
		if err := c.release(); err != nil {
			s.logger.Warn("webclip: scratch release", "job", rep.ID, "error", err)
		}
	}()
	if c != nil {
		rep.Capture = report.Summarize(c.result)
		if rep.Title == "" {
			rep.Title = c.title
		}
	}
	if err != nil {
		return err
	}
	if len(c.pages) == 0 {
		return fmt.Errorf("%w: every region of %s was dropped", ErrNothingCaptured, rep.URL)
	}

	pdfPath := filepath.Join(s.dir(clipdoc.DocumentsDir), base+".pdf")
	pages, size, err := clipdoc.WritePDF(c.pages, pdfPath)
	if err != nil {
		return err
	}
	rep.Artifacts = append(rep.Artifacts, report.Artifact{Kind: "pdf", Path: pdfPath, Bytes: size, Pages: pages})

	if s.cfg.Output.KeepRaster {
		arts, err := s.keepRasters(base, c.files)
		if err != nil {
			return err
		}
		rep.Artifacts = append(rep.Artifacts, arts...)
	}

	if art, err := s.textualize(ctx, base, rep.Title, c.pages); err != nil {
		s.logger.Warn("webclip: textualization failed", "job", rep.ID, "error", err)
	} else if art != nil {
		rep.Artifacts = append(rep.Artifacts, *art)
	}
	return nil
}

// capture opens the page, runs the engine and slices the composite into
// PDF page rasters. The returned capture is non-nil whenever a scratch
// directory was created, so the caller can release it.
func (s *Service) capture(ctx context.Context, pageURL string, index int, jobID string) (*capture, error) {
	scratch, err := pageshot.NewScratch(filepath.Join(s.scratchRoot(), jobID))
	if err != nil {
		return nil, fmt.Errorf("webclip: scratch: %w", err)
	}
	c := &capture{scratch: scratch}

	sess, err := s.opener.Open(ctx, pageURL)
	if err != nil {
		return c, fmt.Errorf("%w: open %s: %w", pageshot.ErrBrowserUnavailable, pageURL, err)
	}
	defer sess.Close()

	res, err := s.engine.Run(ctx, pageshot.Page{Index: index, Browser: sess, Scratch: scratch})
	if err != nil {
		return c, err
	}
	c.result = res
	c.files = res.Files
	c.title = sess.Title(ctx)

	c.pages, err = pdfPages(res, scratch, index)
	if err != nil {
		return c, err
	}
	return c, nil
}

// pdfPages cuts the composite into page rasters no taller than a PDF page.
// PDF output slices Composite.Band directly and does not use Result.Images;
// the engine's codec chunks only feed keep_raster PNGs.
func pdfPages(res *pageshot.Result, scratch *pageshot.Scratch, index int) ([]string, error) {
	comp := res.Composite
	if comp == nil || comp.Height == 0 {
		return nil, nil
	}
	var paths []string
	for y := 0; y < comp.Height; y += clipdoc.MaxPDFPageHeight {
		path := filepath.Join(scratch.Dir(), fmt.Sprintf("page%03d_pdf%03d.png", index, len(paths)))
		if err := scratch.WritePNG(path, comp.Band(y, y+clipdoc.MaxPDFPageHeight)); err != nil {
			return nil, fmt.Errorf("webclip: pdf page %d: %w", len(paths), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// keepRasters moves the engine output rasters out of scratch.
func (s *Service) keepRasters(base string, files []string) ([]report.Artifact, error) {
	dir := s.dir(clipdoc.RastersDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("webclip: mkdir: %w", err)
	}
	var arts []report.Artifact
	for i, f := range files {
		dst := filepath.Join(dir, fmt.Sprintf("%s_%02d.png", base, i))
		if err := os.Rename(f, dst); err != nil {
			return arts, fmt.Errorf("webclip: keep raster: %w", err)
		}
		var size int64
		if fi, err := os.Stat(dst); err == nil {
			size = fi.Size()
		}
		arts = append(arts, report.Artifact{Kind: "png", Path: dst, Bytes: size})
	}
	return arts, nil
}

// textualize recognises the page rasters and writes them as one RTF
// document. It returns nil without OCR or when disabled.
func (s *Service) textualize(ctx context.Context, base, title string, pages []string) (*report.Artifact, error) {
	if s.ocr == nil || !s.cfg.Output.Textualize {
		return nil, nil
	}
	var paras []string
	for _, p := range pages {
		text, err := s.ocr.Text(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("webclip: ocr failed", "raster", filepath.Base(p), "error", err)
			continue
		}
		paras = append(paras, ocr.Paragraphs(text)...)
	}
	path := filepath.Join(s.dir(clipdoc.TextualizationDir), base+".rtf")
	n, err := clipdoc.WriteRTF(path, title, paras)
	if err != nil {
		return nil, err
	}
	return &report.Artifact{Kind: "rtf", Path: path, Bytes: n}, nil
}

// baseName is the document base name of a report: the safe title, or the
// safe URL without its scheme, suffixed with the job ID prefix.
func (s *Service) baseName(rep *report.Report) string {
	name := rep.Title
	if name == "" {
		name = rep.URL
		if i := strings.Index(name, "://"); i >= 0 {
			name = name[i+3:]
		}
	}
	id := rep.ID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return clipdoc.SafeName(name) + "_" + id
}

// finish stamps the report, then delivers it to sinks and the job store.
// Delivery failures are logged, never returned.
func (s *Service) finish(ctx context.Context, rep *report.Report, err error) {
	rep.FinishedAt = report.Now()
	rep.State = report.StateDone
	if err != nil {
		rep.State = report.StateFailed
		rep.Error = err.Error()
	}

	// Deliver even when the job was cancelled.
	dctx := context.WithoutCancel(ctx)
	if serr := s.sinkR.Send(dctx, *rep); serr != nil {
		s.logger.Warn("webclip: report delivery failed", "job", rep.ID, "error", serr)
	}
	if s.jobs != nil {
		if jerr := s.jobs.Finish(dctx, rep.ID, rep, err); jerr != nil && !errors.Is(jerr, store.ErrNotFound) {
			s.logger.Warn("webclip: job not updated", "job", rep.ID, "error", jerr)
		}
	}

	log := s.logger.With("job", rep.ID, "url", rep.URL, "strategy", rep.Strategy,
		"elapsed", rep.Elapsed(), "artifacts", len(rep.Artifacts))
	if err != nil {
		log.Error("webclip: url failed", "error", err)
		return
	}
	log.Info("webclip: url processed", "degraded", rep.Degraded())
}
