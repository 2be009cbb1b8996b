// CLAUDE:SUMMARY Service orchestrator: classifies URLs, runs the capture engine through Chrome tabs, writes documents, reports to sinks and the job store.
// Package webclip turns web pages into documents. Each URL is classified
// over plain HTTP, then either converted to Markdown or captured as a
// stitched full-page screenshot through Chrome and written to PDF, with an
// optional OCR text document next to it.
//
// Every processed URL yields a report.Report delivered to the configured
// sinks and recorded in the job store.
package webclip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/hazyhaar/webclip/internal/browser"
	"github.com/hazyhaar/webclip/internal/config"
	"github.com/hazyhaar/webclip/internal/fetcher"
	"github.com/hazyhaar/webclip/internal/sink"
	"github.com/hazyhaar/webclip/internal/store"
	"github.com/hazyhaar/webclip/ocr"
	"github.com/hazyhaar/webclip/pageshot"
)

var (
	ErrInvalidURL      = errors.New("webclip: invalid url")
	ErrInvalidMode     = errors.New("webclip: invalid mode")
	ErrNothingCaptured = errors.New("webclip: nothing captured")
	ErrNoStore         = errors.New("webclip: no job store")
	ErrJobNotFound     = store.ErrNotFound
)

// Processing modes.
const (
	ModeAuto    = "auto"
	ModeCapture = "capture"
	ModeText    = "text"
)

// Service is the top-level orchestrator. Create one per process.
type Service struct {
	cfg    *config.Config
	engine *pageshot.Engine
	mgr    *browser.Manager
	opener Opener
	fetch  *fetcher.Fetcher
	md     *fetcher.Markdown
	sinkR  *sink.Router
	jobs   *store.Store
	ocr    ocr.Recognizer
	logger *slog.Logger
	extra  []Sink

	// gate is read-held by every running job; recycling takes it for
	// writing so Chrome is never restarted under an open tab.
	gate sync.RWMutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOpener replaces Chrome with a custom page opener.
func WithOpener(o Opener) Option {
	return func(s *Service) { s.opener = o }
}

// WithStore records jobs in st. The Service does not close it.
func WithStore(st *store.Store) Option {
	return func(s *Service) { s.jobs = st }
}

// WithSinks adds report sinks.
func WithSinks(sinks ...Sink) Option {
	return func(s *Service) { s.extra = append(s.extra, sinks...) }
}

// WithRecognizer sets the OCR engine used for textualization.
func WithRecognizer(r ocr.Recognizer) Option {
	return func(s *Service) { s.ocr = r }
}

// WithFetcher replaces the HTTP fetcher used for classification.
func WithFetcher(f *fetcher.Fetcher) Option {
	return func(s *Service) { s.fetch = f }
}

// New creates a Service from configuration. Sinks listed in cfg are built
// here; call Start before processing.
func New(cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		cfg:    cfg,
		md:     fetcher.NewMarkdown(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.sinkR = sink.NewRouter(s.logger, s.extra...)

	for _, sc := range cfg.Sinks {
		k, err := sink.Build(sc.Type, sc.URL, s.logger)
		if err != nil {
			return nil, fmt.Errorf("webclip: %w", err)
		}
		s.sinkR.Add(k)
	}
	s.logger.Debug("webclip: report sinks", "count", s.sinkR.Len())

	capCfg := cfg.Capture
	capCfg.Logger = s.logger
	s.engine = pageshot.New(capCfg)

	if s.fetch == nil {
		s.fetch = fetcher.New(
			fetcher.WithTimeout(cfg.Classifier.Timeout),
			fetcher.WithUserAgent(cfg.Classifier.UserAgent),
			fetcher.WithLogger(s.logger),
		)
	}

	if s.opener == nil {
		s.mgr = browser.NewManager(browser.Config{
			RemoteURL:        cfg.Browser.Remote,
			ViewportWidth:    capCfg.ViewportWidth,
			ViewportHeight:   capCfg.ViewportHeight,
			NavTimeout:       cfg.Browser.NavTimeout,
			MemoryLimit:      cfg.Browser.MemoryLimit,
			RecycleInterval:  cfg.Browser.RecycleInterval,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			Stealth:          browser.ParseStealth(cfg.Browser.Stealth),
			XvfbDisplay:      cfg.Browser.XvfbDisplay,
			Logger:           s.logger,
		})
		s.opener = &tabOpener{mgr: s.mgr, opts: browser.TabOptions{
			Format:    browser.Format(cfg.Browser.Format),
			Quality:   cfg.Browser.Quality,
			HideFixed: cfg.Browser.HideFixed == nil || *cfg.Browser.HideFixed,
			Settle:    cfg.Browser.Settle,
		}}
	}
	return s, nil
}

// Start launches Chrome (unless a custom opener is set) and the OCR engine
// when textualization is enabled. A build without OCR only logs.
func (s *Service) Start(ctx context.Context) error {
	if s.mgr != nil {
		if err := s.mgr.Start(ctx); err != nil {
			return fmt.Errorf("webclip: start browser: %w", err)
		}
	}
	if s.cfg.Output.Textualize && s.ocr == nil {
		r, err := ocr.New(s.cfg.Output.OCRLang)
		switch {
		case errors.Is(err, ocr.ErrNotEnabled):
			s.logger.Warn("webclip: textualization requested but OCR is not compiled in")
		case err != nil:
			return fmt.Errorf("webclip: start ocr: %w", err)
		default:
			s.ocr = r
		}
	}
	return nil
}

// Close shuts down Chrome, the OCR engine and the sinks.
func (s *Service) Close() error {
	var errs []error
	if s.mgr != nil {
		errs = append(errs, s.mgr.Close())
	}
	if s.ocr != nil {
		errs = append(errs, s.ocr.Close())
	}
	errs = append(errs, s.sinkR.Close())
	return errors.Join(errs...)
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.cfg }

// Jobs lists recent jobs, newest first.
func (s *Service) Jobs(ctx context.Context, limit int) ([]store.Job, error) {
	if s.jobs == nil {
		return nil, ErrNoStore
	}
	return s.jobs.List(ctx, limit)
}

// Job returns one job with its report.
func (s *Service) Job(ctx context.Context, id string) (*store.Job, error) {
	if s.jobs == nil {
		return nil, ErrNoStore
	}
	return s.jobs.Get(ctx, id)
}

// begin holds the job gate for the duration of a job.
func (s *Service) begin() func() {
	s.gate.RLock()
	return func() {
		s.gate.RUnlock()
		s.maybeRecycle()
	}
}

// maybeRecycle restarts Chrome when due and no job is running.
func (s *Service) maybeRecycle() {
	if s.mgr == nil || !s.gate.TryLock() {
		return
	}
	defer s.gate.Unlock()
	if err := s.mgr.MaybeRecycle(context.Background()); err != nil {
		s.logger.Error("webclip: browser recycle failed", "error", err)
	}
}

func (s *Service) dir(sub string) string {
	return filepath.Join(s.cfg.Output.Dir, sub)
}

func (s *Service) scratchRoot() string {
	if s.cfg.Output.ScratchDir != "" {
		return s.cfg.Output.ScratchDir
	}
	return s.dir(".scratch")
}
