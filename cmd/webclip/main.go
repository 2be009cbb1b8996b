// CLAUDE:SUMMARY CLI entry point for webclip: one-shot capture of URLs or stored targets, HTTP/MCP server, target management.
// Command webclip turns web pages into documents.
//
// Usage:
//
//	webclip capture https://example.com              # classify and process one page
//	webclip -mode capture capture https://a https://b  # screenshot each page to PDF
//	webclip -batch capture https://a https://b       # merge all pages into one PDF
//	webclip capture                                  # process every configured target
//	webclip serve                                    # HTTP API on $PORT
//	webclip targets list | add <id> <url> [mode] | disable <id>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/webclip/report"
	"github.com/hazyhaar/webclip/webclip"
)

const usage = `usage: webclip [flags] <command>

commands:
  capture [url...]                 process URLs, or every target when none is given
  serve                            run the HTTP API
  targets list                     list configured and stored targets
  targets add <id> <url> [mode]    store a target
  targets disable <id>             disable a stored target

flags:
`

func main() {
	configPath := flag.String("config", env("WEBCLIP_CONFIG", ""), "path to webclip.yaml config file")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	mode := flag.String("mode", webclip.ModeAuto, "processing mode: auto, capture, text")
	batch := flag.Bool("batch", false, "capture all URLs and merge them into one PDF")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *mode, *batch, flag.Args()); err != nil {
		logger.Error("webclip: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, mode string, batch bool, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	switch args[0] {
	case "capture":
		return runCapture(ctx, logger, cfg, mode, batch, args[1:])
	case "serve":
		return runServe(ctx, logger, cfg)
	case "targets":
		return runTargets(ctx, logger, cfg, args[1:])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// loadConfig reads the YAML file when given, then applies environment
// overrides.
func loadConfig(path string) (*webclip.Config, error) {
	cfg := webclip.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = webclip.LoadConfigFile(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	cfg.Output.Dir = env("DATA_DIR", cfg.Output.Dir)
	cfg.Server.Port = env("PORT", cfg.Server.Port)
	cfg.Server.JobsDB = env("JOBS_DB", cfg.Server.JobsDB)
	cfg.Server.APIKeyHash = env("API_KEY_HASH", cfg.Server.APIKeyHash)
	cfg.Server.MCPTransport = env("MCP_TRANSPORT", cfg.Server.MCPTransport)
	cfg.Browser.Remote = env("BROWSER_REMOTE", cfg.Browser.Remote)
	if cfg.Server.JobsDB == "" {
		cfg.Server.JobsDB = filepath.Join(cfg.Output.Dir, "webclip.db")
	}
	return cfg, nil
}

// newService opens the job store and builds an unstarted service.
func newService(ctx context.Context, logger *slog.Logger, cfg *webclip.Config, opts ...webclip.Option) (*webclip.Service, func(), error) {
	st, err := webclip.OpenStore(ctx, cfg.Server.JobsDB)
	if err != nil {
		return nil, nil, fmt.Errorf("open job store: %w", err)
	}
	opts = append([]webclip.Option{webclip.WithLogger(logger), webclip.WithStore(st)}, opts...)
	svc, err := webclip.New(cfg, opts...)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := svc.Close(); err != nil {
			logger.Warn("webclip: close", "error", err)
		}
		st.Close()
	}
	return svc, cleanup, nil
}

// processingReport is written next to the documents after a capture run.
type processingReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Mode        string           `json:"mode"`
	Reports     []*report.Report `json:"reports,omitempty"`
	Batch       *report.Batch    `json:"batch,omitempty"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
}

func runCapture(ctx context.Context, logger *slog.Logger, cfg *webclip.Config, mode string, batch bool, urls []string) error {
	svc, cleanup, err := newService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	type job struct{ url, mode string }
	var jobs []job
	for _, u := range urls {
		jobs = append(jobs, job{u, mode})
	}
	if len(jobs) == 0 {
		targets, err := svc.Targets(ctx)
		if err != nil {
			return err
		}
		for _, t := range targets {
			jobs = append(jobs, job{t.URL, t.Mode})
		}
	}
	if len(jobs) == 0 {
		return errors.New("nothing to capture: give URLs or configure targets")
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}

	out := processingReport{GeneratedAt: time.Now().UTC(), Mode: mode}
	if batch {
		urls := make([]string, len(jobs))
		for i, j := range jobs {
			urls[i] = j.url
		}
		out.Mode = "batch"
		b, err := svc.ProcessBatch(ctx, urls)
		if b != nil {
			out.Batch = b
			out.Succeeded, out.Failed = b.Succeeded, b.Failed
		}
		if werr := writeProcessingReport(cfg.Output.Dir, out, logger); werr != nil {
			return werr
		}
		return err
	}

	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		rep, err := svc.Process(ctx, j.url, j.mode)
		if rep == nil {
			logger.Error("webclip: rejected", "url", j.url, "error", err)
			out.Failed++
			continue
		}
		out.Reports = append(out.Reports, rep)
		if err != nil {
			out.Failed++
			continue
		}
		out.Succeeded++
	}
	if err := writeProcessingReport(cfg.Output.Dir, out, logger); err != nil {
		return err
	}
	if out.Succeeded == 0 {
		return fmt.Errorf("all %d urls failed", out.Failed)
	}
	return nil
}

func writeProcessingReport(dir string, r processingReport, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, "processing_report_"+r.GeneratedAt.Format("20060102_150405")+".json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write processing report: %w", err)
	}
	logger.Info("webclip: processing report written", "path", path,
		"succeeded", r.Succeeded, "failed", r.Failed)
	return nil
}

func runTargets(ctx context.Context, logger *slog.Logger, cfg *webclip.Config, args []string) error {
	svc, cleanup, err := newService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch {
	case sub == "list":
		targets, err := svc.Targets(ctx)
		if err != nil {
			return err
		}
		for _, t := range targets {
			fmt.Printf("%s\t%s\t%s\n", t.ID, t.Mode, t.URL)
		}
		return nil
	case sub == "add" && (len(args) == 3 || len(args) == 4):
		t := webclip.Target{ID: args[1], URL: args[2], Mode: webclip.ModeAuto}
		if len(args) == 4 {
			t.Mode = strings.ToLower(args[3])
		}
		return svc.SaveTarget(ctx, t)
	case sub == "disable" && len(args) == 2:
		return svc.DisableTarget(ctx, args[1])
	default:
		flag.Usage()
		return fmt.Errorf("bad targets command: %q", strings.Join(args, " "))
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
