package webclip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/webclip/pageshot"
	"github.com/hazyhaar/webclip/report"
)

var article = strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Fox Story</title></head><body><article><h1>Fox</h1><p>` +
			article + `</p></article></body></html>`))
	})
	mux.HandleFunc("/gallery", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Gallery</title></head><body><img src="a.jpg"><img src="b.jpg"></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type recorder struct {
	mu      sync.Mutex
	reports []report.Report
	batches []report.Batch
}

func (r *recorder) sink() Sink {
	return NewCallbackSink(
		func(_ context.Context, rep report.Report) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reports = append(r.reports, rep)
			return nil
		},
		func(_ context.Context, b report.Batch) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.batches = append(r.batches, b)
			return nil
		},
	)
}

func newTestService(t *testing.T) (*Service, *fakeOpener, *recorder) {
	t.Helper()
	st, err := OpenStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	op := &fakeOpener{}
	rec := &recorder{}
	svc, err := New(testConfig(t), WithOpener(op), WithStore(st), WithSinks(rec.sink()))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc, op, rec
}

func assertScratchEmpty(t *testing.T, svc *Service) {
	t.Helper()
	entries, err := os.ReadDir(svc.scratchRoot())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch not released: %d entries left", len(entries))
	}
}

func artifactsOf(rep *report.Report, kind string) []report.Artifact {
	var out []report.Artifact
	for _, a := range rep.Artifacts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func TestProcess_TextToMarkdown(t *testing.T) {
	svc, op, rec := newTestService(t)
	site := newSite(t)

	rep, err := svc.Process(context.Background(), site.URL+"/text", "")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Class != "TEXT" || rep.Strategy != report.StrategyMarkdown {
		t.Errorf("class/strategy = %s/%s", rep.Class, rep.Strategy)
	}
	if rep.Title != "Fox Story" || rep.State != report.StateDone {
		t.Errorf("report = %+v", rep)
	}
	md := artifactsOf(rep, "markdown")
	if len(md) != 1 {
		t.Fatalf("markdown artifacts = %v", rep.Artifacts)
	}
	data, err := os.ReadFile(md[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Fox Story") || !strings.Contains(string(data), "quick brown fox") {
		t.Errorf("markdown = %q", data)
	}
	if len(op.opened) != 0 {
		t.Error("text pages must not open the browser")
	}
	if len(rec.reports) != 1 || rec.reports[0].ID != rep.ID {
		t.Errorf("sink got %d reports", len(rec.reports))
	}

	job, err := svc.Job(context.Background(), rep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.State != report.StateDone {
		t.Errorf("job state = %s", job.State)
	}
}

func TestProcess_ImagesToPDF(t *testing.T) {
	svc, op, _ := newTestService(t)
	site := newSite(t)

	rep, err := svc.Process(context.Background(), site.URL+"/gallery", ModeAuto)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Strategy != report.StrategyCapture {
		t.Errorf("strategy = %s", rep.Strategy)
	}
	pdfs := artifactsOf(rep, "pdf")
	if len(pdfs) != 1 || pdfs[0].Pages != 1 || pdfs[0].Bytes == 0 {
		t.Fatalf("pdf artifacts = %+v", rep.Artifacts)
	}
	if filepath.Dir(pdfs[0].Path) != filepath.Join(svc.cfg.Output.Dir, "documents") {
		t.Errorf("pdf written to %s", pdfs[0].Path)
	}
	if rep.Capture == nil || rep.Capture.PageHeight != 900 || rep.Capture.PlannedRegions != 4 {
		t.Errorf("capture = %+v", rep.Capture)
	}
	if rep.Capture.DroppedRegions != 0 || rep.Capture.Width != 200 {
		t.Errorf("capture = %+v", rep.Capture)
	}
	if op.closed.Load() != 1 {
		t.Errorf("sessions closed = %d, want 1", op.closed.Load())
	}
	assertScratchEmpty(t, svc)
}

func TestProcess_FetchErrorFallsBackToOutlineAndCapture(t *testing.T) {
	svc, _, _ := newTestService(t)
	site := newSite(t)

	rep, err := svc.Process(context.Background(), site.URL+"/missing", ModeAuto)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Class != "PARTIAL" || rep.Strategy != report.StrategyOutline {
		t.Errorf("class/strategy = %s/%s", rep.Class, rep.Strategy)
	}
	if !strings.HasPrefix(rep.Note, "Fetch error:") {
		t.Errorf("note = %q", rep.Note)
	}
	md := artifactsOf(rep, "markdown")
	if len(md) != 1 || len(artifactsOf(rep, "pdf")) != 1 {
		t.Fatalf("artifacts = %+v", rep.Artifacts)
	}
	data, _ := os.ReadFile(md[0].Path)
	if !strings.Contains(string(data), "> [NOTE] Fetch error:") {
		t.Errorf("outline = %q", data)
	}
	// The title comes from the browser tab once the capture ran.
	if rep.Title != "Fake Page" {
		t.Errorf("title = %q", rep.Title)
	}
}

func TestProcess_KeepRaster(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.cfg.Output.KeepRaster = true

	rep, err := svc.Process(context.Background(), "https://example.invalid/page", ModeCapture)
	if err != nil {
		t.Fatal(err)
	}
	pngs := artifactsOf(rep, "png")
	if len(pngs) != 1 {
		t.Fatalf("png artifacts = %+v", rep.Artifacts)
	}
	if _, err := os.Stat(pngs[0].Path); err != nil {
		t.Errorf("kept raster missing: %v", err)
	}
	assertScratchEmpty(t, svc)
}

func TestProcess_BrowserUnavailable(t *testing.T) {
	svc, _, rec := newTestService(t)

	rep, err := svc.Process(context.Background(), "unreachable.example", ModeCapture)
	if !errors.Is(err, pageshot.ErrBrowserUnavailable) {
		t.Fatalf("err = %v, want ErrBrowserUnavailable", err)
	}
	if rep.URL != "http://unreachable.example" {
		t.Errorf("url = %q", rep.URL)
	}
	if rep.State != report.StateFailed || rep.Error == "" {
		t.Errorf("report = %+v", rep)
	}
	if len(rec.reports) != 1 || rec.reports[0].State != report.StateFailed {
		t.Error("failed report not delivered")
	}
	job, err := svc.Job(context.Background(), rep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.State != report.StateFailed {
		t.Errorf("job state = %s", job.State)
	}
	assertScratchEmpty(t, svc)
}

func TestProcess_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Process(context.Background(), "  ", ""); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("empty url: err = %v", err)
	}
	if _, err := svc.Process(context.Background(), "example.com", "video"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("bad mode: err = %v", err)
	}
}

func TestProcessBatch_MergesInOrder(t *testing.T) {
	svc, op, rec := newTestService(t)

	urls := []string{"https://a.example", "https://unreachable.example", "https://c.example"}
	b, err := svc.ProcessBatch(context.Background(), urls)
	if err != nil {
		t.Fatal(err)
	}
	if b.Succeeded != 2 || b.Failed != 1 {
		t.Errorf("tally = %d/%d", b.Succeeded, b.Failed)
	}
	if b.Reports[1].State != report.StateFailed || b.Reports[0].URL != urls[0] || b.Reports[2].URL != urls[2] {
		t.Errorf("reports out of order: %+v", b.Reports)
	}
	if b.Pages != 2 {
		t.Errorf("pages = %d, want 2", b.Pages)
	}
	base := filepath.Base(b.MergedPDF)
	if !strings.HasSuffix(base, "_Fake_Page.pdf") {
		t.Errorf("merged pdf name = %s", base)
	}
	if _, err := os.Stat(b.MergedPDF); err != nil {
		t.Error(err)
	}
	if len(op.opened) != 3 {
		t.Errorf("opened %d pages", len(op.opened))
	}
	if len(rec.batches) != 1 {
		t.Errorf("sink got %d batches", len(rec.batches))
	}
	assertScratchEmpty(t, svc)
}

func TestProcessBatch_NothingCaptured(t *testing.T) {
	svc, _, _ := newTestService(t)
	b, err := svc.ProcessBatch(context.Background(), []string{"unreachable.one", "unreachable.two"})
	if !errors.Is(err, ErrNothingCaptured) {
		t.Fatalf("err = %v, want ErrNothingCaptured", err)
	}
	if b.Failed != 2 || b.MergedPDF != "" {
		t.Errorf("batch = %+v", b)
	}
	if _, err := svc.ProcessBatch(context.Background(), nil); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("empty batch: err = %v", err)
	}
}

func TestTargets_ConfigThenStore(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	svc.cfg.Targets = []Target{{ID: "docs", URL: "https://docs.example", Mode: ModeText}}

	if err := svc.SaveTarget(ctx, Target{ID: "docs", URL: "https://other.example"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.SaveTarget(ctx, Target{ID: "blog", URL: "https://blog.example"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.SaveTarget(ctx, Target{ID: "x", URL: "https://x", Mode: "pdf"}); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("bad mode: err = %v", err)
	}

	targets, err := svc.Targets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 || targets[0].URL != "https://docs.example" || targets[1].ID != "blog" {
		t.Errorf("targets = %+v", targets)
	}

	if err := svc.DisableTarget(ctx, "blog"); err != nil {
		t.Fatal(err)
	}
	targets, _ = svc.Targets(ctx)
	if len(targets) != 1 {
		t.Errorf("targets after disable = %+v", targets)
	}
}

