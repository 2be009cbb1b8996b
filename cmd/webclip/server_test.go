package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/webclip/pageshot"
	"github.com/hazyhaar/webclip/report"
	"github.com/hazyhaar/webclip/webclip"
)

// stripes is a 900px page of horizontal lines every 20 rows.
type stripes struct{ y int }

func (s *stripes) ScrollTo(_ context.Context, y int) error {
	s.y = y
	return nil
}

func (s *stripes) SnapshotViewport(context.Context) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, 200, 300))
	top := min(s.y, 600)
	for r := 0; r < 300; r++ {
		shade := uint8(0xff)
		if (top+r)%20 == 0 {
			shade = 0x20
		}
		for x := 0; x < 200; x++ {
			img.Pix[img.PixOffset(x, r)] = shade
		}
	}
	return img, nil
}

func (s *stripes) ContentBoxes(context.Context) ([]pageshot.ContentBox, error) { return nil, nil }
func (s *stripes) PageHeight(context.Context) (int, error) { return 900, nil }
func (s *stripes) Title(context.Context) string { return "Stripes" }
func (s *stripes) Close() error { return nil }

type stripesOpener struct{}

func (stripesOpener) Open(context.Context, string) (webclip.Session, error) { return &stripes{}, nil }

func newTestServer(t *testing.T, apiKeyHash string) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := webclip.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Capture.ViewportWidth = 200
	cfg.Capture.ViewportHeight = 300
	cfg.Capture.OverlapMargin = 60
	cfg.Capture.SearchRadius = -1
	cfg.Capture.SettleDelay = -1
	cfg.Server.APIKeyHash = apiKeyHash

	st, err := webclip.OpenStore(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	svc, err := webclip.New(cfg, webclip.WithLogger(logger), webclip.WithStore(st), webclip.WithOpener(stripesOpener{}))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(newRouter(svc, cfg, nil, logger))
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
		st.Close()
	})
	return srv
}

func do(t *testing.T, method, url, key string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, "")
	resp := do(t, "GET", srv.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestRequireKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, string(hash))

	tests := []struct {
		key  string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"wrong", http.StatusUnauthorized},
		{"s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		if resp := do(t, "GET", srv.URL+"/v1/jobs", tt.key, nil); resp.StatusCode != tt.want {
			t.Errorf("key %q: status = %d, want %d", tt.key, resp.StatusCode, tt.want)
		}
	}
	// Health stays open.
	if resp := do(t, "GET", srv.URL+"/healthz", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}

func TestProcess_BadRequests(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name string
		path string
		body any
	}{
		{"invalid mode", "/v1/process", map[string]string{"url": "https://example.test", "mode": "fax"}},
		{"empty url", "/v1/process", map[string]string{"url": ""}},
		{"empty batch", "/v1/batch", map[string][]string{"urls": {}}},
		{"not json", "/v1/process", "just a string"},
	}
	for _, tt := range tests {
		resp := do(t, "POST", srv.URL+tt.path, "", tt.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, resp.StatusCode)
		}
	}
}

func TestProcess_CaptureThenJob(t *testing.T) {
	srv := newTestServer(t, "")

	resp := do(t, "POST", srv.URL+"/v1/process", "", map[string]string{
		"url": "https://example.test/page", "mode": webclip.ModeCapture,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d", resp.StatusCode)
	}
	var rep report.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatal(err)
	}
	if rep.State != report.StateDone {
		t.Fatalf("state = %s (%s), want done", rep.State, rep.Error)
	}
	if len(rep.Artifacts) == 0 || filepath.Ext(rep.Artifacts[0].Path) != ".pdf" {
		t.Fatalf("artifacts = %+v, want a pdf", rep.Artifacts)
	}

	resp = do(t, "GET", srv.URL+"/v1/jobs/"+rep.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("job status = %d", resp.StatusCode)
	}
	var job webclip.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	if job.State != report.StateDone || len(job.Report) == 0 {
		t.Errorf("job = %+v", job)
	}

	resp = do(t, "GET", srv.URL+"/v1/jobs?limit=5", "", nil)
	var jobs []webclip.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].ID != rep.ID {
		t.Errorf("jobs = %+v", jobs)
	}

	if resp := do(t, "GET", srv.URL+"/v1/jobs/nope", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", resp.StatusCode)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("PORT", "9999")
	t.Setenv("JOBS_DB", "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Dir != dir || cfg.Server.Port != "9999" {
		t.Errorf("overrides not applied: dir=%q port=%q", cfg.Output.Dir, cfg.Server.Port)
	}
	if want := filepath.Join(dir, "webclip.db"); cfg.Server.JobsDB != want {
		t.Errorf("jobs db = %q, want %q", cfg.Server.JobsDB, want)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{webclip.ErrInvalidURL, http.StatusBadRequest},
		{webclip.ErrInvalidMode, http.StatusBadRequest},
		{webclip.ErrJobNotFound, http.StatusNotFound},
		{webclip.ErrNoStore, http.StatusServiceUnavailable},
		{webclip.ErrNothingCaptured, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
