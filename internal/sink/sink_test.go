package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/webclip/report"
)

func TestStdout_Envelope(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	if err := s.Send(context.Background(), report.Report{ID: "r1", URL: "https://a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SendBatch(context.Background(), report.Batch{ID: "b1"}); err != nil {
		t.Fatal(err)
	}

	dec := json.NewDecoder(&buf)
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	for _, want := range []string{"report", "batch"} {
		if err := dec.Decode(&env); err != nil {
			t.Fatal(err)
		}
		if env.Type != want {
			t.Errorf("type = %q, want %q", env.Type, want)
		}
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), report.Report{ID: "r1"}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhook_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	err := w.SendBatch(context.Background(), report.Batch{ID: "b1"})
	if err == nil {
		t.Fatal("expected error after retries")
	}
}

func TestWebhook_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Hour))
	if err := w.Send(ctx, report.Report{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRouter_FanOutKeepsGoing(t *testing.T) {
	boom := errors.New("boom")
	var got []string
	failing := NewCallback(func(context.Context, report.Report) error { return boom }, nil)
	ok := NewCallback(func(_ context.Context, r report.Report) error {
		got = append(got, r.ID)
		return nil
	}, nil)

	r := NewRouter(nil, failing, ok)
	if err := r.Send(context.Background(), report.Report{ID: "r1"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if len(got) != 1 || got[0] != "r1" {
		t.Errorf("second sink got %v", got)
	}
	if err := r.SendBatch(context.Background(), report.Batch{}); err != nil {
		t.Errorf("nil batch handlers should not fail: %v", err)
	}
}

func TestBuild(t *testing.T) {
	if _, err := Build("stdout", "", nil); err != nil {
		t.Error(err)
	}
	if _, err := Build("webhook", "", nil); err == nil {
		t.Error("webhook without url should fail")
	}
	if _, err := Build("nats", "", nil); err == nil {
		t.Error("unknown type should fail")
	}
}
