package webclip

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hazyhaar/webclip/internal/config"
	"github.com/hazyhaar/webclip/pageshot"
)

// fakeSession renders a white page with a dark line every 20 rows.
type fakeSession struct {
	width, total, vh int
	title            string
	scrollY          int
	closed           *atomic.Int32
}

func (f *fakeSession) ScrollTo(_ context.Context, y int) error {
	f.scrollY = y
	return nil
}

func (f *fakeSession) SnapshotViewport(context.Context) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, f.width, f.vh))
	top := min(f.scrollY, max(0, f.total-f.vh))
	for r := 0; r < f.vh; r++ {
		shade := uint8(0xff)
		if (top+r)%20 == 0 {
			shade = 0x10
		}
		for x := 0; x < f.width; x++ {
			img.Pix[img.PixOffset(x, r)] = shade
		}
	}
	return img, nil
}

func (f *fakeSession) ContentBoxes(context.Context) ([]pageshot.ContentBox, error) {
	return []pageshot.ContentBox{{Top: 50, Height: 400}}, nil
}

func (f *fakeSession) PageHeight(context.Context) (int, error) { return f.total, nil }

func (f *fakeSession) Title(context.Context) string { return f.title }

func (f *fakeSession) Close() error {
	f.closed.Add(1)
	return nil
}

// fakeOpener opens fakeSessions; URLs containing "unreachable" fail.
type fakeOpener struct {
	mu     sync.Mutex
	opened []string
	closed atomic.Int32
}

func (o *fakeOpener) Open(_ context.Context, pageURL string) (Session, error) {
	o.mu.Lock()
	o.opened = append(o.opened, pageURL)
	o.mu.Unlock()
	if strings.Contains(pageURL, "unreachable") {
		return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return &fakeSession{width: 200, total: 900, vh: 300, title: "Fake Page", closed: &o.closed}, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Capture.ViewportWidth = 200
	cfg.Capture.ViewportHeight = 300
	cfg.Capture.OverlapMargin = 60
	cfg.Capture.SearchRadius = -1
	cfg.Capture.SettleDelay = -1
	cfg.Classifier.TextThreshold = 500
	return cfg
}
