package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/tidwall/gjson"
	"golang.org/x/image/webp"

	"github.com/hazyhaar/webclip/pageshot"
)

// hideFixedJS hides the elements that would repeat in every viewport
// capture: site headers, navigation bars, footers and anything pinned.
const hideFixedJS = `() => {
	const sel = 'header, nav, .header, .nav, .fixed, .sticky, [style*="position: fixed"], [style*="position: sticky"], footer, .footer';
	let n = 0;
	document.querySelectorAll(sel).forEach(el => { el.style.display = 'none'; n++; });
	document.querySelectorAll('body *').forEach(el => {
		const pos = getComputedStyle(el).position;
		if (pos === 'fixed' || pos === 'sticky') { el.style.display = 'none'; n++; }
	});
	return n;
}`

// contentBoxesJS returns the vertical extent of text-bearing elements in
// page coordinates, as a JSON string.
const contentBoxesJS = `() => {
	const sel = 'p, h1, h2, h3, h4, h5, h6, li, pre, blockquote, td, th, dd, dt, figcaption, article';
	const out = [];
	document.querySelectorAll(sel).forEach(el => {
		const r = el.getBoundingClientRect();
		if (r.height <= 0 || !(el.innerText || '').trim()) return;
		out.push({y: r.top + window.scrollY, h: r.height});
	});
	return JSON.stringify(out);
}`

const pageHeightJS = `() => JSON.stringify({
	doc: document.documentElement.scrollHeight,
	body: document.body ? document.body.scrollHeight : 0,
})`

// Format is the screenshot encoding requested from Chrome.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// Tab is one page opened in its own incognito context. It implements
// pageshot.Browser and must be driven by a single goroutine.
type Tab struct {
	Page    *rod.Page
	PageURL string

	ctxBrowser *rod.Browser
	router     *rod.HijackRouter
	format     Format
	quality    int
	manager    *Manager
	closeOnce  sync.Once
}

var _ pageshot.Browser = (*Tab)(nil)

// TabOptions tune how a tab is opened.
type TabOptions struct {
	Format  Format // default png
	Quality int    // jpeg/webp quality, default 90
	// HideFixed hides headers, navs, footers and pinned elements after load.
	HideFixed bool
	// Settle is waited after load and after hiding fixed elements.
	Settle time.Duration
}

// OpenTab creates an incognito context, opens a tab in it sized to the
// configured viewport and navigates to pageURL.
func (m *Manager) OpenTab(ctx context.Context, pageURL string, opts TabOptions) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	log := m.cfg.Logger

	inc, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("browser: incognito: %w", err)
	}

	var page *rod.Page
	if m.cfg.Stealth >= LevelHeadless {
		page, err = stealth.Page(inc)
	} else {
		page, err = inc.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		inc.Close()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	m.active.Add(1)
	t := &Tab{
		Page:       page,
		PageURL:    pageURL,
		ctxBrowser: inc,
		format:     opts.Format,
		quality:    opts.Quality,
		manager:    m,
	}
	if t.format == "" {
		t.format = FormatPNG
	}
	if t.quality <= 0 {
		t.quality = 90
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	if types := blockedTypes(m.cfg.ResourceBlocking, log); len(types) > 0 {
		t.router = blockResources(page, types)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	if err := sleep(ctx, opts.Settle); err != nil {
		t.Close()
		return nil, err
	}
	if opts.HideFixed {
		if res, err := page.Context(ctx).Eval(hideFixedJS); err != nil {
			log.Warn("browser: hide fixed elements failed", "url", pageURL, "error", err)
		} else {
			log.Debug("browser: fixed elements hidden", "url", pageURL, "count", res.Value.Int())
		}
		if err := sleep(ctx, opts.Settle/2); err != nil {
			t.Close()
			return nil, err
		}
	}
	return t, nil
}

// ScrollTo scrolls the window so that row y is at the top of the viewport.
func (t *Tab) ScrollTo(ctx context.Context, y int) error {
	_, err := t.Page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y)
	if err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// SnapshotViewport captures the visible viewport.
func (t *Tab) SnapshotViewport(ctx context.Context) (image.Image, error) {
	req := &proto.PageCaptureScreenshot{}
	switch t.format {
	case FormatJPEG:
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		req.Quality = &t.quality
	case FormatWebP:
		req.Format = proto.PageCaptureScreenshotFormatWebp
		req.Quality = &t.quality
	default:
		req.Format = proto.PageCaptureScreenshotFormatPng
	}

	data, err := t.Page.Context(ctx).Screenshot(false, req)
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return decodeSnapshot(data, t.format)
}

func decodeSnapshot(data []byte, format Format) (image.Image, error) {
	r := bytes.NewReader(data)
	var (
		img image.Image
		err error
	)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	default:
		img, err = png.Decode(r)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: decode %s snapshot: %w", format, err)
	}
	return img, nil
}

// ContentBoxes returns the boxes of the text-bearing elements.
func (t *Tab) ContentBoxes(ctx context.Context) ([]pageshot.ContentBox, error) {
	res, err := t.Page.Context(ctx).Eval(contentBoxesJS)
	if err != nil {
		return nil, fmt.Errorf("browser: content boxes: %w", err)
	}
	return parseContentBoxes(res.Value.Str()), nil
}

func parseContentBoxes(raw string) []pageshot.ContentBox {
	var boxes []pageshot.ContentBox
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		h := v.Get("h").Float()
		if h > 0 {
			boxes = append(boxes, pageshot.ContentBox{Top: v.Get("y").Float(), Height: h})
		}
		return true
	})
	return boxes
}

// PageHeight returns the full scrollable height.
func (t *Tab) PageHeight(ctx context.Context) (int, error) {
	res, err := t.Page.Context(ctx).Eval(pageHeightJS)
	if err != nil {
		return 0, fmt.Errorf("browser: page height: %w", err)
	}
	return parsePageHeight(res.Value.Str()), nil
}

func parsePageHeight(raw string) int {
	r := gjson.Parse(raw)
	return int(max(r.Get("doc").Int(), r.Get("body").Int()))
}

// Title returns document.title.
func (t *Tab) Title(ctx context.Context) string {
	res, err := t.Page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// HTML serialises the rendered DOM.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close closes the tab and disposes its incognito context. It is safe to
// call more than once.
func (t *Tab) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.router != nil {
			t.router.Stop()
		}
		if t.Page != nil {
			t.Page.Close()
		}
		if t.ctxBrowser != nil {
			err = t.ctxBrowser.Close()
		}
		t.manager.active.Done()
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
