// CLAUDE:SUMMARY Region capturer: scroll, settle, snapshot, crop and verify each planned region with a bounded retry budget.
package pageshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Capturer captures planned regions through a Browser. It is bound to one
// page and must not be used concurrently.
type Capturer struct {
	browser Browser
	geo     PageGeometry
	cfg     Config
	quality QualityParams
	sleep   func(context.Context, time.Duration) error
}

// NewCapturer creates a Capturer for a page of the given geometry.
func NewCapturer(b Browser, geo PageGeometry, cfg Config) *Capturer {
	cfg.defaults()
	return &Capturer{browser: b, geo: geo, cfg: cfg, quality: cfg.qualityParams(), sleep: sleepCtx}
}

// Capture scrolls to the region, waits for the page to settle and takes a
// verified snapshot, retrying up to the attempt budget. The settle delay
// grows with the attempt number.
//
// A region that exhausts its budget yields an error wrapping
// ErrRegionCaptureFailed. Scroll failures wrap ErrBrowserUnavailable and are
// not retried.
func (c *Capturer) Capture(ctx context.Context, index int, region Region) (*CapturedImage, error) {
	img, n, err := Retry(ctx, c.cfg.Attempts, func(ctx context.Context, n int) (image.Image, error) {
		return c.attempt(ctx, index, region, n)
	})
	if err != nil {
		if errors.Is(err, ErrBrowserUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: region %d [%d,%d) after %d attempts: %w",
			ErrRegionCaptureFailed, index, region.Start, region.End, n, err)
	}
	return &CapturedImage{Index: index, Region: region, Image: img, Attempt: n}, nil
}

func (c *Capturer) attempt(ctx context.Context, index int, region Region, n int) (image.Image, error) {
	log := c.cfg.Logger

	if err := c.browser.ScrollTo(ctx, region.Start); err != nil {
		return nil, Permanent(fmt.Errorf("%w: scroll to %d: %w", ErrBrowserUnavailable, region.Start, err))
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay*time.Duration(n)); err != nil {
		return nil, Permanent(err)
	}

	snap, err := c.browser.SnapshotViewport(ctx)
	if err != nil {
		log.Debug("pageshot: snapshot failed", "region", index, "attempt", n, "error", err)
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	img := cropToRegion(snap, region, c.geo)
	if v := VerifyCapture(img, c.quality); !v.OK {
		log.Debug("pageshot: capture rejected",
			"region", index, "attempt", n, "reason", v.Reason, "ink_ratio", v.InkRatio)
		return nil, v.Err()
	}
	return img, nil
}

// cropToRegion keeps the snapshot rows that belong to the region. The
// browser cannot scroll past scrollHeight-viewport, so near the bottom of the
// document the region sits lower in the viewport than its start suggests.
// A capped page keeps scrolling freely up to the cap.
// Snapshots taken at a device scale factor other than 1 are cropped
// proportionally.
func cropToRegion(snap image.Image, region Region, geo PageGeometry) image.Image {
	b := snap.Bounds()
	if geo.ViewportHeight <= 0 || b.Dy() == 0 {
		return snap
	}
	scale := float64(b.Dy()) / float64(geo.ViewportHeight)

	scrollable := max(geo.ScrollHeight, geo.TotalHeight)
	visibleTop := min(region.Start, max(0, scrollable-geo.ViewportHeight))
	from := int(float64(region.Start-visibleTop) * scale)
	to := int(float64(region.End-visibleTop) * scale)
	from = max(0, min(from, b.Dy()))
	to = max(from, min(to, b.Dy()))
	if from == 0 && to == b.Dy() {
		return snap
	}

	r := image.Rect(b.Min.X, b.Min.Y+from, b.Max.X, b.Min.Y+to)
	if s, ok := snap.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, snap, r, xdraw.Src, nil)
	return dst
}
