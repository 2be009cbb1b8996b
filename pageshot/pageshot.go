// CLAUDE:SUMMARY Page pipeline: measure, profile, plan, capture, stitch and chunk one page through a Browser.
// Package pageshot captures a webpage taller than one viewport as a sequence
// of overlapping screenshots and stitches them into one raster.
//
// The pipeline for one page is strictly ordered: the page is measured once,
// its text boxes are turned into a density profile, the profile drives the
// region plan, the regions are captured one by one through a single Browser,
// the captures are folded into a composite, and a composite taller than the
// codec ceiling is split into chunks. Recoverable conditions (degenerate
// plan, dropped region, degraded stitch, chunking) are reported on the
// Result. Only a browser that can no longer scroll or measure aborts the
// page.
package pageshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// Engine runs the capture pipeline for one page at a time. An Engine holds
// no per-page state and may be shared by concurrent pages, each with its own
// Browser.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg, logger: cfg.Logger}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Page is one unit of work for the engine.
type Page struct {
	Index   int
	Browser Browser
	// Scratch receives the region captures and output rasters when set.
	// The caller releases it.
	Scratch *Scratch
}

// Result is the outcome of a page run.
type Result struct {
	PageIndex int          `json:"page_index"`
	Geometry  PageGeometry `json:"geometry"`
	Plan      Plan         `json:"plan"`

	PlannedRegions int      `json:"planned_regions"`
	DroppedRegions int      `json:"dropped_regions"`
	Dropped        []Region `json:"dropped,omitempty"`

	Composite *Composite `json:"composite,omitempty"`
	Chunks    *ChunkSet  `json:"chunks,omitempty"`
	Status    Status     `json:"status"`

	// Files are the output rasters written to the page's Scratch, in order.
	Files []string `json:"files,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// Images returns the output rasters in order: the chunks when the composite
// was split, otherwise the composite alone. It is empty when every region
// was dropped.
func (r *Result) Images() []image.Image {
	if r.Chunks != nil {
		return r.Chunks.Images()
	}
	if r.Composite == nil || r.Composite.Height == 0 {
		return nil
	}
	return []image.Image{r.Composite.Image()}
}

// Run processes one page. It returns an error only when the browser becomes
// unavailable or ctx is done; every other failure is recorded on the Result.
func (e *Engine) Run(ctx context.Context, page Page) (*Result, error) {
	start := time.Now()
	log := e.logger.With("page", page.Index)
	res := &Result{PageIndex: page.Index}

	geo, err := e.measure(ctx, page.Browser)
	if err != nil {
		return nil, err
	}
	res.Geometry = geo

	boxes, err := page.Browser.ContentBoxes(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("pageshot: content boxes unavailable, planning on an empty profile", "error", err)
		boxes = nil
	}

	plan := PlanRegions(ProfileDensity(boxes, geo.TotalHeight, e.cfg.BucketSize), geo, e.cfg.planParams())
	res.Plan = plan
	res.PlannedRegions = len(plan.Regions)
	res.Status.PlanningDegenerate = plan.Degenerate
	log.Debug("pageshot: regions planned",
		"total_height", geo.TotalHeight, "regions", len(plan.Regions), "degenerate", plan.Degenerate)

	captures, err := e.captureAll(ctx, page, geo, plan, res)
	if err != nil {
		return nil, err
	}

	comp := Stitch(captures, e.cfg.stitchParams())
	captures = nil
	res.Composite = comp
	res.Status.StitchDegraded = comp.Degraded

	if NeedsChunking(comp.Height, e.cfg.CodecCeiling) {
		set := SplitChunks(comp.Image(), e.cfg.MaxChunkHeight)
		res.Chunks = &set
		res.Status.Chunked = true
		log.Info("pageshot: composite chunked",
			"height", comp.Height, "ceiling", e.cfg.CodecCeiling, "chunks", len(set.Chunks))
	}

	if page.Scratch != nil {
		if err := e.writeOutputs(page, res); err != nil {
			return nil, err
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("pageshot: page captured",
		"total_height", geo.TotalHeight,
		"planned", res.PlannedRegions,
		"dropped", res.DroppedRegions,
		"height", comp.Height,
		"degraded", comp.Degraded,
		"chunked", res.Status.Chunked,
		"elapsed", res.Elapsed)
	return res, nil
}

func (e *Engine) measure(ctx context.Context, b Browser) (PageGeometry, error) {
	h, err := b.PageHeight(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return PageGeometry{}, ctx.Err()
		}
		return PageGeometry{}, fmt.Errorf("%w: page height: %w", ErrBrowserUnavailable, err)
	}
	h = max(h, 0)
	geo := PageGeometry{TotalHeight: h, ViewportHeight: e.cfg.ViewportHeight, ScrollHeight: h}
	if e.cfg.MaxPageHeight > 0 && h > e.cfg.MaxPageHeight {
		e.logger.Info("pageshot: page height capped", "height", h, "max", e.cfg.MaxPageHeight)
		geo.TotalHeight = e.cfg.MaxPageHeight
	}
	return geo, nil
}

// captureAll captures the planned regions in order. Regions that exhaust
// their budget are dropped and recorded on res.
func (e *Engine) captureAll(ctx context.Context, page Page, geo PageGeometry, plan Plan, res *Result) ([]*CapturedImage, error) {
	log := e.logger.With("page", page.Index)
	capturer := NewCapturer(page.Browser, geo, e.cfg)

	captures := make([]*CapturedImage, 0, len(plan.Regions))
	for i, region := range plan.Regions {
		ci, err := capturer.Capture(ctx, i, region)
		switch {
		case err == nil:
		case errors.Is(err, ErrRegionCaptureFailed):
			log.Warn("pageshot: region dropped",
				"region", i, "start", region.Start, "end", region.End, "error", err)
			res.DroppedRegions++
			res.Dropped = append(res.Dropped, region)
			continue
		default:
			return nil, err
		}

		if page.Scratch != nil {
			path := page.Scratch.RegionPath(page.Index, i)
			if err := page.Scratch.WritePNG(path, ci.Image); err != nil {
				log.Warn("pageshot: region spill failed", "region", i, "error", err)
			}
		}
		captures = append(captures, ci)
	}
	return captures, nil
}

func (e *Engine) writeOutputs(page Page, res *Result) error {
	for i, img := range res.Images() {
		path := page.Scratch.ChunkPath(page.Index, i)
		if err := page.Scratch.WritePNG(path, img); err != nil {
			return fmt.Errorf("pageshot: write output %d: %w", i, err)
		}
		res.Files = append(res.Files, path)
	}
	return nil
}
