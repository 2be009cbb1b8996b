// CLAUDE:SUMMARY Data model of the capture pipeline: geometry, regions, captures, composite spans and status flags.
package pageshot

import (
	"context"
	"errors"
	"image"
)

// Browser is the scroll-and-snapshot primitive the engine drives. One
// Browser serves one page at a time: calls are never issued concurrently.
type Browser interface {
	// ScrollTo scrolls the viewport so that page row y is at its top.
	ScrollTo(ctx context.Context, y int) error
	// SnapshotViewport captures what is currently visible.
	SnapshotViewport(ctx context.Context) (image.Image, error)
	// ContentBoxes returns the vertical extent of text-bearing elements.
	ContentBoxes(ctx context.Context) ([]ContentBox, error)
	// PageHeight returns the full scrollable height.
	PageHeight(ctx context.Context) (int, error)
}

var (
	// ErrBrowserUnavailable aborts a page: the scroll primitive or the page
	// measurement failed.
	ErrBrowserUnavailable = errors.New("pageshot: browser unavailable")

	// ErrRegionCaptureFailed is returned when a region exhausts its attempts.
	ErrRegionCaptureFailed = errors.New("pageshot: region capture failed")

	// ErrQualityRejected marks a single attempt whose image was unusable.
	ErrQualityRejected = errors.New("pageshot: capture rejected")
)

// PageGeometry is measured once before planning and passed by value.
// It is not re-validated during capture: if the page grows afterwards the
// plan is stale.
type PageGeometry struct {
	TotalHeight    int `json:"total_height"`
	ViewportHeight int `json:"viewport_height"`

	// ScrollHeight is the measured document height before any cap. The
	// browser scrolls against it, not against TotalHeight. Zero means
	// TotalHeight.
	ScrollHeight int `json:"scroll_height,omitempty"`
}

// ContentBox is the vertical extent of one text-bearing element, in page
// coordinates.
type ContentBox struct {
	Top    float64 `json:"y"`
	Height float64 `json:"h"`
}

// Region is the half-open pixel interval [Start, End) of the page selected
// for one capture.
type Region struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Height returns End - Start.
func (r Region) Height() int { return r.End - r.Start }

// CapturedImage is a verified capture of one region.
type CapturedImage struct {
	Index   int         `json:"index"` // position in the plan
	Region  Region      `json:"region"`
	Image   image.Image `json:"-"`
	Attempt int         `json:"attempt"` // 1-based attempt that succeeded
}

// Span is the part of the composite contributed by one capture.
type Span struct {
	Source int    `json:"source"` // plan index of the capture
	Region Region `json:"region"`
	Top    int    `json:"top"`    // first composite row
	Height int    `json:"height"` // rows of the source pasted
}

// Seam records how one capture was joined to the accumulator.
type Seam struct {
	Source   int          `json:"source"`
	Overlap  int          `json:"overlap"`
	Offset   int          `json:"offset"` // best probe offset within the overlap band
	Diff     float64      `json:"diff"`   // mean absolute grayscale difference at Offset
	Strategy SeamStrategy `json:"strategy"`
}

// SeamStrategy names how two images were joined.
type SeamStrategy string

const (
	SeamFirst    SeamStrategy = "first"    // accumulator seed
	SeamSearch   SeamStrategy = "seam"     // overlap search within the default window
	SeamFallback SeamStrategy = "fallback" // overlap search within the enlarged window
	SeamAppend   SeamStrategy = "append"   // overlap too small to search
	SeamConcat   SeamStrategy = "concat"   // plain concatenation after failed checks
)

// Status flags the non-fatal conditions met while processing a page.
type Status struct {
	PlanningDegenerate bool `json:"planning_degenerate"`
	StitchDegraded     bool `json:"stitch_degraded"`
	Chunked            bool `json:"chunked"`
}
