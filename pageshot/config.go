// CLAUDE:SUMMARY Engine configuration: planner, capture, stitch and chunk parameters with their defaults.
package pageshot

import (
	"log/slog"
	"time"
)

// Config configures the capture-and-stitch engine. Zero values are replaced
// by the defaults below.
type Config struct {
	// ViewportWidth and ViewportHeight are the browser window size. Default: 1200x1200.
	ViewportWidth  int `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `json:"viewport_height" yaml:"viewport_height"`

	// MaxPageHeight caps the measured page height. 0 disables the cap.
	MaxPageHeight int `json:"max_page_height" yaml:"max_page_height"`

	// BucketSize is the density profile resolution in pixels. Default: 100.
	BucketSize int `json:"bucket_size" yaml:"bucket_size"`

	// OverlapMargin is the span shared by consecutive regions. Default: 200.
	OverlapMargin int `json:"overlap_margin" yaml:"overlap_margin"`

	// SearchRadius and SearchStep bound the boundary search around the
	// default region end. Defaults: 200 and 50. A negative radius keeps
	// the default end.
	SearchRadius int `json:"search_radius" yaml:"search_radius"`
	SearchStep   int `json:"search_step" yaml:"search_step"`

	// LocalWindow is the band sampled around a candidate end. Default: 200.
	LocalWindow int `json:"local_window" yaml:"local_window"`

	// MaxIterations is the planner iteration ceiling. Default: 100.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Attempts is the per-region capture budget. Default: 3.
	Attempts int `json:"attempts" yaml:"attempts"`

	// SettleDelay is waited after each scroll, multiplied by the attempt
	// number. Default: 2s. A negative value disables the wait.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`

	// MinSide is the smallest usable capture dimension. Default: 100.
	MinSide int `json:"min_side" yaml:"min_side"`

	// NearWhite is the grayscale level at or above which a pixel counts as
	// background. Default: 250.
	NearWhite uint8 `json:"near_white" yaml:"near_white"`

	// MinInkRatio is the fraction of non-background pixels a capture needs.
	// Default: 0.01.
	MinInkRatio float64 `json:"min_ink_ratio" yaml:"min_ink_ratio"`

	// Seam search parameters. Defaults: 400, 50, 50, 10, 600.
	MaxSeamOverlap      int `json:"max_seam_overlap" yaml:"max_seam_overlap"`
	MinSeamOverlap      int `json:"min_seam_overlap" yaml:"min_seam_overlap"`
	ProbeHeight         int `json:"probe_height" yaml:"probe_height"`
	ProbeStep           int `json:"probe_step" yaml:"probe_step"`
	FallbackSeamOverlap int `json:"fallback_seam_overlap" yaml:"fallback_seam_overlap"`

	// ApplySeam pastes the next image from the selected seam band instead of
	// from its top row. The composite height is the same either way.
	ApplySeam bool `json:"apply_seam" yaml:"apply_seam"`

	// MaxChunkHeight is the height of each chunk of an oversized composite.
	// Default: 60000.
	MaxChunkHeight int `json:"max_chunk_height" yaml:"max_chunk_height"`

	// CodecCeiling is the composite height above which it is chunked.
	// Default: 65000.
	CodecCeiling int `json:"codec_ceiling" yaml:"codec_ceiling"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1200
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1200
	}
	if c.BucketSize <= 0 {
		c.BucketSize = 100
	}
	if c.OverlapMargin <= 0 {
		c.OverlapMargin = 200
	}
	if c.SearchRadius == 0 {
		c.SearchRadius = 200
	}
	if c.SearchStep <= 0 {
		c.SearchStep = 50
	}
	if c.LocalWindow <= 0 {
		c.LocalWindow = 200
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 100
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.MinSide <= 0 {
		c.MinSide = 100
	}
	if c.NearWhite == 0 {
		c.NearWhite = 250
	}
	if c.MinInkRatio <= 0 {
		c.MinInkRatio = 0.01
	}
	if c.MaxSeamOverlap <= 0 {
		c.MaxSeamOverlap = 400
	}
	if c.MinSeamOverlap <= 0 {
		c.MinSeamOverlap = 50
	}
	if c.ProbeHeight <= 0 {
		c.ProbeHeight = 50
	}
	if c.ProbeStep <= 0 {
		c.ProbeStep = 10
	}
	if c.FallbackSeamOverlap <= 0 {
		c.FallbackSeamOverlap = 600
	}
	if c.MaxChunkHeight <= 0 {
		c.MaxChunkHeight = 60000
	}
	if c.CodecCeiling <= 0 {
		c.CodecCeiling = 65000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// WithDefaults returns a copy of c with every zero field set to its default.
func (c Config) WithDefaults() Config {
	c.defaults()
	return c
}
