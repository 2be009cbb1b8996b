// CLAUDE:SUMMARY Seam stitcher: left fold of captures with overlap seam search, size-checked compositing and concat fallback.
package pageshot

import (
	"image"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
)

// StitchParams control the seam search and the compositing fallbacks.
type StitchParams struct {
	MaxOverlap      int
	MinOverlap      int
	ProbeHeight     int
	ProbeStep       int
	FallbackOverlap int
	ApplySeam       bool

	// Check validates the dimensions of each intermediate composite.
	// Default: CheckSize with MinSide.
	Check   func(width, height int) Verdict
	MinSide int

	Logger *slog.Logger
}

func (p *StitchParams) defaults() {
	d := Config{}.WithDefaults()
	if p.MaxOverlap <= 0 {
		p.MaxOverlap = d.MaxSeamOverlap
	}
	if p.MinOverlap <= 0 {
		p.MinOverlap = d.MinSeamOverlap
	}
	if p.ProbeHeight <= 0 {
		p.ProbeHeight = d.ProbeHeight
	}
	if p.ProbeStep <= 0 {
		p.ProbeStep = d.ProbeStep
	}
	if p.FallbackOverlap <= 0 {
		p.FallbackOverlap = d.FallbackSeamOverlap
	}
	if p.MinSide <= 0 {
		p.MinSide = d.MinSide
	}
	if p.Check == nil {
		minSide := p.MinSide
		p.Check = func(w, h int) Verdict { return CheckSize(w, h, minSide) }
	}
	if p.Logger == nil {
		p.Logger = d.Logger
	}
}

func (c Config) stitchParams() StitchParams {
	return StitchParams{
		MaxOverlap:      c.MaxSeamOverlap,
		MinOverlap:      c.MinSeamOverlap,
		ProbeHeight:     c.ProbeHeight,
		ProbeStep:       c.ProbeStep,
		FallbackOverlap: c.FallbackSeamOverlap,
		ApplySeam:       c.ApplySeam,
		MinSide:         c.MinSide,
		Logger:          c.Logger,
	}
}

// placement pastes rows [from, height) of img with its row 0 at composite
// row top.
type placement struct {
	img  image.Image
	top  int
	from int
}

// Composite is the stitched page. Pixels are rendered on demand from the
// ordered placements, so seam search and chunking never need more than one
// full-size buffer.
type Composite struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Spans    []Span `json:"spans"`
	Seams    []Seam `json:"seams"`
	Degraded bool   `json:"degraded"`

	placements []placement
	rendered   *image.RGBA
}

// Image renders the full composite. The result is cached and the source
// captures are released.
func (c *Composite) Image() *image.RGBA {
	if c.rendered == nil {
		c.rendered = c.Band(0, c.Height)
		c.placements = nil
	}
	return c.rendered
}

// Band renders composite rows [y0, y1) on a white background. Later
// placements cover earlier ones where they overlap.
func (c *Composite) Band(y0, y1 int) *image.RGBA {
	y0 = max(0, y0)
	y1 = min(c.Height, y1)
	if y1 < y0 {
		y1 = y0
	}
	dst := image.NewRGBA(image.Rect(0, 0, c.Width, y1-y0))
	if c.rendered != nil {
		xdraw.Copy(dst, image.Point{}, c.rendered, image.Rect(0, y0, c.Width, y1), xdraw.Src, nil)
		return dst
	}
	for i := range dst.Pix {
		dst.Pix[i] = 0xff
	}
	for _, p := range c.placements {
		b := p.img.Bounds()
		top := max(p.top+p.from, y0)
		bottom := min(p.top+b.Dy(), y1)
		if bottom <= top {
			continue
		}
		src := image.Rect(b.Min.X, b.Min.Y+top-p.top, b.Max.X, b.Min.Y+bottom-p.top)
		xdraw.Copy(dst, image.Pt(0, top-y0), p.img, src, xdraw.Src, nil)
	}
	return dst
}

func (c *Composite) place(ci *CapturedImage, top, from int) {
	b := ci.Image.Bounds()
	c.placements = append(c.placements, placement{img: ci.Image, top: top, from: from})
	c.Spans = append(c.Spans, Span{
		Source: ci.Index,
		Region: ci.Region,
		Top:    top + from,
		Height: b.Dy() - from,
	})
	c.Width = max(c.Width, b.Dx())
	c.Height = max(c.Height, top+b.Dy())
	c.rendered = nil
}

// Stitch folds the captures left to right into one composite. It never
// fails: when the seam search cannot produce an acceptable composite the
// capture is appended below the accumulator and the composite is marked
// degraded.
func Stitch(images []*CapturedImage, p StitchParams) *Composite {
	p.defaults()
	log := p.Logger

	comp := &Composite{}
	for _, ci := range images {
		if ci == nil || ci.Image == nil {
			continue
		}
		h := ci.Image.Bounds().Dy()

		if len(comp.placements) == 0 {
			comp.place(ci, 0, 0)
			comp.Seams = append(comp.Seams, Seam{Source: ci.Index, Strategy: SeamFirst})
			continue
		}

		accH := comp.Height
		overlap := min(p.MaxOverlap, accH/4, h/4)
		if overlap < p.MinOverlap {
			comp.place(ci, accH, 0)
			comp.Seams = append(comp.Seams, Seam{Source: ci.Index, Strategy: SeamAppend})
			continue
		}

		if s, ok := join(comp, ci, overlap, SeamSearch, p); ok {
			comp.Seams = append(comp.Seams, s)
			continue
		}

		wide := min(p.FallbackOverlap, accH, h)
		log.Debug("pageshot: composite check failed, retrying with enlarged overlap",
			"source", ci.Index, "overlap", overlap, "fallback_overlap", wide)
		if s, ok := join(comp, ci, wide, SeamFallback, p); ok {
			comp.Seams = append(comp.Seams, s)
			continue
		}

		log.Warn("pageshot: stitch degraded to concatenation", "source", ci.Index)
		comp.place(ci, accH, 0)
		comp.Seams = append(comp.Seams, Seam{Source: ci.Index, Strategy: SeamConcat})
		comp.Degraded = true
	}
	return comp
}

// join composites ci over the bottom overlap rows of the accumulator if the
// resulting dimensions pass the check.
func join(comp *Composite, ci *CapturedImage, overlap int, strategy SeamStrategy, p StitchParams) (Seam, bool) {
	b := ci.Image.Bounds()
	accH := comp.Height
	if v := p.Check(max(comp.Width, b.Dx()), accH+b.Dy()-overlap); !v.OK {
		return Seam{}, false
	}

	offset, diff := findSeam(comp.Band(accH-overlap, accH), ci.Image, overlap, p.ProbeHeight, p.ProbeStep)

	from := 0
	if p.ApplySeam {
		from = offset
	}
	comp.place(ci, accH-overlap, from)
	return Seam{
		Source:   ci.Index,
		Overlap:  overlap,
		Offset:   offset,
		Diff:     diff,
		Strategy: strategy,
	}, true
}

// findSeam slides a probe band down the overlap and returns the offset at
// which the accumulator's bottom slice and the next image's top slice differ
// least, with that mean absolute grayscale difference.
func findSeam(accBand *image.RGBA, next image.Image, overlap, probe, step int) (int, float64) {
	nb := next.Bounds()
	width := min(accBand.Bounds().Dx(), nb.Dx())
	probe = min(probe, overlap)
	if width <= 0 || probe <= 0 {
		return 0, 0
	}

	accGray := grayFunc(accBand)
	nextGray := grayFunc(next)
	ab := accBand.Bounds()

	bestOffset, bestDiff := 0, math.Inf(1)
	for off := 0; off+probe <= overlap; off += step {
		var sum int64
		for y := off; y < off+probe; y++ {
			for x := 0; x < width; x++ {
				d := int64(accGray(ab.Min.X+x, ab.Min.Y+y)) - int64(nextGray(nb.Min.X+x, nb.Min.Y+y))
				if d < 0 {
					d = -d
				}
				sum += d
			}
		}
		diff := float64(sum) / float64(probe*width)
		if diff < bestDiff {
			bestOffset, bestDiff = off, diff
		}
	}
	return bestOffset, bestDiff
}
