// CLAUDE:SUMMARY Boundary planner: density-guided overlapping cover of the page height with a bounded iteration count.
package pageshot

import (
	"log/slog"
	"math"
)

// Plan is the ordered, overlapping cover of the page height.
type Plan struct {
	Regions []Region `json:"regions"`
	// Degenerate is set when planning stopped without reaching the bottom
	// of the page. Regions then hold the prefix planned so far.
	Degenerate bool `json:"degenerate,omitempty"`
}

// PlanParams are the boundary search parameters.
type PlanParams struct {
	OverlapMargin int
	SearchRadius  int
	SearchStep    int
	LocalWindow   int
	MaxIterations int
	Logger        *slog.Logger
}

func (p *PlanParams) defaults() {
	d := Config{}.WithDefaults()
	if p.OverlapMargin <= 0 {
		p.OverlapMargin = d.OverlapMargin
	}
	switch {
	case p.SearchRadius == 0:
		p.SearchRadius = d.SearchRadius
	case p.SearchRadius < 0:
		p.SearchRadius = 0
	}
	if p.SearchStep <= 0 {
		p.SearchStep = d.SearchStep
	}
	if p.LocalWindow <= 0 {
		p.LocalWindow = d.LocalWindow
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = d.MaxIterations
	}
	if p.Logger == nil {
		p.Logger = d.Logger
	}
}

func (c Config) planParams() PlanParams {
	return PlanParams{
		OverlapMargin: c.OverlapMargin,
		SearchRadius:  c.SearchRadius,
		SearchStep:    c.SearchStep,
		LocalWindow:   c.LocalWindow,
		MaxIterations: c.MaxIterations,
		Logger:        c.Logger,
	}
}

// PlanRegions cuts the page into regions of about one viewport each.
//
// Every region starts OverlapMargin above the end of the previous one. Its
// end is searched within SearchRadius of start+viewport, preferring the
// candidate whose local density (averaged over LocalWindow) is closest to
// the region's own average density, i.e. a flat band rather than the middle
// of a paragraph. Ties keep the default end, so an empty profile yields an
// evenly spaced plan.
func PlanRegions(prof DensityProfile, geo PageGeometry, p PlanParams) Plan {
	p.defaults()
	total, vh := geo.TotalHeight, geo.ViewportHeight

	if total <= 0 {
		return Plan{}
	}
	if total <= vh {
		return Plan{Regions: []Region{{Start: 0, End: total}}}
	}
	if vh <= 0 || p.OverlapMargin >= vh {
		p.Logger.Warn("pageshot: planning degenerate, overlap does not fit the viewport",
			"viewport", vh, "overlap", p.OverlapMargin)
		return Plan{Degenerate: true}
	}

	var plan Plan
	pos := 0
	for iter := 0; ; iter++ {
		if iter >= p.MaxIterations {
			plan.Degenerate = true
			p.Logger.Warn("pageshot: planning degenerate, iteration ceiling reached",
				"iterations", iter, "position", pos, "total_height", total)
			return plan
		}

		defaultEnd := pos + vh
		if defaultEnd >= total {
			plan.Regions = append(plan.Regions, Region{Start: pos, End: total})
			return plan
		}

		end := chooseEnd(prof, pos, defaultEnd, total, p)
		if end >= total {
			plan.Regions = append(plan.Regions, Region{Start: pos, End: total})
			return plan
		}

		next := end - p.OverlapMargin
		if next <= pos {
			end = defaultEnd
			next = pos + vh - p.OverlapMargin
		}
		if next <= pos {
			plan.Degenerate = true
			p.Logger.Warn("pageshot: planning degenerate, no forward progress",
				"position", pos, "total_height", total)
			return plan
		}

		plan.Regions = append(plan.Regions, Region{Start: pos, End: end})
		pos = next
	}
}

// chooseEnd returns the candidate end in [defaultEnd-radius, defaultEnd+radius]
// whose local density deviates least from the region average.
func chooseEnd(prof DensityProfile, pos, defaultEnd, total int, p PlanParams) int {
	regionAvg := prof.Average(pos, defaultEnd)
	half := p.LocalWindow / 2

	deviation := func(end int) float64 {
		return math.Abs(prof.Average(end-half, end+half) - regionAvg)
	}

	best := defaultEnd
	bestDev := deviation(defaultEnd)
	for off := -p.SearchRadius; off <= p.SearchRadius; off += p.SearchStep {
		cand := defaultEnd + off
		if cand == defaultEnd || cand-p.OverlapMargin <= pos || cand > total {
			continue
		}
		if d := deviation(cand); d < bestDev {
			best, bestDev = cand, d
		}
	}
	return best
}
