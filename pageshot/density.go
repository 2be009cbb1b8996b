// CLAUDE:SUMMARY Density profiler: content-element boxes to a fixed-bucket vertical density curve.
package pageshot

import (
	"gonum.org/v1/gonum/stat"
)

// DensityBucket is one band [Start, Start+size) of the profile.
type DensityBucket struct {
	Start   int     `json:"start"`
	Density float64 `json:"density"`
}

// DensityProfile is a coarse histogram of how much text covers each
// vertical band of the page. Buckets tile [0, totalHeight) contiguously.
type DensityProfile struct {
	BucketSize int             `json:"bucket_size"`
	Buckets    []DensityBucket `json:"buckets"`
}

// ProfileDensity builds the density profile of a page from its content
// boxes. Each box contributes, to every bucket it overlaps, the overlap
// height divided by the bucket size. Values are not clamped: overlapping
// elements can push a bucket above 1.
func ProfileDensity(boxes []ContentBox, totalHeight, bucketSize int) DensityProfile {
	if bucketSize <= 0 {
		bucketSize = 100
	}
	prof := DensityProfile{BucketSize: bucketSize}
	if totalHeight <= 0 {
		return prof
	}

	n := (totalHeight + bucketSize - 1) / bucketSize
	prof.Buckets = make([]DensityBucket, n)
	for i := range prof.Buckets {
		prof.Buckets[i].Start = i * bucketSize
	}

	size := float64(bucketSize)
	for _, b := range boxes {
		if b.Height <= 0 {
			continue
		}
		top := b.Top
		bottom := b.Top + b.Height
		if bottom <= 0 || top >= float64(totalHeight) {
			continue
		}
		first := int(max(top, 0)) / bucketSize
		last := int(min(bottom, float64(totalHeight))-1e-9) / bucketSize
		for i := first; i <= last && i < n; i++ {
			bStart := float64(prof.Buckets[i].Start)
			bEnd := min(bStart+size, float64(totalHeight))
			overlap := min(bottom, bEnd) - max(top, bStart)
			if overlap > 0 {
				prof.Buckets[i].Density += overlap / size
			}
		}
	}
	return prof
}

// Average returns the mean density over [from, to), each bucket weighted by
// how much of it falls inside the interval. Parts of the interval outside
// the page are ignored; an interval entirely outside averages to 0.
func (p DensityProfile) Average(from, to int) float64 {
	if to <= from || len(p.Buckets) == 0 || p.BucketSize <= 0 {
		return 0
	}

	var values, weights []float64
	first := max(from, 0) / p.BucketSize
	for i := first; i < len(p.Buckets); i++ {
		bStart := p.Buckets[i].Start
		if bStart >= to {
			break
		}
		bEnd := bStart + p.BucketSize
		w := min(bEnd, to) - max(bStart, from)
		if w <= 0 {
			continue
		}
		values = append(values, p.Buckets[i].Density)
		weights = append(weights, float64(w))
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, weights)
}
