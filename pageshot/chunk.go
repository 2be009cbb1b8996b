// CLAUDE:SUMMARY Chunk manager: splits composites taller than the codec ceiling into ordered full-width bands.
package pageshot

import (
	"cmp"
	"image"
	"slices"

	xdraw "golang.org/x/image/draw"
)

// Chunk is one band of an oversized composite. Index orders chunks top to
// bottom and is the only ordering downstream encoders may rely on.
type Chunk struct {
	Index  int         `json:"index"`
	Top    int         `json:"top"`
	Height int         `json:"height"`
	Image  image.Image `json:"-"`
}

// ChunkSet is the ordered split of a composite. All chunks share Width.
type ChunkSet struct {
	Width  int     `json:"width"`
	Height int     `json:"height"` // sum of chunk heights
	Chunks []Chunk `json:"chunks"`
}

// NeedsChunking reports whether a raster of the given height exceeds the
// codec ceiling.
func NeedsChunking(height, ceiling int) bool {
	return height > ceiling
}

// SplitChunks cuts img top to bottom into bands of at most maxHeight rows.
// Bands are views of img when it supports SubImage.
func SplitChunks(img image.Image, maxHeight int) ChunkSet {
	b := img.Bounds()
	set := ChunkSet{Width: b.Dx(), Height: b.Dy()}
	if maxHeight <= 0 || b.Dy() == 0 {
		return set
	}

	sub, _ := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	for i, top := 0, 0; top < b.Dy(); i, top = i+1, top+maxHeight {
		h := min(maxHeight, b.Dy()-top)
		r := image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Min.Y+top+h)

		var band image.Image
		if sub != nil {
			band = sub.SubImage(r)
		} else {
			dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), h))
			xdraw.Copy(dst, image.Point{}, img, r, xdraw.Src, nil)
			band = dst
		}
		set.Chunks = append(set.Chunks, Chunk{Index: i, Top: top, Height: h, Image: band})
	}
	return set
}

// Reassemble stacks the chunks in index order into one raster.
func (s ChunkSet) Reassemble() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	chunks := slices.Clone(s.Chunks)
	slices.SortFunc(chunks, func(a, b Chunk) int { return cmp.Compare(a.Index, b.Index) })
	y := 0
	for _, c := range chunks {
		b := c.Image.Bounds()
		xdraw.Copy(dst, image.Pt(0, y), c.Image, b, xdraw.Src, nil)
		y += b.Dy()
	}
	return dst
}

// Images returns the chunk rasters in order.
func (s ChunkSet) Images() []image.Image {
	out := make([]image.Image, len(s.Chunks))
	for i, c := range s.Chunks {
		out[i] = c.Image
	}
	return out
}
