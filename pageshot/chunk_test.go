package pageshot

import (
	"image"
	"testing"
)

func TestNeedsChunking(t *testing.T) {
	if NeedsChunking(65000, 65000) {
		t.Error("height at the ceiling must not be chunked")
	}
	if !NeedsChunking(65001, 65000) {
		t.Error("height above the ceiling must be chunked")
	}
}

func TestSplitChunks_CodecCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a 1000x130000 raster")
	}
	img := image.NewGray(image.Rect(0, 0, 1000, 130000))
	for y := 0; y < 130000; y++ {
		img.Pix[img.PixOffset(0, y)] = uint8(y % 251)
	}

	set := SplitChunks(img, 60000)
	if len(set.Chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(set.Chunks))
	}
	wantHeights := []int{60000, 60000, 10000}
	for i, c := range set.Chunks {
		b := c.Image.Bounds()
		if c.Index != i {
			t.Errorf("chunk %d index = %d", i, c.Index)
		}
		if b.Dx() != 1000 {
			t.Errorf("chunk %d width = %d, want 1000", i, b.Dx())
		}
		if b.Dy() != wantHeights[i] || c.Height != wantHeights[i] {
			t.Errorf("chunk %d height = %d (%d), want %d", i, b.Dy(), c.Height, wantHeights[i])
		}
		if c.Top != i*60000 {
			t.Errorf("chunk %d top = %d, want %d", i, c.Top, i*60000)
		}
	}

	// Stacking the chunks top to bottom walks the original rows in order.
	y := 0
	for _, c := range set.Chunks {
		g := c.Image.(*image.Gray)
		b := g.Bounds()
		for row := b.Min.Y; row < b.Max.Y; row++ {
			if got, want := g.GrayAt(0, row).Y, uint8(y%251); got != want {
				t.Fatalf("row %d = %d, want %d", y, got, want)
			}
			y++
		}
	}
	if y != 130000 {
		t.Fatalf("rows = %d, want 130000", y)
	}
}

func TestChunkSet_Reassemble(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 1300))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7 % 256)
		if i%4 == 3 {
			src.Pix[i] = 0xff
		}
	}

	set := SplitChunks(src, 600)
	if len(set.Chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(set.Chunks))
	}
	// Order is carried by Index, not slice position.
	set.Chunks[0], set.Chunks[2] = set.Chunks[2], set.Chunks[0]

	out := set.Reassemble()
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}
	for i := range src.Pix {
		if out.Pix[i] != src.Pix[i] {
			t.Fatalf("pixel byte %d differs", i)
		}
	}
}

func TestSplitChunks_Offset(t *testing.T) {
	// Non-zero origin, as produced by SubImage.
	src := image.NewGray(image.Rect(0, 0, 50, 500)).SubImage(image.Rect(0, 100, 50, 350))
	set := SplitChunks(src, 100)
	if len(set.Chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(set.Chunks))
	}
	if h := set.Chunks[2].Height; h != 50 {
		t.Errorf("last chunk height = %d, want 50", h)
	}
	if set.Height != 250 || set.Width != 50 {
		t.Errorf("set = %dx%d, want 50x250", set.Width, set.Height)
	}
}

func TestSplitChunks_Empty(t *testing.T) {
	set := SplitChunks(image.NewGray(image.Rect(0, 0, 10, 0)), 100)
	if len(set.Chunks) != 0 {
		t.Fatalf("chunks = %d, want 0", len(set.Chunks))
	}
}
