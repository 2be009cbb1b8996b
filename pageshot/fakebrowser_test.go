package pageshot

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// fakeBrowser renders a synthetic page: a dark line every 20 rows on a white
// background, so every viewport carries about 5% ink.
type fakeBrowser struct {
	mu sync.Mutex

	width, total, vh int
	boxes            []ContentBox

	// ramp paints page row y with gray (y/10)%200 instead of stripes, so
	// every row range is identifiable.
	ramp bool

	// blank maps a scroll target to the number of blank snapshots to return
	// there. A negative count means always blank.
	blank map[int]int

	scrollErr error
	heightErr error
	boxesErr  error
	snapErr   error

	scrollY   int
	scrolls   []int
	snapshots int
}

func newFakeBrowser(width, total, vh int) *fakeBrowser {
	return &fakeBrowser{width: width, total: total, vh: vh, blank: map[int]int{}}
}

func (f *fakeBrowser) ScrollTo(_ context.Context, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scrollErr != nil {
		return f.scrollErr
	}
	f.scrollY = y
	f.scrolls = append(f.scrolls, y)
	return nil
}

func (f *fakeBrowser) SnapshotViewport(context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	if f.snapErr != nil {
		return nil, f.snapErr
	}

	img := image.NewGray(image.Rect(0, 0, f.width, f.vh))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	if n, ok := f.blank[f.scrollY]; ok && n != 0 {
		if n > 0 {
			f.blank[f.scrollY] = n - 1
		}
		return img, nil
	}

	top := min(f.scrollY, max(0, f.total-f.vh))
	for r := 0; r < f.vh; r++ {
		y := top + r
		if f.ramp && y < f.total {
			for x := 0; x < f.width; x++ {
				img.Pix[img.PixOffset(x, r)] = rampShade(y)
			}
			continue
		}
		if y >= f.total || y%20 != 0 {
			continue
		}
		for x := 0; x < f.width; x++ {
			img.Pix[img.PixOffset(x, r)] = 0x10
		}
	}
	return img, nil
}

func (f *fakeBrowser) ContentBoxes(context.Context) ([]ContentBox, error) {
	if f.boxesErr != nil {
		return nil, f.boxesErr
	}
	return f.boxes, nil
}

func (f *fakeBrowser) PageHeight(context.Context) (int, error) {
	if f.heightErr != nil {
		return 0, f.heightErr
	}
	return f.total, nil
}

func rampShade(y int) uint8 { return uint8((y / 10) % 200) }

// rowShade returns the gray value of the first pixel of row y.
func rowShade(img image.Image, y int) uint8 {
	return color.GrayModel.Convert(img.At(img.Bounds().Min.X, y)).(color.Gray).Y
}

// testConfig is the default configuration without settle delays.
func testConfig() Config {
	return Config{SettleDelay: -1}
}
