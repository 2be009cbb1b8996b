package pageshot

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func whiteRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func defaultQuality() QualityParams {
	return Config{}.WithDefaults().qualityParams()
}

func TestVerifyCapture_RejectsSmallWhite(t *testing.T) {
	v := VerifyCapture(whiteRGBA(10, 10), defaultQuality())
	if v.OK {
		t.Fatal("expected a white 10x10 image to be rejected")
	}
	if !errors.Is(v.Err(), ErrQualityRejected) {
		t.Errorf("Err() = %v, want ErrQualityRejected", v.Err())
	}
}

func TestVerifyCapture_RejectsBlank(t *testing.T) {
	v := VerifyCapture(whiteRGBA(1200, 1000), defaultQuality())
	if v.OK {
		t.Fatal("expected a blank 1200x1000 image to be rejected")
	}
	if v.InkRatio != 0 {
		t.Errorf("ink ratio = %v, want 0", v.InkRatio)
	}
}

func TestVerifyCapture_AcceptsOnePercentInk(t *testing.T) {
	img := whiteRGBA(1200, 1000)
	// 10 full rows out of 1000: exactly 1%.
	for y := 0; y < 10; y++ {
		for x := 0; x < 1200; x++ {
			img.Set(x, y, color.Black)
		}
	}
	v := VerifyCapture(img, defaultQuality())
	if !v.OK {
		t.Fatalf("expected acceptance, got %q", v.Reason)
	}
	if v.Err() != nil {
		t.Errorf("Err() = %v, want nil", v.Err())
	}
}

func TestVerifyCapture_NearWhiteIsBackground(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = 250
	}
	if v := VerifyCapture(img, defaultQuality()); v.OK {
		t.Fatal("expected pixels at the near-white level to count as background")
	}
	for i := range img.Pix {
		img.Pix[i] = 249
	}
	if v := VerifyCapture(img, defaultQuality()); !v.OK {
		t.Fatalf("expected pixels below near-white to count as ink, got %q", v.Reason)
	}
}

func TestVerifyCapture_SubImageBounds(t *testing.T) {
	img := whiteRGBA(300, 600)
	for x := 0; x < 300; x++ {
		img.Set(x, 450, color.Black)
		img.Set(x, 451, color.Black)
	}
	// Bottom half only: two ink rows out of 300.
	sub := img.SubImage(image.Rect(0, 300, 300, 600))
	if v := VerifyCapture(sub, defaultQuality()); v.OK {
		t.Fatal("expected rejection below 1% ink")
	}
	for y := 300; y < 305; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, color.Black)
		}
	}
	if v := VerifyCapture(sub, defaultQuality()); !v.OK {
		t.Fatalf("expected acceptance, got %q", v.Reason)
	}
}

func TestGrayFunc_MatchesGrayModel(t *testing.T) {
	colors := []color.RGBA{
		{0, 0, 0, 255}, {255, 255, 255, 255}, {12, 200, 77, 255}, {250, 250, 250, 255}, {90, 10, 240, 255},
	}
	img := image.NewRGBA(image.Rect(0, 0, len(colors), 1))
	for i, c := range colors {
		img.SetRGBA(i, 0, c)
	}
	gray := grayFunc(img)
	for i, c := range colors {
		want := color.GrayModel.Convert(c).(color.Gray).Y
		if got := gray(i, 0); got != want {
			t.Errorf("gray(%v) = %d, want %d", c, got, want)
		}
	}
}
