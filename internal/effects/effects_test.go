package effects

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func noise(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	// keep pixels opaque so premultiplied values stay valid
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestBlockSizePolicy(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{50, 50, 10},   // 50/20 = 2 -> clamped up to 10
		{300, 100, 15}, // 300/20 = 15
		{100, 400, 20}, // 400/20 = 20
		{2000, 10, 20}, // clamped down to 20
	}
	for _, tt := range tests {
		if got := DefaultBlockPolicy.BlockSize(tt.w, tt.h); got != tt.want {
			t.Errorf("BlockSize(%d,%d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}

	custom := BlockSizePolicy{Divisor: 10, Min: 4, Max: 8}
	if got := custom.BlockSize(60, 20); got != 6 {
		t.Errorf("custom policy BlockSize = %d, want 6", got)
	}
}

func TestMosaic_UniformRegionUnchanged(t *testing.T) {
	c := color.RGBA{R: 12, G: 200, B: 77, A: 255}
	img := solid(64, 48, c)

	if err := Mosaic(img, image.Rect(5, 3, 60, 40), DefaultBlockPolicy); err != nil {
		t.Fatalf("Mosaic: %v", err)
	}
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if got := img.RGBAAt(x, y); got != c {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, c)
			}
		}
	}
}

func TestMosaic_BlocksHoldTheirMean(t *testing.T) {
	img := noise(57, 43, 1)
	orig := image.NewRGBA(img.Bounds())
	copy(orig.Pix, img.Pix)

	r := image.Rect(3, 4, 57, 41)
	if err := Mosaic(img, r, DefaultBlockPolicy); err != nil {
		t.Fatalf("Mosaic: %v", err)
	}

	block := DefaultBlockPolicy.BlockSize(r.Dx(), r.Dy())
	for by := r.Min.Y; by < r.Max.Y; by += block {
		for bx := r.Min.X; bx < r.Max.X; bx += block {
			cell := image.Rect(bx, by, bx+block, by+block).Intersect(r)

			var sum [4]int
			for y := cell.Min.Y; y < cell.Max.Y; y++ {
				for x := cell.Min.X; x < cell.Max.X; x++ {
					p := orig.RGBAAt(x, y)
					sum[0] += int(p.R)
					sum[1] += int(p.G)
					sum[2] += int(p.B)
					sum[3] += int(p.A)
				}
			}
			n := cell.Dx() * cell.Dy()
			want := color.RGBA{
				R: uint8((sum[0] + n/2) / n),
				G: uint8((sum[1] + n/2) / n),
				B: uint8((sum[2] + n/2) / n),
				A: uint8((sum[3] + n/2) / n),
			}
			for y := cell.Min.Y; y < cell.Max.Y; y++ {
				for x := cell.Min.X; x < cell.Max.X; x++ {
					if got := img.RGBAAt(x, y); got != want {
						t.Fatalf("block %v pixel (%d,%d) = %v, want mean %v", cell, x, y, got, want)
					}
				}
			}
		}
	}
}

func TestMosaic_OutsideUntouched(t *testing.T) {
	img := noise(40, 40, 2)
	orig := image.NewRGBA(img.Bounds())
	copy(orig.Pix, img.Pix)

	r := image.Rect(10, 10, 30, 30)
	if err := Mosaic(img, r, DefaultBlockPolicy); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if image.Pt(x, y).In(r) {
				continue
			}
			if img.RGBAAt(x, y) != orig.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) outside region changed", x, y)
			}
		}
	}
}

func TestMosaic_EmptyRegion(t *testing.T) {
	img := solid(10, 10, color.RGBA{A: 255})
	err := Mosaic(img, image.Rect(20, 20, 30, 30), DefaultBlockPolicy)
	if !errors.Is(err, apperrors.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestBlur_ChangesOnlyRegion(t *testing.T) {
	img := noise(60, 60, 3)
	orig := image.NewRGBA(img.Bounds())
	copy(orig.Pix, img.Pix)

	r := image.Rect(15, 15, 45, 45)
	if err := Blur(img, r, DefaultBlurSigma); err != nil {
		t.Fatalf("Blur: %v", err)
	}

	changed := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			same := img.RGBAAt(x, y) == orig.RGBAAt(x, y)
			if !image.Pt(x, y).In(r) && !same {
				t.Fatalf("pixel (%d,%d) outside region changed", x, y)
			}
			if image.Pt(x, y).In(r) && !same {
				changed++
			}
		}
	}
	if changed < r.Dx()*r.Dy()/2 {
		t.Errorf("blur changed only %d of %d pixels", changed, r.Dx()*r.Dy())
	}
}

func TestBlur_ReducesVariance(t *testing.T) {
	img := noise(40, 40, 4)
	r := img.Bounds()
	before := variance(img, r)
	if err := Blur(img, r, DefaultBlurSigma); err != nil {
		t.Fatal(err)
	}
	after := variance(img, r)
	if after >= before/4 {
		t.Errorf("variance %f -> %f; expected a strong low-pass", before, after)
	}
}

func variance(img *image.RGBA, r image.Rectangle) float64 {
	var sum, sq float64
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := float64(img.RGBAAt(x, y).R)
			sum += v
			sq += v * v
			n++
		}
	}
	mean := sum / float64(n)
	return sq/float64(n) - mean*mean
}

func TestCrop(t *testing.T) {
	img := noise(30, 20, 5)
	r := image.Rect(4, 6, 19, 17)

	out, err := Crop(img, r)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 15, 11) {
		t.Fatalf("crop bounds = %v", out.Bounds())
	}
	for y := 0; y < 11; y++ {
		for x := 0; x < 15; x++ {
			if out.RGBAAt(x, y) != img.RGBAAt(x+4, y+6) {
				t.Fatalf("pixel (%d,%d) mismatch", x, y)
			}
		}
	}
}

func TestCrop_ClipsToBounds(t *testing.T) {
	img := noise(10, 10, 6)
	out, err := Crop(img, image.Rect(5, 5, 50, 50))
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Dx() != 5 || out.Bounds().Dy() != 5 {
		t.Errorf("clipped crop = %v", out.Bounds())
	}

	if _, err := Crop(img, image.Rect(11, 11, 20, 20)); !errors.Is(err, apperrors.ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}
