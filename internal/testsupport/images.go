package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// PNGImage returns an encoded PNG of the given dimensions filled with noise
// so re-encoding produces realistic (non-trivial) output sizes.
func PNGImage(t testing.TB, width, height int) []byte {
	t.Helper()
	return encodePNG(t, noiseImage(width, height, 1))
}

// PNGImageSeeded returns a PNG whose pixel content is derived from seed, so
// two calls with different seeds produce different bytes (and different
// content hashes on the server).
func PNGImageSeeded(t testing.TB, width, height int, seed int64) []byte {
	t.Helper()
	return encodePNG(t, noiseImage(width, height, seed))
}

// JPEGImage returns an encoded JPEG of the given dimensions.
func JPEGImage(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, noiseImage(width, height, 2), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

// GIFImage returns a small encoded GIF.
func GIFImage(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, width, height), color.Palette{
		color.White, color.Black, color.RGBA{R: 255, A: 255}, color.RGBA{G: 255, A: 255},
	})
	rng := rand.New(rand.NewSource(3))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(4))
	}
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode gif fixture: %v", err)
	}
	return buf.Bytes()
}

func noiseImage(width, height int, seed int64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}
