package compress_test

import (
	"bytes"
	"context"
	"image"
	"testing"

	"cantrip/internal/compress"
	"cantrip/internal/testsupport"
)

func newCompressor(maxBytes int64, maxDim, quality int) *compress.Compressor {
	return compress.New(compress.Options{
		MaxOutputBytes: maxBytes,
		MaxDimension:   maxDim,
		Quality:        quality,
	}, nil)
}

func TestCompressDownscalesOversizedImage(t *testing.T) {
	data := testsupport.PNGImage(t, 3000, 1500)
	c := newCompressor(2<<20, 2000, 85)

	result, err := c.Compress(context.Background(), data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if result.Width != 2000 || result.Height != 1000 {
		t.Fatalf("expected 2000x1000, got %dx%d", result.Width, result.Height)
	}
	if result.MediaType != "image/jpeg" {
		t.Fatalf("expected jpeg output, got %s", result.MediaType)
	}
	if int64(len(result.Data)) > 2<<20 {
		t.Fatalf("output %d bytes exceeds ceiling", len(result.Data))
	}

	decoded, format, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg container, got %s", format)
	}
	if decoded.Bounds().Dx() != 2000 {
		t.Fatalf("decoded width %d", decoded.Bounds().Dx())
	}
}

func TestCompressKeepsSmallImageDimensions(t *testing.T) {
	data := testsupport.PNGImage(t, 640, 480)
	c := newCompressor(2<<20, 2000, 85)

	result, err := c.Compress(context.Background(), data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if result.Width != 640 || result.Height != 480 {
		t.Fatalf("dimensions changed: %dx%d", result.Width, result.Height)
	}
}

func TestCompressPassesThroughSmallGIF(t *testing.T) {
	data := testsupport.GIFImage(t, 64, 64)
	c := newCompressor(2<<20, 2000, 85)

	result, err := c.Compress(context.Background(), data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if result.MediaType != "image/gif" {
		t.Fatalf("expected gif passthrough, got %s", result.MediaType)
	}
	if !bytes.Equal(result.Data, data) {
		t.Fatal("gif bytes should be untouched")
	}
}

func TestCompressRejectsCorruptInput(t *testing.T) {
	c := newCompressor(2<<20, 2000, 85)
	if _, err := c.Compress(context.Background(), []byte("not an image at all")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCompressHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newCompressor(2<<20, 2000, 85)
	if _, err := c.Compress(ctx, testsupport.PNGImage(t, 32, 32)); err == nil {
		t.Fatal("expected context error")
	}
}
