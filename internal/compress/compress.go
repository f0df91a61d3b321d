package compress

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"cantrip/internal/logging"
)

const (
	// qualityStep is subtracted from the quality factor each time the encoded
	// output is still above the size ceiling.
	qualityStep = 10
	// qualityFloor is the lowest quality attempted before giving up.
	qualityFloor = 30
)

// Options bounds the re-encoded output.
type Options struct {
	MaxOutputBytes int64
	MaxDimension   int
	Quality        int
}

// Result is a re-encoded image.
type Result struct {
	Data         []byte
	Width        int
	Height       int
	MediaType    string
	OriginalSize int64
}

// Compressor re-encodes accepted images to bounded size and dimensions.
type Compressor struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Compressor. A nil logger disables logging.
func New(opts Options, logger *slog.Logger) *Compressor {
	return &Compressor{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "compress"),
	}
}

// Compress decodes, downscales, and re-encodes data. Animated GIFs that are
// already under the size ceiling pass through untouched so animation is not
// flattened to a single frame. Decode failures surface as per-file errors.
func (c *Compressor) Compress(ctx context.Context, data []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if format == "gif" && int64(len(data)) <= c.opts.MaxOutputBytes {
		bounds := src.Bounds()
		return &Result{
			Data:         data,
			Width:        bounds.Dx(),
			Height:       bounds.Dy(),
			MediaType:    "image/gif",
			OriginalSize: int64(len(data)),
		}, nil
	}

	scaled := c.downscale(src)
	bounds := scaled.Bounds()

	encoded, err := c.encodeBounded(ctx, scaled)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("image compressed",
		logging.String("source_format", format),
		logging.Int64("original_bytes", int64(len(data))),
		logging.Int64("compressed_bytes", int64(len(encoded))),
		logging.Int("width", bounds.Dx()),
		logging.Int("height", bounds.Dy()),
	)

	return &Result{
		Data:         encoded,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		MediaType:    "image/jpeg",
		OriginalSize: int64(len(data)),
	}, nil
}

func (c *Compressor) downscale(src image.Image) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := max(width, height)
	if longest <= c.opts.MaxDimension {
		return src
	}

	scale := float64(c.opts.MaxDimension) / float64(longest)
	dstW := max(1, int(float64(width)*scale))
	dstH := max(1, int(float64(height)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func (c *Compressor) encodeBounded(ctx context.Context, img image.Image) ([]byte, error) {
	quality := c.opts.Quality
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode image: %w", err)
		}
		if int64(buf.Len()) <= c.opts.MaxOutputBytes {
			return buf.Bytes(), nil
		}
		if quality-qualityStep < qualityFloor {
			return nil, fmt.Errorf("image still %d bytes over limit at quality %d", int64(buf.Len())-c.opts.MaxOutputBytes, quality)
		}
		quality -= qualityStep
	}
}
