package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Format is an export encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultJPEGQuality matches a 0.92 canvas encoder quality.
const DefaultJPEGQuality = 92

// MaxScale bounds the export scale factor.
const MaxScale = 4.0

// ParseFormat accepts png, jpeg and jpg (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unsupported export format %q: must be png or jpeg", s)
	}
}

// MIMEType returns the media type produced by the format.
func (f Format) MIMEType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Ext is the file extension without a dot.
func (f Format) Ext() string {
	return string(f)
}

// ExportOptions controls Export.
type ExportOptions struct {
	Format      Format
	Scale       float64
	JPEGQuality int
}

// Exported is an encoded export ready to be downloaded.
type Exported struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// ValidateScale rejects scale factors outside (0, MaxScale].
func ValidateScale(scale float64) error {
	if math.IsNaN(scale) || scale <= 0 || scale > MaxScale {
		return fmt.Errorf("scale %v out of range: must be in (0, %v]", scale, MaxScale)
	}
	return nil
}

// ScaledSize returns floor(w*scale) x floor(h*scale), never smaller than 1x1.
func ScaledSize(width, height int, scale float64) (int, int) {
	w := int(math.Floor(float64(width) * scale))
	h := int(math.Floor(float64(height) * scale))
	return max(w, 1), max(h, 1)
}

// Export decodes src, resamples it to the requested scale and re-encodes it.
// JPEG output is composited onto an opaque white canvas first, so no
// transparency survives.
func Export(src Image, opts ExportOptions) (*Exported, error) {
	if src.Empty() {
		return nil, fmt.Errorf("no image to export")
	}
	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if err := ValidateScale(opts.Scale); err != nil {
		return nil, err
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}

	img, _, err := Decode(src.Data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := ScaledSize(bounds.Dx(), bounds.Dy(), opts.Scale)
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	if opts.Format == FormatJPEG {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	switch opts.Format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: opts.JPEGQuality})
	case FormatPNG:
		err = png.Encode(&buf, canvas)
	default:
		return nil, fmt.Errorf("unsupported export format %q", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", opts.Format, err)
	}

	log.Debug().
		Int("orig_width", bounds.Dx()).
		Int("orig_height", bounds.Dy()).
		Int("new_width", width).
		Int("new_height", height).
		Str("format", string(opts.Format)).
		Int("output_size", buf.Len()).
		Msg("Image exported")

	return &Exported{
		Data:     buf.Bytes(),
		MIMEType: opts.Format.MIMEType(),
		Width:    width,
		Height:   height,
	}, nil
}

// FileName returns the download name nano-studio-<YYYY-MM-DD>.<ext> for the
// UTC calendar date of t.
func FileName(f Format, t time.Time) string {
	return fmt.Sprintf("nano-studio-%s.%s", t.UTC().Format(time.DateOnly), f.Ext())
}

// BundleFileName returns the download name for a history bundle.
func BundleFileName(t time.Time) string {
	return fmt.Sprintf("nano-studio-%s-history.zip", t.UTC().Format(time.DateOnly))
}

// OutputPath resolves where a download is written on disk: an explicit
// file, a directory (defaultName is placed inside it), or defaultName in the
// working directory.
func OutputPath(requested, defaultName string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return defaultName
	}
	if info, err := os.Stat(requested); err == nil && info.IsDir() {
		return filepath.Join(requested, defaultName)
	}
	return requested
}
