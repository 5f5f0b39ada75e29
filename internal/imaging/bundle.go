package imaging

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// ZipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const ZipMethodZstd uint16 = 93

// Compression selects how bundle entries are compressed.
type Compression string

const (
	CompressionStore   Compression = "store"
	CompressionDeflate Compression = "deflate"
	CompressionZstd    Compression = "zstd"
)

// ParseCompression validates a configured compression name.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case CompressionStore, CompressionDeflate, CompressionZstd:
		return c, nil
	case "":
		return CompressionDeflate, nil
	default:
		return "", fmt.Errorf("unsupported bundle compression %q: must be store, deflate or zstd", s)
	}
}

func (c Compression) method() uint16 {
	switch c {
	case CompressionStore:
		return zip.Store
	case CompressionZstd:
		return ZipMethodZstd
	default:
		return zip.Deflate
	}
}

// WriteBundle writes images into a ZIP archive as 00-original.<ext>,
// 01-edit.<ext>, and so on, in history order.
func WriteBundle(w io.Writer, images []Image, c Compression, modTime time.Time) error {
	if len(images) == 0 {
		return fmt.Errorf("no images to bundle")
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	zw.RegisterCompressor(ZipMethodZstd, func(out io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})

	for i, img := range images {
		header := &zip.FileHeader{
			Name:   BundleEntryName(i, img.MIMEType),
			Method: c.method(),
		}
		header.SetModTime(modTime)

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create ZIP entry %s: %w", header.Name, err)
		}
		if _, err := entry.Write(img.Data); err != nil {
			return fmt.Errorf("write ZIP entry %s: %w", header.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close ZIP writer: %w", err)
	}

	log.Debug().
		Int("entries", len(images)).
		Str("compression", string(c)).
		Msg("History bundle written")
	return nil
}

// BundleEntryName names the i-th history entry inside a bundle.
func BundleEntryName(i int, mimeType string) string {
	label := "edit"
	if i == 0 {
		label = "original"
	}
	return fmt.Sprintf("%02d-%s.%s", i, label, ExtForMIME(mimeType))
}

// ExtForMIME maps an image media type to a file extension.
func ExtForMIME(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	default:
		return "img"
	}
}
