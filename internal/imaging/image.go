// Package imaging holds the image payload type shared by the studio, the
// export pipeline that turns the current edit into a downloadable file, and
// the helpers used to inspect uploads.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is an encoded image payload plus its declared media type.
type Image struct {
	Data     []byte
	MIMEType string
}

// Empty reports whether the image carries no bytes.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// DataURI renders the image as a base64 data URI (data:<mime>;base64,<payload>).
func (i Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ParseDataURI decodes a base64 data URI into an Image.
func ParseDataURI(uri string) (Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Image{}, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("data URI has no payload separator")
	}
	mimeType, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return Image{}, fmt.Errorf("unsupported data URI encoding %q", enc)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

// IsImageMIME reports whether a declared media type is an image type.
// Only the "image/" prefix is checked; the bytes are not inspected.
func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// DetectMIME sniffs the media type of raw bytes.
func DetectMIME(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType
}

// ResolveMIME returns the declared media type, falling back to sniffing the
// payload when the declaration is missing or generic.
func ResolveMIME(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared == "" || declared == "application/octet-stream" {
		return DetectMIME(data)
	}
	return declared
}

// Decode decodes any registered raster format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}
