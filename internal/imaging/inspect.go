package imaging

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// Info describes an uploaded image. EXIF fields are best-effort; most
// edited outputs carry none.
type Info struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	MIMEType string `json:"mimeType"`
	Bytes    int    `json:"bytes"`

	CameraMake  string    `json:"cameraMake,omitempty"`
	CameraModel string    `json:"cameraModel,omitempty"`
	DateTaken   time.Time `json:"dateTaken,omitzero"`
	HasGPS      bool      `json:"hasGps,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
}

// Inspect reads the dimensions of img and whatever EXIF it carries.
func Inspect(img Image) (*Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	info := &Info{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   format,
		MIMEType: img.MIMEType,
		Bytes:    len(img.Data),
	}

	exifData, err := imagemeta.Decode(bytes.NewReader(img.Data))
	if err != nil {
		log.Debug().Err(err).Str("format", format).Msg("No EXIF metadata in image")
		return info, nil
	}

	info.CameraMake = strings.TrimSpace(exifData.Make)
	info.CameraModel = strings.TrimSpace(exifData.Model)

	switch {
	case !exifData.DateTimeOriginal().IsZero():
		info.DateTaken = exifData.DateTimeOriginal()
	case !exifData.CreateDate().IsZero():
		info.DateTaken = exifData.CreateDate()
	case !exifData.ModifyDate().IsZero():
		info.DateTaken = exifData.ModifyDate()
	}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		info.HasGPS = true
		info.Latitude = gps.Latitude()
		info.Longitude = gps.Longitude()
	}

	log.Debug().
		Str("camera_make", info.CameraMake).
		Str("camera_model", info.CameraModel).
		Bool("has_gps", info.HasGPS).
		Msg("Image metadata extracted")

	return info, nil
}
