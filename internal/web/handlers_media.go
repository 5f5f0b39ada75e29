package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/imaging"
	"github.com/fpang/nano-studio/internal/studio"
)

// GET /api/sessions/{id}/images/{ref}
// ref is "original", "current" or a history index.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	img, err := sessionFrom(r).Image(chi.URLParam(r, "ref"))
	if err != nil {
		if errors.Is(err, studio.ErrNoImage) {
			httpError(w, http.StatusNotFound, err.Error())
			return
		}
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Write(img.Data)
}

// GET /api/sessions/{id}/export?format=png|jpeg&scale=1|0.5
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := imaging.FormatPNG
	var err error
	if raw := q.Get("format"); raw != "" {
		format, err = imaging.ParseFormat(raw)
	}
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	scale := 1.0
	if raw := q.Get("scale"); raw != "" {
		scale, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "scale must be a number")
			return
		}
	}
	if err := imaging.ValidateScale(scale); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := sessionFrom(r)
	out, err := sess.Export(imaging.ExportOptions{Format: format, Scale: scale})
	if err != nil {
		if errors.Is(err, studio.ErrNoImage) {
			respondError(w, err)
			return
		}
		log.Error().Err(err).Msg("Export failed")
		httpError(w, http.StatusUnprocessableEntity, fmt.Sprintf("export failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", out.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, imaging.FileName(format, sess.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.Write(out.Data)
}

// GET /api/sessions/{id}/bundle
func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var buf bytes.Buffer
	if err := sess.Bundle(&buf); err != nil {
		if errors.Is(err, studio.ErrNoImage) {
			respondError(w, err)
			return
		}
		log.Error().Err(err).Msg("Bundle failed")
		httpError(w, http.StatusInternalServerError, "failed to build history archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, imaging.BundleFileName(sess.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
