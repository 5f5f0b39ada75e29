package web

import (
	"errors"
	"net/http"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

var imagePatterns = []string{
	"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.bmp", "*.tif", "*.tiff",
}

// pickImageFile opens the host's native file dialog.
func pickImageFile() (string, error) {
	return zenity.SelectFile(
		zenity.Title("Select a product photo"),
		zenity.FileFilters{
			{Name: "Images", Patterns: imagePatterns},
		},
	)
}

// POST /api/sessions/{id}/pick
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	if !s.opts.NativePicker {
		httpError(w, http.StatusNotFound, "native file picker is disabled")
		return
	}
	sess := sessionFrom(r)

	path, err := s.opts.Picker()
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			respondJSON(w, http.StatusOK, map[string]any{
				"canceled": true,
				"session":  sess.Snapshot(),
			})
			return
		}
		log.Error().Err(err).Msg("File picker failed")
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}

	// Open failures leave the session in the error state, same as a bad upload.
	if err := sess.UploadFile(r.Context(), path); err != nil {
		respondError(w, readError(err))
		return
	}
	log.Info().Str("session_id", sess.ID()).Str("path", path).Msg("File picked via native dialog")
	respondJSON(w, http.StatusOK, map[string]any{
		"canceled": false,
		"session":  sess.Snapshot(),
	})
}
