package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/presets"
	"github.com/fpang/nano-studio/internal/studio"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondError maps domain errors to status codes. Anything unrecognised
// is treated as a failure of the remote editor.
func respondError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Int("status", status).Msg("Request failed")
	}
	httpError(w, status, err.Error())
}

func statusForError(err error) int {
	var maxErr *http.MaxBytesError
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, errInvalidSessionID),
		errors.Is(err, studio.ErrNoImage),
		errors.Is(err, studio.ErrEmptyInstruction),
		errors.Is(err, presets.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, studio.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrBusy), errors.Is(err, studio.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, studio.ErrTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}
