package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/imaging"
	"github.com/fpang/nano-studio/internal/studio"
)

// multipartOverhead is the allowance for boundaries and part headers on
// top of the image itself.
const multipartOverhead = 1 << 20

// GET /api/presets
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog)
}

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create()
	respondJSON(w, http.StatusCreated, sess.Snapshot())
}

// GET /api/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

// DELETE /api/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(sessionFrom(r).ID())
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/sessions/{id}/upload (multipart, field "image")
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		httpError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, `missing "image" field`)
			return
		}
		if err != nil {
			respondError(w, readError(err))
			return
		}
		if part.FormName() != "image" {
			part.Close()
			continue
		}

		mimeType := part.Header.Get("Content-Type")
		if !imaging.IsImageMIME(mimeType) {
			part.Close()
			httpError(w, http.StatusBadRequest, "only image files are accepted")
			return
		}

		err = sess.Upload(r.Context(), part, mimeType)
		part.Close()
		if err != nil {
			respondError(w, readError(err))
			return
		}
		log.Info().Str("session_id", sess.ID()).Str("filename", part.FileName()).Msg("Upload received")
		respondJSON(w, http.StatusOK, sess.Snapshot())
		return
	}
}

// readError keeps size violations distinguishable and reports every other
// read problem as a bad request.
func readError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.Is(err, studio.ErrTooLarge) || errors.As(err, &maxErr) || errors.Is(err, studio.ErrSuperseded) {
		return err
	}
	return badRequest{err}
}

type badRequest struct{ error }

func (e badRequest) Unwrap() error { return e.error }

type generateRequest struct {
	Instruction string `json:"instruction"`
	Preset      string `json:"preset"`
}

// POST /api/sessions/{id}/generate
//
// The call blocks until the edit finishes. Status transitions are pushed
// to event subscribers in the meantime.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" && req.Preset != "" {
		text, err := s.catalog.Instruction(req.Preset)
		if err != nil {
			respondError(w, err)
			return
		}
		instruction = text
	}

	// A dropped connection must not abort the edit; /cancel does that.
	ctx := context.WithoutCancel(r.Context())
	if _, err := sess.Generate(ctx, instruction); err != nil {
		if errors.Is(err, studio.ErrNoImage) || errors.Is(err, studio.ErrEmptyInstruction) ||
			errors.Is(err, studio.ErrBusy) || errors.Is(err, studio.ErrSuperseded) {
			respondError(w, err)
			return
		}
		snap := sess.Snapshot()
		msg := snap.Error
		if msg == "" {
			msg = studio.MsgGenerateFailed
		}
		httpError(w, http.StatusBadGateway, msg)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

// POST /api/sessions/{id}/cancel
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	cancelled := sess.Cancel()
	respondJSON(w, http.StatusOK, map[string]any{
		"cancelled": cancelled,
		"session":   sess.Snapshot(),
	})
}

// POST /api/sessions/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Reset()
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

// POST /api/sessions/{id}/dismiss
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.DismissError()
	respondJSON(w, http.StatusOK, sess.Snapshot())
}
