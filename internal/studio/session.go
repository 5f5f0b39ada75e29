package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/imaging"
	"github.com/fpang/nano-studio/internal/metrics"
)

// Editor applies a natural-language edit to an image. Implementations talk
// to the remote generative model; the returned image becomes the new
// current image.
type Editor interface {
	EditImage(ctx context.Context, src imaging.Image, instruction string) (imaging.Image, error)
}

// Options tunes session behaviour. Zero values fall back to defaults.
type Options struct {
	// MaxUploadBytes caps a single upload (default 25 MiB).
	MaxUploadBytes int64
	// RequestTimeout bounds one remote edit call. Zero means no timeout.
	RequestTimeout time.Duration
	// JPEGQuality is used by Export when the caller passes none.
	JPEGQuality int
	// Compression is the bundle entry compression.
	Compression imaging.Compression
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// DefaultMaxUploadBytes is the upload cap when Options leaves it unset.
const DefaultMaxUploadBytes = 25 << 20

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = imaging.DefaultJPEGQuality
	}
	if o.Compression == "" {
		o.Compression = imaging.CompressionDeflate
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Snapshot is a copy of the observable session state.
type Snapshot struct {
	ID         string        `json:"id"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	MIMEType   string        `json:"mimeType,omitempty"`
	HasImage   bool          `json:"hasImage"`
	HistoryLen int           `json:"historyLength"`
	Edited     bool          `json:"edited"`
	CanCompare bool          `json:"canCompare"`
	Generation uint64        `json:"generation"`
	Info       *imaging.Info `json:"info,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Session is one user's editing workspace. All methods are safe for
// concurrent use; the remote call runs outside the lock.
type Session struct {
	id     string
	editor Editor
	opts   Options

	mu         sync.Mutex
	history    History
	mimeType   string
	info       *imaging.Info
	status     Status
	message    string
	generation uint64
	cancel     context.CancelFunc
	lastActive time.Time
	subs       map[chan Event]struct{}
	closed     bool
}

// NewSession creates an empty session.
func NewSession(id string, editor Editor, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:         id,
		editor:     editor,
		opts:       opts,
		status:     StatusIdle,
		lastActive: opts.Now(),
		subs:       make(map[chan Event]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Upload reads an image from r and makes it both the original and the
// current image, discarding any previous history. A read failure leaves
// the image state untouched and puts the session in the error state.
func (s *Session) Upload(ctx context.Context, r io.Reader, declaredMIME string) error {
	s.mu.Lock()
	gen := s.supersedeLocked()
	s.setStatusLocked(StatusUploading, "")
	s.mu.Unlock()

	data, err := readLimited(ctx, r, s.opts.MaxUploadBytes)
	if err == nil && len(data) == 0 {
		err = errors.New("empty file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrSuperseded
	}
	if err != nil {
		return s.readFailedLocked(err)
	}

	s.loadLocked(imaging.Image{Data: data, MIMEType: imaging.ResolveMIME(declaredMIME, data)})
	return nil
}

// UploadFile opens path and uploads it. A file that cannot be opened is a
// failed read like any other.
func (s *Session) UploadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.supersedeLocked()
		return s.readFailedLocked(err)
	}
	defer f.Close()
	return s.Upload(ctx, f, mime.TypeByExtension(filepath.Ext(path)))
}

func (s *Session) readFailedLocked(err error) error {
	s.setStatusLocked(StatusError, MsgReadFailed)
	log.Warn().Err(err).Str("session_id", s.id).Msg("Upload failed")
	return fmt.Errorf("%s: %w", MsgReadFailed, err)
}

func (s *Session) loadLocked(img imaging.Image) {
	s.history = NewHistory(img)
	s.mimeType = img.MIMEType
	s.info = nil
	if info, err := imaging.Inspect(img); err == nil {
		s.info = info
	} else {
		log.Debug().Err(err).Str("session_id", s.id).Msg("Could not inspect upload")
	}

	log.Info().
		Str("session_id", s.id).
		Str("mime_type", img.MIMEType).
		Int("bytes", len(img.Data)).
		Msg("Image uploaded")

	s.setStatusLocked(StatusIdle, "")
}

// Generate sends the current image and instruction to the editor. On
// success the result is appended to the history and becomes current. On
// failure the image state is unchanged and the session carries the error
// message. Only one generation may be in flight at a time.
func (s *Session) Generate(ctx context.Context, instruction string) (imaging.Image, error) {
	instruction = strings.TrimSpace(instruction)

	s.mu.Lock()
	current, ok := s.history.Current()
	switch {
	case !ok:
		s.mu.Unlock()
		return imaging.Image{}, ErrNoImage
	case instruction == "":
		s.mu.Unlock()
		return imaging.Image{}, ErrEmptyInstruction
	case s.status == StatusProcessing, s.status == StatusUploading:
		s.mu.Unlock()
		return imaging.Image{}, ErrBusy
	}

	s.generation++
	gen := s.generation
	var callCtx context.Context
	var cancel context.CancelFunc
	if s.opts.RequestTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	s.cancel = cancel
	src := imaging.Image{Data: current.Data, MIMEType: s.mimeType}
	s.setStatusLocked(StatusProcessing, "")
	s.mu.Unlock()

	log.Info().
		Str("session_id", s.id).
		Uint64("generation", gen).
		Int("instruction_len", len(instruction)).
		Msg("Generating edit")

	start := s.opts.Now()
	result, err := s.editor.EditImage(callCtx, src, instruction)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()
	elapsed := s.opts.Now().Sub(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		log.Info().Str("session_id", s.id).Uint64("generation", gen).Msg("Discarding superseded edit result")
		recordEdit("superseded", elapsed)
		return imaging.Image{}, ErrSuperseded
	}
	s.cancel = nil

	if err == nil && result.Empty() {
		err = errors.New("no image returned")
	}
	if err != nil {
		msg := err.Error()
		if timedOut {
			msg = MsgTimedOut
		}
		if strings.TrimSpace(msg) == "" {
			msg = MsgGenerateFailed
		}
		s.setStatusLocked(StatusError, msg)
		log.Error().Err(err).Str("session_id", s.id).Dur("duration", elapsed).Msg("Edit failed")
		recordEdit("error", elapsed)
		return imaging.Image{}, err
	}

	if result.MIMEType == "" {
		result.MIMEType = src.MIMEType
	}
	s.history = s.history.Append(result)
	s.mimeType = result.MIMEType
	s.setStatusLocked(StatusSuccess, "")

	log.Info().
		Str("session_id", s.id).
		Int("history_len", s.history.Len()).
		Dur("duration", elapsed).
		Msg("Edit applied")
	recordEdit("success", elapsed)
	return result, nil
}

// Cancel aborts an in-flight generation. The image state is untouched and
// the session returns to idle. It reports whether anything was cancelled.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusProcessing {
		return false
	}
	s.supersedeLocked()
	s.setStatusLocked(StatusIdle, "")
	log.Info().Str("session_id", s.id).Msg("Generation cancelled")
	return true
}

// Reset clears the original, current image, history and media type.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.history = History{}
	s.mimeType = ""
	s.info = nil
	s.setStatusLocked(StatusIdle, "")
	log.Info().Str("session_id", s.id).Msg("Session reset")
}

// DismissError clears the error message without touching anything else.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message == "" {
		return
	}
	s.message = ""
	s.touchLocked()
	s.publishLocked()
}

// supersedeLocked invalidates whatever is in flight and returns the new
// generation.
func (s *Session) supersedeLocked() uint64 {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return s.generation
}

func (s *Session) setStatusLocked(status Status, message string) {
	s.status = status
	s.message = message
	s.touchLocked()
	s.publishLocked()
}

func (s *Session) touchLocked() {
	s.lastActive = s.opts.Now()
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	edited := s.history.Len() > 1
	return Snapshot{
		ID:         s.id,
		Status:     s.status,
		Error:      s.message,
		MIMEType:   s.mimeType,
		HasImage:   !s.history.Empty(),
		HistoryLen: s.history.Len(),
		Edited:     edited,
		CanCompare: edited && s.status != StatusProcessing,
		Generation: s.generation,
		Info:       s.info,
		UpdatedAt:  s.lastActive,
	}
}

// History returns the current history value.
func (s *Session) History() History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Image resolves "original", "current" or a history index.
func (s *Session) Image(ref string) (imaging.Image, error) {
	h := s.History()
	if h.Empty() {
		return imaging.Image{}, ErrNoImage
	}
	switch ref {
	case "original":
		img, _ := h.Original()
		return img, nil
	case "current", "":
		img, _ := h.Current()
		return img, nil
	}
	i, err := strconv.Atoi(ref)
	if err != nil {
		return imaging.Image{}, fmt.Errorf("invalid image reference %q", ref)
	}
	return h.At(i)
}

// Now returns the session clock.
func (s *Session) Now() time.Time { return s.opts.Now() }

// Export renders the current image for download.
func (s *Session) Export(opts imaging.ExportOptions) (*imaging.Exported, error) {
	current, ok := s.History().Current()
	if !ok {
		return nil, ErrNoImage
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = s.opts.JPEGQuality
	}

	start := s.opts.Now()
	out, err := imaging.Export(current, opts)
	if err != nil {
		return nil, err
	}

	metrics.New(metrics.Namespace).
		Dimension("Format", string(opts.Format)).
		Metric("ExportMs", float64(s.opts.Now().Sub(start).Milliseconds()), metrics.UnitMilliseconds).
		Metric("ExportBytes", float64(len(out.Data)), metrics.UnitBytes).
		Flush()
	return out, nil
}

// Bundle writes every history entry into a ZIP archive.
func (s *Session) Bundle(w io.Writer) error {
	h := s.History()
	if h.Empty() {
		return ErrNoImage
	}
	return imaging.WriteBundle(w, h.Entries(), s.opts.Compression, s.opts.Now())
}

// LastActive returns the time of the last state change.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// close cancels in-flight work and closes every subscriber channel.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.supersedeLocked()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

func recordEdit(result string, elapsed time.Duration) {
	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Metric("EditLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("EditResult").
		Flush()
}

// readLimited reads all of r, failing once more than limit bytes arrive or
// ctx is done.
func readLimited(ctx context.Context, r io.Reader, limit int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
