// Package studio implements the editing session: the uploaded original, the
// append-only history of edits, and the status machine that serialises
// calls to the remote image editor.
package studio

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusUploading
	StatusProcessing
	StatusSuccess
	StatusError
)

var statusNames = [...]string{
	StatusIdle:       "idle",
	StatusUploading:  "uploading",
	StatusProcessing: "processing",
	StatusSuccess:    "success",
	StatusError:      "error",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText encodes the status as its lower-case name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a lower-case status name.
func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

var (
	// ErrNoImage is returned when an operation needs a current image and
	// nothing has been uploaded.
	ErrNoImage = errors.New("no image loaded")
	// ErrEmptyInstruction is returned for blank edit instructions.
	ErrEmptyInstruction = errors.New("instruction is empty")
	// ErrBusy is returned when a generation is already in flight.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrSuperseded is returned when a reset, upload or cancel overtook a
	// pending operation; its result was discarded.
	ErrSuperseded = errors.New("operation superseded")
	// ErrTooLarge is returned for uploads above the configured limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrUnknownSession is returned by Store.Get for missing ids.
	ErrUnknownSession = errors.New("unknown session")
)

// User-facing fallback messages.
const (
	MsgReadFailed     = "failed to read file"
	MsgGenerateFailed = "something went wrong while generating"
	MsgTimedOut       = "the image service did not respond in time"
)
