package studio

import (
	"fmt"

	"github.com/fpang/nano-studio/internal/imaging"
)

// History is an immutable sequence of images. The first entry is the
// uploaded original, the last is the current image. The zero value is empty.
type History struct {
	entries []imaging.Image
}

// NewHistory starts a history from an original image.
func NewHistory(original imaging.Image) History {
	return History{entries: []imaging.Image{original}}
}

// Len returns the number of entries.
func (h History) Len() int { return len(h.entries) }

// Empty reports whether nothing has been uploaded.
func (h History) Empty() bool { return len(h.entries) == 0 }

// Original returns the first entry.
func (h History) Original() (imaging.Image, bool) {
	if h.Empty() {
		return imaging.Image{}, false
	}
	return h.entries[0], true
}

// Current returns the last entry.
func (h History) Current() (imaging.Image, bool) {
	if h.Empty() {
		return imaging.Image{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// At returns entry i.
func (h History) At(i int) (imaging.Image, error) {
	if i < 0 || i >= len(h.entries) {
		return imaging.Image{}, fmt.Errorf("history index %d out of range [0,%d)", i, len(h.entries))
	}
	return h.entries[i], nil
}

// Append returns a new history with img as the current entry. The receiver
// is left unchanged.
func (h History) Append(img imaging.Image) History {
	next := make([]imaging.Image, len(h.entries), len(h.entries)+1)
	copy(next, h.entries)
	return History{entries: append(next, img)}
}

// Entries returns a copy of all entries, original first.
func (h History) Entries() []imaging.Image {
	out := make([]imaging.Image, len(h.entries))
	copy(out, h.entries)
	return out
}
