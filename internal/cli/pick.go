package cli

import (
	"slices"

	"github.com/ncruces/zenity"
)

// PickImageFile opens the native file dialog. It returns zenity.ErrCanceled
// when the user closes the dialog.
func PickImageFile() (string, error) {
	patterns := make([]string, 0, len(SupportedImageExtensions))
	for ext := range SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	slices.Sort(patterns)
	return zenity.SelectFile(
		zenity.Title("Select a product photo"),
		zenity.FileFilters{{Name: "Images", Patterns: patterns}},
	)
}
