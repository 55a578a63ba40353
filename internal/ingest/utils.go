package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/marigram-tracker/constants"
)

// IsImage reports whether name has a supported scan extension.
func IsImage(name string) bool {
	return constants.IsImageExt(filepath.Ext(name))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
