package constants

import "strings"

// ImageExtensions holds the file extensions treated as marigram scans.
var ImageExtensions = map[string]struct{}{
	"tif":  {},
	"tiff": {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether ext (with or without a dot) names a supported scan format.
func IsImageExt(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}
