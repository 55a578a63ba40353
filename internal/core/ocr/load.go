package ocr

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WEBP decoder for imaging.Open
)

// LoadImage decodes a scan from disk (TIFF, PNG, JPEG, WEBP), honouring EXIF orientation.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return img, nil
}
