//go:build !cgo

package ocr

import (
	"context"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
)

// Gosseract is unavailable in builds without cgo; Check always fails.
type Gosseract struct{}

func NewGosseract(*slog.Logger) *Gosseract { return &Gosseract{} }

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Check(context.Context) error {
	return common.NewAppError(common.CodeOCR, "binary built without cgo; use the cli engine", common.ErrOCRUnavailable)
}

func (g *Gosseract) Recognize(context.Context, image.Image, Options) (Result, error) {
	return Result{}, common.ErrOCRUnavailable
}
