//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs tesseract in-process through libtesseract bindings.
// Confidence is the mean of the word-level confidences.
type Gosseract struct {
	logger *slog.Logger
}

// NewGosseract returns the in-process engine.
func NewGosseract(logger *slog.Logger) *Gosseract {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gosseract{logger: logger}
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Check(context.Context) error {
	client := gosseract.NewClient()
	defer client.Close()
	if v := client.Version(); v == "" {
		return fmt.Errorf("gosseract: libtesseract reported no version")
	}
	return nil
}

func (g *Gosseract) Recognize(ctx context.Context, img image.Image, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	opts = opts.withDefaults()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Result{}, fmt.Errorf("encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if opts.TessdataDir != "" {
		client.TessdataPrefix = opts.TessdataDir
	}
	if err := client.SetLanguage(opts.Lang); err != nil {
		return Result{}, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
		return Result{}, fmt.Errorf("set psm: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		g.logger.Warn("ocr.word_boxes.failed", "error", err)
		return Result{Text: text}, nil
	}
	var sum float64
	var n int
	for _, box := range boxes {
		if box.Word == "" || box.Confidence < 0 {
			continue
		}
		sum += box.Confidence
		n++
	}
	var conf float64
	if n > 0 {
		conf = sum / float64(n)
	}
	return Result{Text: text, Confidence: conf}, nil
}
