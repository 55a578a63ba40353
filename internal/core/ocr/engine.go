package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
)

// Options are the tesseract knobs shared by every engine.
type Options struct {
	Lang        string
	PSM         int // page segmentation mode, always passed; 6 = uniform block of text
	OEM         int // engine mode, always passed; 0 = legacy, 3 = default
	TessdataDir string
}

func (o Options) withDefaults() Options {
	if o.Lang == "" {
		o.Lang = "eng"
	}
	return o
}

// Result is the text of one rendering plus the engine's mean word confidence (0..100).
type Result struct {
	Text       string
	Confidence float64
}

// Engine recognizes text in a single in-memory image.
type Engine interface {
	Name() string
	// Check fails when the engine cannot run at all. Callers treat that as fatal.
	Check(ctx context.Context) error
	Recognize(ctx context.Context, img image.Image, opts Options) (Result, error)
}

// TesseractCLI drives the tesseract binary: one pass for text, one TSV pass for confidence.
type TesseractCLI struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

// NewTesseractCLI returns an engine that shells out to bin ("tesseract" when empty).
func NewTesseractCLI(bin string, logger *slog.Logger) *TesseractCLI {
	if logger == nil {
		logger = slog.Default()
	}
	if bin == "" {
		bin = "tesseract"
	}
	return &TesseractCLI{bin: bin, runner: execRunner{}, logger: logger}
}

func (t *TesseractCLI) Name() string { return "tesseract-cli" }

func (t *TesseractCLI) Check(ctx context.Context) error {
	if _, err := exec.LookPath(t.bin); err != nil {
		return common.NewAppError(common.CodeOCR, fmt.Sprintf("%s not found on PATH", t.bin), common.ErrOCRUnavailable)
	}
	if _, errb, err := t.runner.Run(ctx, t.bin, t.logger, "--version"); err != nil {
		return common.NewAppError(common.CodeOCR, clip(errb), fmt.Errorf("%w: %v", common.ErrOCRUnavailable, err))
	}
	return nil
}

func (t *TesseractCLI) Recognize(ctx context.Context, img image.Image, opts Options) (Result, error) {
	opts = opts.withDefaults()

	tmp, err := os.CreateTemp("", "marigram-variant-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("create temp image: %w", err)
	}
	path := tmp.Name()
	defer func() { _ = os.Remove(path) }()
	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("encode temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("close temp image: %w", err)
	}

	// tesseract <file> stdout -l <lang> --psm N --oem M
	out, errb, err := t.runner.Run(ctx, t.bin, t.logger, t.args(path, opts)...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w: %s", err, clip(errb))
	}
	text := string(out)

	conf, err := t.meanConfidence(ctx, path, opts)
	if err != nil {
		t.logger.Warn("ocr.tsv_confidence.failed", "error", err)
	}
	return Result{Text: text, Confidence: conf}, nil
}

func (t *TesseractCLI) args(path string, opts Options) []string {
	args := []string{path, "stdout", "-l", opts.Lang, "--psm", strconv.Itoa(opts.PSM), "--oem", strconv.Itoa(opts.OEM)}
	if opts.TessdataDir != "" {
		args = append(args, "--tessdata-dir", opts.TessdataDir)
	}
	return args
}

// meanConfidence runs tesseract in TSV mode and returns the mean word conf (0..100).
func (t *TesseractCLI) meanConfidence(ctx context.Context, path string, opts Options) (float64, error) {
	args := append(t.args(path, opts), "tsv")
	out, errb, err := t.runner.Run(ctx, t.bin, t.logger, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w: %s", err, clip(errb))
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column of tesseract TSV output, skipping
// the header and the -1 entries tesseract emits for non-word rows.
func meanTSVConfidence(tsv string) float64 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[10]), 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}
