package ocr

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
)

// Best is the winning rendering of one scan.
type Best struct {
	Candidate
	Image      image.Image
	Candidates []Candidate // every rendering, in render order
	Duration   time.Duration
}

// Extractor OCRs every rendering of a scan and keeps the structurally best text.
type Extractor struct {
	engine Engine
	opts   Options
	logger *slog.Logger
}

func NewExtractor(engine Engine, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{engine: engine, opts: opts.withDefaults(), logger: logger}
}

// Options returns the engine options in effect.
func (e *Extractor) Options() Options { return e.opts }

// BestOf renders img, OCRs each rendering and returns the winner.
// A failing rendering contributes empty text with zero confidence; only
// context cancellation aborts.
func (e *Extractor) BestOf(ctx context.Context, img image.Image) (Best, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, e.logger)

	variants := Render(img)
	cands := make([]Candidate, 0, len(variants))
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return Best{}, err
		}
		res, err := e.engine.Recognize(ctx, v.Image, e.opts)
		if err != nil {
			logger.Warn("ocr.variant.failed", "variant", v.Name, "engine", e.engine.Name(), "error", err)
			res = Result{}
		}
		c := NewCandidate(v.Name, res.Text, res.Confidence)
		logger.Debug("ocr.variant.scored",
			"variant", c.Variant,
			"anchors", c.Anchors,
			"confidence", c.Confidence,
			"chars", len(c.Text),
		)
		cands = append(cands, c)
	}

	idx := SelectBest(cands)
	best := Best{
		Candidate:  cands[idx],
		Image:      variants[idx].Image,
		Candidates: cands,
		Duration:   time.Since(start),
	}
	logger.Info("ocr.best_variant",
		"variant", best.Variant,
		"anchors", best.Anchors,
		"confidence", best.Confidence,
		"chars", len(best.Text),
		"elapsed_ms", best.Duration.Milliseconds(),
	)
	return best, nil
}
