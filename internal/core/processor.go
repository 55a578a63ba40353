package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/parsefields"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/resolve"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/review"
	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
	"github.com/joseph-ayodele/marigram-tracker/internal/geocode"
	"github.com/joseph-ayodele/marigram-tracker/internal/ingest"
)

// ProcessorConfig holds the per-run knobs of Processor.
type ProcessorConfig struct {
	SaveOCRDir          string // when set, raw OCR text and the winning rendering are kept here
	MicrofilmName       string
	MicrofilmFromFolder bool
}

// Result is the outcome of processing one scan.
type Result struct {
	Record      entity.Record
	NeedsReview bool
	Variant     string
	Confidence  float64
	Anchors     int
}

// Processor turns one scan into one record: OCR, parse, resolve, optional
// geocode and optional human review.
type Processor struct {
	logger    *slog.Logger
	extractor *ocr.Extractor
	ref       resolve.Reference
	geocoder  geocode.Geocoder // nil disables lookups
	gate      *review.Gate     // nil means non-interactive
	cfg       ProcessorConfig
}

func NewProcessor(
	logger *slog.Logger,
	extractor *ocr.Extractor,
	ref resolve.Reference,
	geocoder geocode.Geocoder,
	gate *review.Gate,
	cfg ProcessorConfig,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if gate != nil {
		gate.WithStationLookup(func(country, location entity.Field) entity.Field {
			return resolve.LocationShort(country, location, ref.Stations)
		})
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		ref:       ref,
		geocoder:  geocoder,
		gate:      gate,
		cfg:       cfg,
	}
}

// Process reads the scan at localPath and builds its record. A reviewer
// declining the record yields review.ErrSkipped.
func (p *Processor) Process(ctx context.Context, it ingest.Item, localPath string) (Result, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, p.logger)

	img, err := ocr.LoadImage(localPath)
	if err != nil {
		return Result{}, err
	}
	best, err := p.extractor.BestOf(ctx, img)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: %w", err)
	}
	if p.cfg.SaveOCRDir != "" {
		if err := p.saveArtifacts(localPath, best); err != nil {
			logger.Warn("processor.save_ocr.failed", "error", err)
		}
	}

	draft := p.buildDraft(ctx, it, best)
	needsReview := draft.NeedsReview()
	logger.Info("processor.parsed",
		"path", it.RelPath,
		"country", draft.Country.Value,
		"state", draft.State.Value,
		"location", draft.Location.Value,
		"date", draft.RecordedDate.Value,
		"scale", draft.Scale.Value,
		"region", draft.RegionCode.Value,
		"needs_review", needsReview,
	)

	if p.gate != nil {
		ok, err := p.gate.Review(ctx, review.Header{
			RelPath:     it.RelPath,
			Variant:     best.Variant,
			Anchors:     best.Anchors,
			Confidence:  best.Confidence,
			NeedsReview: needsReview,
		}, &draft)
		if err != nil {
			return Result{}, fmt.Errorf("review: %w", err)
		}
		if !ok {
			return Result{}, review.ErrSkipped
		}
		needsReview = draft.NeedsReview()
	}

	logger.Debug("processor.done", "path", it.RelPath, "elapsed_ms", time.Since(start).Milliseconds())
	return Result{
		Record:      draft.Record(),
		NeedsReview: needsReview,
		Variant:     best.Variant,
		Confidence:  best.Confidence,
		Anchors:     best.Anchors,
	}, nil
}

// buildDraft runs everything after OCR. Parsing works on the normalized text;
// nothing here fails, a miss is an empty flagged field.
func (p *Processor) buildDraft(ctx context.Context, it ingest.Item, best ocr.Best) entity.Draft {
	text := ocr.Normalize(best.Text)
	triplet := parsefields.ParseTriplet(parsefields.Lines(text))

	d := entity.Draft{FileName: it.RelPath}
	d.Country, d.State, d.Location = p.ref.Triplet(triplet.Country, triplet.State, triplet.Location)
	d.RegionCode = resolve.Region(text, p.ref.Regions)
	d.LocationShort = resolve.LocationShort(d.Country, d.Location, p.ref.Stations)
	d.RecordedDate = presence(parsefields.ParseDate(text))
	d.Scale = presence(parsefields.ParseScale(text))

	if p.geocoder != nil {
		pt := geocode.Resolve(ctx, p.geocoder, accepted(d.Country), accepted(d.State), accepted(d.Location), p.logger)
		d.Latitude, d.Longitude = presence(pt.Lat), presence(pt.Lon)
	} else {
		d.Latitude, d.Longitude = entity.Accepted(""), entity.Accepted("")
	}

	d.MicrofilmName = presence(p.microfilmName(it.RelPath))
	d.Images = entity.Accepted("1")
	opts := p.extractor.Options()
	d.Comments = entity.Accepted(fmt.Sprintf("avg_conf=%.1f; anchors=%d; variant=%s; psm=%d; oem=%d; path=%s",
		best.Confidence, best.Anchors, best.Variant, opts.PSM, opts.OEM, it.RelPath))
	return d
}

func (p *Processor) microfilmName(rel string) string {
	if p.cfg.MicrofilmFromFolder {
		if top := strings.TrimSpace(ingest.TopFolder(rel)); top != "" {
			return top
		}
	}
	return p.cfg.MicrofilmName
}

var reUnsafe = regexp.MustCompile(`[^\w.\- ]+`)

func safeFilename(name string) string {
	name = strings.TrimSpace(reUnsafe.ReplaceAllString(name, "_"))
	if name == "" {
		return "file"
	}
	return name
}

func (p *Processor) saveArtifacts(localPath string, best ocr.Best) error {
	if err := os.MkdirAll(p.cfg.SaveOCRDir, 0o755); err != nil {
		return err
	}
	base := filepath.Base(localPath)
	stem := safeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	if err := os.WriteFile(filepath.Join(p.cfg.SaveOCRDir, stem+".txt"), []byte(best.Text), 0o644); err != nil {
		return err
	}
	if best.Image == nil {
		return nil
	}
	return imaging.Save(best.Image, filepath.Join(p.cfg.SaveOCRDir, stem+"_best.png"))
}

// presence accepts a non-empty value and flags an empty one.
func presence(v string) entity.Field {
	if v == "" {
		return entity.Flagged("")
	}
	return entity.Accepted(v)
}

// accepted returns the value only if nobody needs to look at it.
func accepted(f entity.Field) string {
	if f.NeedsReview {
		return ""
	}
	return f.Value
}

// DefaultMicrofilmName is UNKNOWN when no name is configured and none is
// taken from folders.
func DefaultMicrofilmName(name string, fromFolder bool) string {
	name = strings.TrimSpace(name)
	if name == "" && !fromFolder {
		return constants.UnknownMicrofilm
	}
	return name
}
