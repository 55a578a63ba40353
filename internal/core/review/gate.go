// Package review lets a human confirm or override the fields of a draft
// record before it is written.
package review

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
)

// ErrSkipped marks a record the reviewer declined to save.
var ErrSkipped = errors.New("skipped by reviewer")

// FieldPrompt describes one field shown to the reviewer.
type FieldPrompt struct {
	Column      constants.Column
	Current     string
	NeedsReview bool
}

// Header is the per-item banner shown before the fields.
type Header struct {
	RelPath     string
	Variant     string
	Anchors     int
	Confidence  float64
	NeedsReview bool
}

// Prompter asks the reviewer questions. AskField returns "" to keep the
// current value.
type Prompter interface {
	AskField(ctx context.Context, p FieldPrompt) (string, error)
	Confirm(ctx context.Context, question string, defaultYes bool) (bool, error)
}

// Presenter is optionally implemented by prompters that can show a banner.
type Presenter interface {
	Present(ctx context.Context, h Header) error
}

// FieldOrder is the order fields are walked in.
var FieldOrder = []constants.Column{
	constants.ColCountry,
	constants.ColState,
	constants.ColLocation,
	constants.ColRecordedDate,
	constants.ColScale,
	constants.ColRegionCode,
	constants.ColLocationShort,
	constants.ColLatitude,
	constants.ColLongitude,
	constants.ColMicrofilmName,
	constants.ColImages,
	constants.ColComments,
}

// StationLookup derives LOCATION_SHORT from a country and a location.
type StationLookup func(country, location entity.Field) entity.Field

// Gate walks a draft through a Prompter.
type Gate struct {
	prompter Prompter
	stations StationLookup
	logger   *slog.Logger
}

func NewGate(p Prompter, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{prompter: p, logger: logger}
}

// WithStationLookup makes the gate look LOCATION_SHORT up again when the
// reviewer changed COUNTRY or LOCATION earlier in the walk.
func (g *Gate) WithStationLookup(fn StationLookup) *Gate {
	g.stations = fn
	return g
}

// Review shows every field of d in FieldOrder. A non-empty answer replaces the
// value and clears its flag; overrides are trusted as typed. It returns false
// when the reviewer declines the final confirmation, in which case d must not
// be written.
func (g *Gate) Review(ctx context.Context, h Header, d *entity.Draft) (bool, error) {
	logger := common.LoggerFrom(ctx, g.logger)
	if p, ok := g.prompter.(Presenter); ok {
		if err := p.Present(ctx, h); err != nil {
			return false, err
		}
	}

	overrides := 0
	placeChanged := false
	for _, col := range FieldOrder {
		f := draftField(d, col)
		if col == constants.ColLocationShort && placeChanged && g.stations != nil {
			*f = g.stations(d.Country, d.Location)
			logger.Debug("review.location_short.relooked", "value", f.Value)
		}
		answer, err := g.prompter.AskField(ctx, FieldPrompt{Column: col, Current: f.Value, NeedsReview: f.NeedsReview})
		if err != nil {
			return false, err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			*f = entity.Accepted(answer)
			overrides++
			if col == constants.ColCountry || col == constants.ColLocation {
				placeChanged = true
			}
		}
	}

	ok, err := g.prompter.Confirm(ctx, "Save this record?", true)
	if err != nil {
		return false, err
	}
	logger.Info("review.done", "path", h.RelPath, "overrides", overrides, "saved", ok)
	return ok, nil
}

func draftField(d *entity.Draft, col constants.Column) *entity.Field {
	switch col {
	case constants.ColCountry:
		return &d.Country
	case constants.ColState:
		return &d.State
	case constants.ColLocation:
		return &d.Location
	case constants.ColRecordedDate:
		return &d.RecordedDate
	case constants.ColScale:
		return &d.Scale
	case constants.ColRegionCode:
		return &d.RegionCode
	case constants.ColLocationShort:
		return &d.LocationShort
	case constants.ColLatitude:
		return &d.Latitude
	case constants.ColLongitude:
		return &d.Longitude
	case constants.ColMicrofilmName:
		return &d.MicrofilmName
	case constants.ColImages:
		return &d.Images
	case constants.ColComments:
		return &d.Comments
	}
	panic("review: no draft field for column " + string(col))
}
