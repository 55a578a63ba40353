package reference

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/marigram-tracker/internal/core/resolve"
)

// VocabularySource yields the NOAA allow-lists.
type VocabularySource interface {
	Load(ctx context.Context) (Vocabularies, error)
}

// StationSource yields the station index.
type StationSource interface {
	Load(ctx context.Context) (resolve.StationIndex, error)
}

// Build assembles the Reference for a run. Vocabulary errors are returned as
// is; a station failure only costs LOCATION_SHORT, so it is logged and the
// index is left empty. stations may be nil.
func Build(ctx context.Context, vocab VocabularySource, stations StationSource, logger *slog.Logger) (resolve.Reference, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v, err := vocab.Load(ctx)
	if err != nil {
		return resolve.Reference{}, err
	}
	ref := resolve.Reference{
		Countries: v.Countries,
		States:    v.States,
		Locations: v.Locations,
		Regions:   v.Regions,
	}
	if stations == nil {
		return ref, nil
	}
	idx, err := stations.Load(ctx)
	if err != nil {
		logger.Warn("reference.ioc.unavailable", "error", err)
		return ref, nil
	}
	ref.Stations = idx
	return ref, nil
}
