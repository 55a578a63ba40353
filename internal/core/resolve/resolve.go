package resolve

import (
	"regexp"

	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
)

var (
	reBracketRegion = regexp.MustCompile(`\[(\d{2})\]`)
	reLabelRegion   = regexp.MustCompile(`(?i)\bREGION\b[^0-9]*(\d{2})\b`)
	reStationCode   = regexp.MustCompile(`^[A-Za-z0-9]{3,6}$`)
)

// Field accepts candidate when its normalized form is in vocab. Otherwise the
// candidate is returned untouched and flagged; an empty candidate stays empty.
func Field(candidate string, vocab Vocabulary) entity.Field {
	k := Key(candidate)
	if k == "" {
		return entity.Flagged("")
	}
	if vocab.Contains(k) {
		return entity.Accepted(k)
	}
	return entity.Flagged(candidate)
}

// Region finds a two-digit region code that regions knows: a bracketed code
// ("[22]") first, then one after the word REGION. A bracketed code missing from
// the map does not hide a known labelled one.
func Region(text string, regions RegionMap) entity.Field {
	for _, re := range []*regexp.Regexp{reBracketRegion, reLabelRegion} {
		if m := re.FindStringSubmatch(text); m != nil && regions.Has(m[1]) {
			return entity.Accepted(m[1])
		}
	}
	return entity.Flagged("")
}

// LocationShort derives the station code for a resolved country and location.
// Either input still needing review, a missing pair or a malformed code yields
// an empty flagged field.
func LocationShort(country, location entity.Field, stations StationIndex) entity.Field {
	if country.NeedsReview || location.NeedsReview || country.Value == "" || location.Value == "" {
		return entity.Flagged("")
	}
	code, ok := stations.Lookup(country.Value, location.Value)
	if !ok || !reStationCode.MatchString(code) {
		return entity.Flagged("")
	}
	return entity.Accepted(code)
}

// Triplet resolves the three location fields of a parse result in one go.
func (r Reference) Triplet(country, state, location string) (c, s, l entity.Field) {
	return Field(country, r.Countries), Field(state, r.States), Field(location, r.Locations)
}
