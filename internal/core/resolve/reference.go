// Package resolve checks parsed candidates against authoritative reference
// data. Matching is exact on the normalized (trimmed, upper-cased) string;
// nothing is ever guessed.
package resolve

import "strings"

// Key normalizes a value for vocabulary comparison.
func Key(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Vocabulary is an immutable set of normalized strings.
type Vocabulary struct {
	set map[string]struct{}
}

// NewVocabulary normalizes values and drops empties.
func NewVocabulary(values []string) Vocabulary {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k := Key(v); k != "" {
			set[k] = struct{}{}
		}
	}
	return Vocabulary{set: set}
}

// Contains reports whether the normalized form of s is in the vocabulary.
func (v Vocabulary) Contains(s string) bool {
	_, ok := v.set[Key(s)]
	return ok
}

func (v Vocabulary) Len() int { return len(v.set) }

// RegionMap maps two-digit region codes to their descriptions.
// Only membership is used for resolution.
type RegionMap struct {
	codes map[string]string
}

func NewRegionMap(codes map[string]string) RegionMap {
	m := make(map[string]string, len(codes))
	for k, v := range codes {
		if k = strings.TrimSpace(k); k != "" {
			m[k] = v
		}
	}
	return RegionMap{codes: m}
}

func (r RegionMap) Has(code string) bool {
	_, ok := r.codes[code]
	return ok
}

// Description returns the human label for code, if known.
func (r RegionMap) Description(code string) string { return r.codes[code] }

func (r RegionMap) Len() int { return len(r.codes) }

// Station is one row of the tide-station directory.
type Station struct {
	Code     string
	Country  string
	Location string
}

// StationIndex maps a normalized (country, location) pair to a station code.
// When the directory lists the same pair twice, the first row wins.
type StationIndex struct {
	codes map[[2]string]string
}

func NewStationIndex(stations []Station) StationIndex {
	m := make(map[[2]string]string, len(stations))
	for _, s := range stations {
		k := [2]string{Key(s.Country), Key(s.Location)}
		code := strings.TrimSpace(s.Code)
		if k[0] == "" || k[1] == "" || code == "" {
			continue
		}
		if _, dup := m[k]; !dup {
			m[k] = code
		}
	}
	return StationIndex{codes: m}
}

// Lookup returns the station code for the pair, if any.
func (s StationIndex) Lookup(country, location string) (string, bool) {
	code, ok := s.codes[[2]string{Key(country), Key(location)}]
	return code, ok
}

func (s StationIndex) Len() int { return len(s.codes) }

// Reference bundles every vocabulary a run resolves against. It is built once
// at startup and only read afterwards.
type Reference struct {
	Countries Vocabulary
	States    Vocabulary
	Locations Vocabulary
	Regions   RegionMap
	Stations  StationIndex
}
