package ocr

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/joseph-ayodele/marigram-tracker/internal/core/parsefields"
)

// Words that are common on marigram headers.
var anchorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bCOUNTRY\b`),
	regexp.MustCompile(`\bSTATE\b`),
	regexp.MustCompile(`\bLOCATION\b`),
	regexp.MustCompile(`\bSCALE\b`),
	regexp.MustCompile(`\bREGION\b`),
}

const (
	dateAnchorWeight  = 2
	scaleAnchorWeight = 1
)

// AnchorScore counts anchor words in text (case-insensitive), plus 2 when a
// date parses and 1 when a scale parses.
func AnchorScore(text string) int {
	if text == "" {
		return 0
	}
	t := strings.ToUpper(text)
	score := 0
	for _, re := range anchorPatterns {
		if re.MatchString(t) {
			score++
		}
	}
	if parsefields.ParseDate(t) != "" {
		score += dateAnchorWeight
	}
	if parsefields.ParseScale(t) != "" {
		score += scaleAnchorWeight
	}
	return score
}

// Candidate is the OCR output of one rendering.
type Candidate struct {
	Variant    string
	Text       string
	Confidence float64
	Anchors    int
}

// NewCandidate scores text produced for variant.
func NewCandidate(variant, text string, confidence float64) Candidate {
	return Candidate{Variant: variant, Text: text, Confidence: confidence, Anchors: AnchorScore(text)}
}

// compareCandidates orders better candidates first: more anchors, then higher
// confidence, then longer text.
func compareCandidates(a, b Candidate) int {
	if c := cmp.Compare(b.Anchors, a.Anchors); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	return cmp.Compare(len(b.Text), len(a.Text))
}

// SelectBest returns the index of the winning candidate, or -1 for none.
// The sort is stable, so full ties go to the earliest candidate.
func SelectBest(cands []Candidate) int {
	if len(cands) == 0 {
		return -1
	}
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		return compareCandidates(cands[i], cands[j])
	})
	return order[0]
}
