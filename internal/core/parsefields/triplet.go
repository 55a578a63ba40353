// Package parsefields turns normalized marigram OCR text into unvalidated
// candidate fields. Nothing here consults a vocabulary; a field that no
// pattern finds is returned empty.
package parsefields

import (
	"regexp"
	"strings"
	"unicode"
)

// Triplet is the unvalidated COUNTRY / STATE / LOCATION candidate.
type Triplet struct {
	Country  string
	State    string
	Location string
	Strategy Strategy
}

// Strategy names the rule that produced a triplet.
type Strategy string

const (
	StrategyNone    Strategy = ""
	StrategyColumns Strategy = "columns"   // fixed-width uppercase header
	StrategySplit   Strategy = "delimited" // ; , or tab separated
	StrategyLabels  Strategy = "labels"    // COUNTRY: / STATE: / LOCATION:
)

// Line windows scanned by each strategy.
const (
	columnsWindow = 20
	splitWindow   = 30
	labelsWindow  = 80
)

var (
	reUpperTriple = regexp.MustCompile(
		`^([A-Z][A-Z\- .'()&/]+?)\s{2,}([A-Z][A-Z\- .'()&/]+?)\s{2,}([A-Z0-9][A-Z0-9\- .,'()&/]+)$`,
	)
	reSplit = regexp.MustCompile(`\s*[;,\t]\s*`)

	reCountryLabel  = regexp.MustCompile(`(?i)COUNTRY[:\-\s]+([A-Z .,'()&/-]+)`)
	reStateLabel    = regexp.MustCompile(`(?i)STATE[:\-\s]+([A-Z0-9 .,'()&/-]+)`)
	reLocationLabel = regexp.MustCompile(`(?i)LOCATION[:\-\s]+([A-Z0-9 .,'()&/-]+)`)
)

// Lines splits text into trimmed, non-empty lines.
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

// ParseTriplet runs the strategies in order and returns the first that matches.
// Results are never merged across strategies.
func ParseTriplet(lines []string) Triplet {
	if t, ok := fromColumns(lines); ok {
		return t
	}
	if t, ok := fromDelimited(lines); ok {
		return t
	}
	return fromLabels(lines)
}

func fromColumns(lines []string) (Triplet, bool) {
	for _, line := range head(lines, columnsWindow) {
		m := reUpperTriple.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		return Triplet{
			Country:  strings.TrimSpace(m[1]),
			State:    strings.TrimSpace(m[2]),
			Location: strings.TrimSpace(m[3]),
			Strategy: StrategyColumns,
		}, true
	}
	return Triplet{}, false
}

func fromDelimited(lines []string) (Triplet, bool) {
	for _, line := range head(lines, splitWindow) {
		parts := reSplit.Split(strings.TrimSpace(line), -1)
		if len(parts) < 3 {
			continue
		}
		a, b, c := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
		if looksLikeText(a) && looksLikeText(b) && looksLikeText(c) {
			return Triplet{Country: a, State: b, Location: c, Strategy: StrategySplit}, true
		}
	}
	return Triplet{}, false
}

func fromLabels(lines []string) Triplet {
	blob := strings.Join(head(lines, labelsWindow), "\n")
	t := Triplet{
		Country:  firstGroup(reCountryLabel, blob),
		State:    firstGroup(reStateLabel, blob),
		Location: firstGroup(reLocationLabel, blob),
	}
	if t.Country != "" || t.State != "" || t.Location != "" {
		t.Strategy = StrategyLabels
	}
	return t
}

// looksLikeText rejects parts that are mostly digits or punctuation.
func looksLikeText(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if letters >= 2 {
				return true
			}
		}
	}
	return false
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}
