package parsefields

import "regexp"

// reRatio finds every "<n> : <m>" or "<n>/<m>" pair. ParseScale keeps the first
// whose numerator is exactly 1 and whose denominator has 1-4 digits.
var reRatio = regexp.MustCompile(`(\d+)\s*[:/]\s*(\d+)`)

// ParseScale returns the chart scale as "1:<denominator>", or "".
// An optional "SCALE" label may precede the ratio; it is not required.
// A ratio chained to another number by / or - (1/15/1960, 2011/1/15) is part
// of a date and is skipped.
func ParseScale(text string) string {
	for _, m := range reRatio.FindAllStringSubmatchIndex(text, -1) {
		num, den := text[m[2]:m[3]], text[m[4]:m[5]]
		if num != "1" || len(den) > 4 || inDate(text, m[0], m[1]) {
			continue
		}
		return "1:" + den
	}
	return ""
}

// inDate reports whether text[start:end] continues with "/<digit>" or
// "-<digit>", or follows "<digit>/" or "<digit>-".
func inDate(text string, start, end int) bool {
	if end+1 < len(text) && isDateSep(text[end]) && isDigit(text[end+1]) {
		return true
	}
	return start >= 2 && isDateSep(text[start-1]) && isDigit(text[start-2])
}

func isDateSep(c byte) bool { return c == '/' || c == '-' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
