package parsefields

import (
	"fmt"
	"regexp"
	"strings"
)

// Date shapes, tried in order. The boundary groups stand in for look-around
// assertions: a match must not be glued to further digits (or word characters
// for the month-name form).
var (
	reISODate = regexp.MustCompile(
		`(?:^|\D)(19\d{2}|20\d{2})-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])(?:\D|$)`,
	)
	// M/D/YYYY or M-D-YYYY. Read as month/day even when both readings are valid.
	reNumericDate = regexp.MustCompile(
		`(?:^|\D)(0?[1-9]|1[0-2])[\-/](0?[1-9]|[12]\d|3[01])[\-/](19\d{2}|20\d{2})(?:\D|$)`,
	)
	reMonthNameDate = regexp.MustCompile(
		`(?i)(?:^|\W)(0?[1-9]|[12]\d|3[01])\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec)[a-z]*\s+(19\d{2}|20\d{2})(?:\W|$)`,
	)
)

var monthNumbers = map[string]string{
	"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04", "MAY": "05", "JUN": "06",
	"JUL": "07", "AUG": "08", "SEP": "09", "SEPT": "09", "OCT": "10", "NOV": "11", "DEC": "12",
}

// ParseDate returns the first date found as YYYY/MM/DD, or "".
func ParseDate(text string) string {
	if m := reISODate.FindStringSubmatch(text); m != nil {
		return ymd(m[1], m[2], m[3])
	}
	if m := reNumericDate.FindStringSubmatch(text); m != nil {
		return ymd(m[3], m[1], m[2])
	}
	if m := reMonthNameDate.FindStringSubmatch(text); m != nil {
		mon := strings.ToUpper(m[2])
		mm, ok := monthNumbers[mon]
		if !ok {
			mm = monthNumbers[mon[:3]]
		}
		if mm != "" {
			return ymd(m[3], mm, m[1])
		}
	}
	return ""
}

func ymd(y, m, d string) string {
	return fmt.Sprintf("%s/%s/%s", y, pad2(m), pad2(d))
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
