package parsefields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTriplet_Columns(t *testing.T) {
	got := ParseTriplet(Lines("TIDE RECORD\nJAPAN  HONSHU  TOKYO BAY\nSCALE 1/500"))
	assert.Equal(t, Triplet{Country: "JAPAN", State: "HONSHU", Location: "TOKYO BAY", Strategy: StrategyColumns}, got)
}

func TestParseTriplet_ColumnsOnlyInFirstTwentyLines(t *testing.T) {
	lines := make([]string, 0, 22)
	for i := 0; i < 20; i++ {
		lines = append(lines, "noise line")
	}
	lines = append(lines, "JAPAN  HONSHU  TOKYO BAY")

	got := ParseTriplet(lines)
	assert.NotEqual(t, StrategyColumns, got.Strategy)
}

func TestParseTriplet_Delimited(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Triplet
	}{
		{
			name: "semicolons",
			text: "header\nCHILE; VALPARAISO; VALPARAISO HARBOR",
			want: Triplet{Country: "CHILE", State: "VALPARAISO", Location: "VALPARAISO HARBOR", Strategy: StrategySplit},
		},
		{
			name: "commas keep extra parts out",
			text: "USA, HAWAII, HILO, 1960",
			want: Triplet{Country: "USA", State: "HAWAII", Location: "HILO", Strategy: StrategySplit},
		},
		{
			name: "tabs",
			text: "Peru\tLima\tCallao",
			want: Triplet{Country: "Peru", State: "Lima", Location: "Callao", Strategy: StrategySplit},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTriplet(Lines(tt.text)))
		})
	}
}

func TestParseTriplet_DelimitedRejectsNumericParts(t *testing.T) {
	got := ParseTriplet(Lines("12, 34, 56"))
	assert.Equal(t, Triplet{}, got)
}

func TestParseTriplet_Labels(t *testing.T) {
	got := ParseTriplet(Lines("COUNTRY: JAPAN\nLOCATION: HANASAKI\nsomething else"))
	assert.Equal(t, "JAPAN", got.Country)
	assert.Equal(t, "", got.State)
	assert.Equal(t, "HANASAKI", got.Location)
	assert.Equal(t, StrategyLabels, got.Strategy)
}

func TestParseTriplet_NothingFound(t *testing.T) {
	assert.Equal(t, Triplet{}, ParseTriplet(Lines("~~~ 0123 ~~~")))
	assert.Equal(t, Triplet{}, ParseTriplet(nil))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"recorded 2021-03-11 at station", "2021/03/11"},
		{"3/4/2021", "2021/03/04"},
		{"03-04-2021", "2021/03/04"},
		{"22 May 1960", "1960/05/22"},
		{"1 sept 1999", "1999/09/01"},
		{"9 September 2011", "2011/09/09"},
		{"12019-03-11", ""},
		{"no date here", ""},
		// ISO wins over the numeric form even when it appears later.
		{"3/4/2021 then 2011-03-11", "2011/03/11"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.text))
		})
	}
}

func TestParseScale(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"SCALE 1/500", "1:500"},
		{"scale: 1 : 20", "1:20"},
		{"1:1000", "1:1000"},
		{"3/11/2011", ""},
		{"DATE 1/15/1960", ""},
		{"1-15-1960 1:200", "1:200"},
		{"1/15/1960 SCALE 1:500", "1:500"},
		{"1960/1/15", ""},
		{"at 12:30 1:50", "1:50"},
		{"1:50000", ""},
		{"nothing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseScale(tt.text))
		})
	}
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, Lines("  a \n\n b c\n   "))
}
