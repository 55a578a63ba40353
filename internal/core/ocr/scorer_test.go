package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnchorScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"labels only", "Country: Japan\nState: Honshu\nLocation: Tokyo", 3},
		{"date and scale", "2021-03-11 scale 1/500", 1 + 2 + 1},
		{"word boundary", "COUNTRYSIDE", 0},
		{"january date is not a scale", "1/15/1960", 2},
		{"everything", "COUNTRY STATE LOCATION SCALE 1:20 REGION [22] 22 May 1960", 5 + 2 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnchorScore(tt.text))
		})
	}
}

func TestSelectBest_Priority(t *testing.T) {
	tests := []struct {
		name  string
		cands []Candidate
		want  int
	}{
		{
			name: "anchors beat confidence",
			cands: []Candidate{
				{Variant: "a", Anchors: 1, Confidence: 95, Text: "xxxxxxxx"},
				{Variant: "b", Anchors: 2, Confidence: 10, Text: "x"},
			},
			want: 1,
		},
		{
			name: "confidence breaks anchor ties",
			cands: []Candidate{
				{Variant: "a", Anchors: 2, Confidence: 40, Text: "xxxxxxxx"},
				{Variant: "b", Anchors: 2, Confidence: 80, Text: "x"},
			},
			want: 1,
		},
		{
			name: "length breaks confidence ties",
			cands: []Candidate{
				{Variant: "a", Anchors: 2, Confidence: 80, Text: "xx"},
				{Variant: "b", Anchors: 2, Confidence: 80, Text: "xxxx"},
				{Variant: "c", Anchors: 2, Confidence: 80, Text: "xxx"},
			},
			want: 1,
		},
		{
			name: "full tie keeps first seen",
			cands: []Candidate{
				{Variant: "a", Anchors: 0, Confidence: 0},
				{Variant: "b", Anchors: 3, Confidence: 50, Text: "abc"},
				{Variant: "c", Anchors: 3, Confidence: 50, Text: "xyz"},
			},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectBest(tt.cands))
		})
	}
}

func TestSelectBest_Empty(t *testing.T) {
	assert.Equal(t, -1, SelectBest(nil))
}

func TestSelectBest_Deterministic(t *testing.T) {
	cands := []Candidate{
		NewCandidate(VariantOtsu, "JAPAN  HONSHU  TOKYO BAY", 71),
		NewCandidate(VariantOtsuInverted, "", 0),
		NewCandidate(VariantAdaptive, "COUNTRY JAPAN 2021-03-11", 60),
		NewCandidate(VariantContrastOtsu, "COUNTRY JAPAN 2021-03-11", 60),
		NewCandidate(VariantBlurOtsu, "SCALE 1/500", 88),
	}
	first := SelectBest(cands)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, SelectBest(cands))
	}
	assert.Equal(t, 2, first)
}
