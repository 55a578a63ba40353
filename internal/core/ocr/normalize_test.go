package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf and trailing spaces", "A  \r\nB\r\n", "A\nB"},
		{"zero width removed", "JA\u200bPAN\ufeff", "JAPAN"},
		{"control characters removed", "TOKYO\x00\x07 BAY", "TOKYO BAY"},
		{"form feed becomes space", "PAGE\fTWO", "PAGE TWO"},
		{"wide gaps keep two spaces", "JAPAN      HONSHU   TOKYO BAY", "JAPAN  HONSHU  TOKYO BAY"},
		{"tab runs collapse", "A\t\t\tB", "A\tB"},
		{"blank lines collapse", "A\n\n\n\n\nB", "A\n\nB"},
		{"box noise lines dropped", "A\n-----\nB", "A\n\nB"},
		{"full width folded", "ＳＣＡＬＥ", "SCALE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
