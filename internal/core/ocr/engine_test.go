package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t40\t12\t90.5\tJAPAN\n" +
	"5\t1\t1\t1\t1\t2\t60\t10\t40\t12\t69.5\tHONSHU\n"

func TestMeanTSVConfidence(t *testing.T) {
	assert.InDelta(t, 80.0, meanTSVConfidence(sampleTSV), 1e-9)
	assert.Equal(t, 0.0, meanTSVConfidence(""))
	assert.Equal(t, 0.0, meanTSVConfidence("level\tconf\n1\t-1\n"))
}

type fakeRunner struct {
	calls  [][]string
	text   string
	tsv    string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		if f.stderr != "" {
			return nil, []byte(f.stderr), f.err
		}
		return nil, []byte("boom"), f.err
	}
	if slices.Contains(args, "tsv") {
		return []byte(f.tsv), nil, nil
	}
	return []byte(f.text), nil, nil
}

func TestTesseractCLI_Recognize(t *testing.T) {
	fr := &fakeRunner{text: "JAPAN  HONSHU  TOKYO BAY\n", tsv: sampleTSV}
	eng := NewTesseractCLI("", nil)
	eng.runner = fr

	res, err := eng.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)), Options{PSM: 6, OEM: 3})
	require.NoError(t, err)
	assert.Equal(t, "JAPAN  HONSHU  TOKYO BAY\n", res.Text)
	assert.InDelta(t, 80.0, res.Confidence, 1e-9)

	require.Len(t, fr.calls, 2)
	text := fr.calls[0]
	assert.Equal(t, "tesseract", text[0])
	assert.Equal(t, []string{"stdout", "-l", "eng", "--psm", "6", "--oem", "3"}, text[2:])
	assert.Equal(t, "tsv", fr.calls[1][len(fr.calls[1])-1])
}

func TestTesseractCLI_PassesZeroModes(t *testing.T) {
	fr := &fakeRunner{tsv: sampleTSV}
	eng := NewTesseractCLI("", nil)
	eng.runner = fr

	_, err := eng.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), Options{PSM: 0, OEM: 0})
	require.NoError(t, err)
	require.NotEmpty(t, fr.calls)
	assert.Equal(t, []string{"stdout", "-l", "eng", "--psm", "0", "--oem", "0"}, fr.calls[0][2:])
}

func TestTesseractCLI_RecognizeError(t *testing.T) {
	eng := NewTesseractCLI("tesseract", nil)
	eng.runner = &fakeRunner{err: errors.New("exit status 1")}

	_, err := eng.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestTesseractCLI_ClipsStderr(t *testing.T) {
	eng := NewTesseractCLI("tesseract", nil)
	eng.runner = &fakeRunner{err: errors.New("exit status 1"), stderr: strings.Repeat("x", 4*stderrCap)}

	_, err := eng.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "...(truncated)")
	assert.Less(t, len(err.Error()), 2*stderrCap)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip([]byte("short")))
	long := clip([]byte(strings.Repeat("a", stderrCap+10)))
	assert.Equal(t, strings.Repeat("a", stderrCap)+"...(truncated)", long)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, _, err := execRunner{}.Run(context.Background(), "marigram-no-such-binary", nil, "--version")
	require.Error(t, err)
}

func TestOptions_Defaults(t *testing.T) {
	assert.Equal(t, "eng", Options{}.withDefaults().Lang)
	assert.Equal(t, "jpn", Options{Lang: "jpn"}.withDefaults().Lang)
}
