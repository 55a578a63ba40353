package review

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
)

// scriptedPrompter answers AskField by column and records what it was shown.
type scriptedPrompter struct {
	answers   map[constants.Column]string
	confirm   bool
	askErr    error
	asked     []FieldPrompt
	presented []Header
}

func (s *scriptedPrompter) AskField(_ context.Context, p FieldPrompt) (string, error) {
	s.asked = append(s.asked, p)
	if s.askErr != nil {
		return "", s.askErr
	}
	return s.answers[p.Column], nil
}

func (s *scriptedPrompter) Confirm(_ context.Context, _ string, _ bool) (bool, error) {
	return s.confirm, nil
}

func (s *scriptedPrompter) Present(_ context.Context, h Header) error {
	s.presented = append(s.presented, h)
	return nil
}

func sampleDraft() *entity.Draft {
	return &entity.Draft{
		FileName:     "reel1/chart.tif",
		Country:      entity.Accepted("JAPAN"),
		State:        entity.Flagged("HONSHUU"),
		Location:     entity.Accepted("TOKYO BAY"),
		RecordedDate: entity.Accepted("2021/03/11"),
		Scale:        entity.Accepted(""),
		RegionCode:   entity.Flagged(""),
		Images:       entity.Accepted("1"),
	}
}

func TestGate_WalksFieldsInOrder(t *testing.T) {
	sp := &scriptedPrompter{confirm: true}
	ok, err := NewGate(sp, nil).Review(context.Background(), Header{RelPath: "reel1/chart.tif", NeedsReview: true}, sampleDraft())
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, sp.asked, len(FieldOrder))
	for i, p := range sp.asked {
		assert.Equal(t, FieldOrder[i], p.Column)
	}
	assert.Equal(t, "HONSHUU", sp.asked[1].Current)
	assert.True(t, sp.asked[1].NeedsReview)
	require.Len(t, sp.presented, 1)
	assert.True(t, sp.presented[0].NeedsReview)
}

func TestGate_OverridesAreTrusted(t *testing.T) {
	d := sampleDraft()
	sp := &scriptedPrompter{
		confirm: true,
		answers: map[constants.Column]string{
			constants.ColState:      " Honshu ",
			constants.ColRegionCode: "99",
			constants.ColScale:      "1:250",
		},
	}
	ok, err := NewGate(sp, nil).Review(context.Background(), Header{}, d)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, entity.Accepted("Honshu"), d.State)
	assert.Equal(t, entity.Accepted("99"), d.RegionCode)
	assert.Equal(t, entity.Accepted("1:250"), d.Scale)
	assert.Equal(t, entity.Accepted("JAPAN"), d.Country, "empty answer keeps value")
	assert.False(t, d.NeedsReview())
}

func TestGate_RelooksStationAfterPlaceOverride(t *testing.T) {
	lookups := 0
	stations := func(country, location entity.Field) entity.Field {
		lookups++
		if !country.NeedsReview && strings.EqualFold(country.Value, "usa") && strings.EqualFold(location.Value, "hilo") {
			return entity.Accepted("hilo")
		}
		return entity.Flagged("")
	}

	d := sampleDraft()
	d.LocationShort = entity.Flagged("")
	sp := &scriptedPrompter{
		confirm: true,
		answers: map[constants.Column]string{
			constants.ColCountry:  "USA",
			constants.ColLocation: "Hilo",
		},
	}
	ok, err := NewGate(sp, nil).WithStationLookup(stations).Review(context.Background(), Header{}, d)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, lookups)
	assert.Equal(t, entity.Accepted("hilo"), d.LocationShort)
	assert.Equal(t, "hilo", sp.asked[6].Current, "reviewer sees the new code")
}

func TestGate_KeepsStationWithoutPlaceOverride(t *testing.T) {
	lookups := 0
	stations := func(entity.Field, entity.Field) entity.Field {
		lookups++
		return entity.Flagged("")
	}
	d := sampleDraft()
	d.LocationShort = entity.Accepted("TKYO")
	sp := &scriptedPrompter{confirm: true, answers: map[constants.Column]string{constants.ColState: "HONSHU"}}

	_, err := NewGate(sp, nil).WithStationLookup(stations).Review(context.Background(), Header{}, d)
	require.NoError(t, err)
	assert.Zero(t, lookups)
	assert.Equal(t, entity.Accepted("TKYO"), d.LocationShort)
}

func TestGate_Declined(t *testing.T) {
	ok, err := NewGate(&scriptedPrompter{confirm: false}, nil).Review(context.Background(), Header{}, sampleDraft())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_PrompterError(t *testing.T) {
	boom := errors.New("stdin closed")
	_, err := NewGate(&scriptedPrompter{askErr: boom}, nil).Review(context.Background(), Header{}, sampleDraft())
	assert.ErrorIs(t, err, boom)
}

func TestTerminalPrompter(t *testing.T) {
	in := strings.NewReader("\nHonshu\n\n\n\n\n\n\n\n\n\n\nmaybe\nn\n")
	var out bytes.Buffer
	p := NewTerminalPrompter(in, &out)

	d := sampleDraft()
	ok, err := NewGate(p, nil).Review(context.Background(), Header{RelPath: "reel1/chart.tif", NeedsReview: true}, d)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Honshu", d.State.Value)

	s := out.String()
	assert.Contains(t, s, "reel1/chart.tif (NEEDS REVIEW)")
	assert.Contains(t, s, "STATE           [?]")
	assert.Contains(t, s, "<empty>")
	assert.Equal(t, 2, strings.Count(s, "Save this record? [Y/n]"))
}

func TestTerminalPrompter_ConfirmDefaults(t *testing.T) {
	ctx := context.Background()

	yes, err := NewTerminalPrompter(strings.NewReader("\n"), &bytes.Buffer{}).Confirm(ctx, "ok?", true)
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := NewTerminalPrompter(strings.NewReader(""), &bytes.Buffer{}).Confirm(ctx, "ok?", false)
	require.NoError(t, err)
	assert.False(t, no)

	last, err := NewTerminalPrompter(strings.NewReader("yes"), &bytes.Buffer{}).Confirm(ctx, "ok?", false)
	require.NoError(t, err)
	assert.True(t, last)
}
