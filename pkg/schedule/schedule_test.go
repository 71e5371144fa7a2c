// ABOUTME: Tests for event building, windowing and ordering
// ABOUTME: Covers delay compensation, clipping, merge ordering and validation
package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miditone/miditone-go/pkg/miditone"
)

func chord(notes ...miditone.Note) []miditone.ToneGroup {
	return []miditone.ToneGroup{notes}
}

func defaultOpts() Options {
	return Options{Speed: 1}
}

func TestBuildSimpleChord(t *testing.T) {
	groups := chord(
		miditone.Note{Pitch: 60, Start: 0, Duration: 0.5},
		miditone.Note{Pitch: 64, Start: 0, Duration: 0.5},
	)

	events, err := Build(groups, defaultOpts())
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, KindOpen, events[0].Kind)
	assert.Equal(t, 60, events[0].Channel)
	assert.Equal(t, KindOpen, events[1].Kind)
	assert.Equal(t, 64, events[1].Channel)
	assert.Equal(t, KindClose, events[2].Kind)
	assert.Equal(t, 60, events[2].Channel)
	assert.Equal(t, KindClose, events[3].Kind)
	assert.Equal(t, 64, events[3].Channel)

	for _, ev := range events[:2] {
		assert.InDelta(t, 0.0, ev.Time, 1e-12)
	}
	for _, ev := range events[2:] {
		assert.InDelta(t, 0.5, ev.Time, 1e-12)
	}
}

func TestBuildTurnOnDelayClampsAtZero(t *testing.T) {
	groups := chord(miditone.Note{Pitch: 60, Start: 0, Duration: 0.5})

	opts := defaultOpts()
	opts.TurnOnDelay = 0.1
	events, err := Build(groups, opts)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, events[0].Time, 1e-12) // 0 - 0.1 clamps to 0
	assert.InDelta(t, 0.5, events[1].Time, 1e-12)
}

func TestBuildDelayCompensationPreFires(t *testing.T) {
	groups := chord(miditone.Note{Pitch: 60, Start: 1.0, Duration: 0.5})

	opts := defaultOpts()
	opts.TurnOnDelay = 0.1
	opts.TurnOffDelay = 0.05
	events, err := Build(groups, opts)
	require.NoError(t, err)

	assert.InDelta(t, 0.9, events[0].Time, 1e-12)
	assert.InDelta(t, 1.45, events[1].Time, 1e-12)
}

func TestBuildWindowClipsAndRebases(t *testing.T) {
	groups := chord(miditone.Note{Pitch: 60, Start: 0, Duration: 0.5})

	opts := defaultOpts()
	opts.WindowStart = 0.2
	events, err := Build(groups, opts)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Clips to [0.2, 0.5), rebases to [0.0, 0.3).
	assert.InDelta(t, 0.0, events[0].Time, 1e-12)
	assert.InDelta(t, 0.3, events[1].Time, 1e-12)
}

func TestBuildWindowDropsOutside(t *testing.T) {
	end := 1.0
	opts := defaultOpts()
	opts.WindowStart = 0.5
	opts.WindowEnd = &end

	groups := []miditone.ToneGroup{
		{miditone.Note{Pitch: 60, Start: 0, Duration: 0.5}},   // ends at window start: dropped
		{miditone.Note{Pitch: 62, Start: 1.0, Duration: 1}},   // starts at window end: dropped
		{miditone.Note{Pitch: 64, Start: 0.6, Duration: 0.2}}, // inside
	}

	events, err := Build(groups, opts)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 64, events[0].Channel)
}

func TestBuildWindowingIdempotent(t *testing.T) {
	end := 2.0
	opts := defaultOpts()
	opts.WindowStart = 0.5
	opts.WindowEnd = &end

	groups := []miditone.ToneGroup{
		{miditone.Note{Pitch: 60, Start: 0, Duration: 1}},
		{miditone.Note{Pitch: 64, Start: 1.2, Duration: 2}},
		{miditone.Note{Pitch: 67, Start: 3, Duration: 1}},
	}

	once, err := Build(groups, opts)
	require.NoError(t, err)
	again, err := Build(groups, opts)
	require.NoError(t, err)
	assert.Equal(t, once, again)
}

func TestBuildSpeedScalesStartAndDuration(t *testing.T) {
	groups := chord(miditone.Note{Pitch: 60, Start: 1.0, Duration: 0.5})

	opts := defaultOpts()
	opts.Speed = 2
	events, err := Build(groups, opts)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, events[0].Time, 1e-12)
	assert.InDelta(t, 0.75, events[1].Time, 1e-12)
}

func TestBuildBasePitchMapsChannels(t *testing.T) {
	groups := chord(miditone.Note{Pitch: 45, Start: 0, Duration: 0.5})

	opts := defaultOpts()
	opts.BasePitch = 48 // valve 0 is C3; lower pitches go negative
	events, err := Build(groups, opts)
	require.NoError(t, err)
	assert.Equal(t, -3, events[0].Channel)
}

func TestBuildOutputSorted(t *testing.T) {
	groups := []miditone.ToneGroup{
		{miditone.Note{Pitch: 72, Start: 0.4, Duration: 0.1}},
		{miditone.Note{Pitch: 60, Start: 0, Duration: 0.5}},
		{miditone.Note{Pitch: 64, Start: 0.2, Duration: 0.3}},
	}

	events, err := Build(groups, defaultOpts())
	require.NoError(t, err)
	assertSorted(t, events)

	// Every open has exactly one close at the same channel, no earlier.
	opens := make(map[int]float64)
	for _, ev := range events {
		if ev.Kind == KindOpen {
			opens[ev.Channel] = ev.Time
		} else {
			openTime, ok := opens[ev.Channel]
			require.True(t, ok, "close without open on channel %d", ev.Channel)
			assert.GreaterOrEqual(t, ev.Time, openTime)
			delete(opens, ev.Channel)
		}
	}
	assert.Empty(t, opens)
}

func TestMergeReordersAcrossTracks(t *testing.T) {
	a, err := Build(chord(miditone.Note{Pitch: 60, Start: 0.5, Duration: 0.5}), defaultOpts())
	require.NoError(t, err)
	b, err := Build(chord(miditone.Note{Pitch: 64, Start: 0, Duration: 2}), defaultOpts())
	require.NoError(t, err)

	merged := Merge(a, b)
	require.Len(t, merged, 4)
	assertSorted(t, merged)
	assert.Equal(t, 64, merged[0].Channel)
	assert.Equal(t, 60, merged[1].Channel)
}

func TestOptionsValidate(t *testing.T) {
	bad := []Options{
		{Speed: 0},
		{Speed: -1},
		{Speed: 1, TurnOnDelay: -0.1},
		{Speed: 1, TurnOffDelay: -0.1},
		{Speed: 1, WindowStart: -1},
	}
	for i, opts := range bad {
		assert.Error(t, opts.Validate(), "case %d", i)
	}

	end := 0.5
	assert.Error(t, Options{Speed: 1, WindowStart: 1, WindowEnd: &end}.Validate())
	assert.NoError(t, Options{Speed: 1}.Validate())
}

func assertSorted(t *testing.T, events []Event) {
	t.Helper()
	for i := 1; i < len(events); i++ {
		a, b := events[i-1], events[i]
		ok := a.Time < b.Time ||
			(a.Time == b.Time && a.Kind < b.Kind) ||
			(a.Time == b.Time && a.Kind == b.Kind && a.Channel <= b.Channel)
		assert.True(t, ok, "events %d and %d out of order", i-1, i)
	}
}
