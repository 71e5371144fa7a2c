// ABOUTME: Tests for the real-time dispatch loop
// ABOUTME: Covers suppression rules, force-close and cancellation
package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miditone/miditone-go/pkg/miditone"
)

type call struct {
	open    bool
	channel int
}

type recordingSink struct {
	mu    sync.Mutex
	calls []call
}

func (r *recordingSink) Open(ch int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{open: true, channel: ch})
}

func (r *recordingSink) Close(ch int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{open: false, channel: ch})
}

func (r *recordingSink) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func TestPlayDispatchesInOrder(t *testing.T) {
	events := []Event{
		{Time: 0, Kind: KindOpen, Channel: 1},
		{Time: 0.01, Kind: KindClose, Channel: 1},
		{Time: 0.02, Kind: KindOpen, Channel: 2},
		{Time: 0.03, Kind: KindClose, Channel: 2},
	}

	sink := &recordingSink{}
	require.NoError(t, Play(context.Background(), events, sink))

	assert.Equal(t, []call{
		{open: true, channel: 1},
		{open: false, channel: 1},
		{open: true, channel: 2},
		{open: false, channel: 2},
	}, sink.snapshot())
}

func TestPlaySuppressesDuplicateOpens(t *testing.T) {
	events := []Event{
		{Time: 0, Kind: KindOpen, Channel: 1},
		{Time: 0, Kind: KindOpen, Channel: 1}, // overlapping same-pitch note
		{Time: 0.01, Kind: KindClose, Channel: 1},
		{Time: 0.01, Kind: KindClose, Channel: 1}, // channel already closed
	}

	sink := &recordingSink{}
	require.NoError(t, Play(context.Background(), events, sink))

	assert.Equal(t, []call{
		{open: true, channel: 1},
		{open: false, channel: 1},
	}, sink.snapshot())
}

func TestPlayForceClosesAtEnd(t *testing.T) {
	events := []Event{
		{Time: 0, Kind: KindOpen, Channel: 3},
		{Time: 0, Kind: KindOpen, Channel: 5},
		{Time: 0.01, Kind: KindClose, Channel: 5},
		// channel 3 never closed by an event
	}

	sink := &recordingSink{}
	require.NoError(t, Play(context.Background(), events, sink))

	calls := sink.snapshot()
	require.Len(t, calls, 4)
	assert.Equal(t, call{open: false, channel: 3}, calls[3])
}

func TestPlayEmptyList(t *testing.T) {
	err := Play(context.Background(), nil, &recordingSink{})
	assert.ErrorIs(t, err, ErrNoEvents)
}

func TestPlayCancellationForceCloses(t *testing.T) {
	events := []Event{
		{Time: 0, Kind: KindOpen, Channel: 1},
		{Time: 10, Kind: KindClose, Channel: 1}, // far in the future
	}

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}

	done := make(chan error, 1)
	go func() { done <- Play(ctx, events, sink) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Play did not return after cancellation")
	}

	calls := sink.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, call{open: true, channel: 1}, calls[0])
	assert.Equal(t, call{open: false, channel: 1}, calls[1])
}

type recordingMotor struct {
	mu    sync.Mutex
	freqs []float64
}

func (m *recordingMotor) SetFrequency(hz float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freqs = append(m.freqs, hz)
}

func (m *recordingMotor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freqs = append(m.freqs, 0)
}

func TestFrequencyEventsFirstNoteOfGroupWins(t *testing.T) {
	groups := []miditone.ToneGroup{
		{
			miditone.Note{Pitch: 60, Start: 0, Duration: 0.1},
			miditone.Note{Pitch: 64, Start: 0, Duration: 0.1}, // ignored
		},
		{miditone.Note{Pitch: 69, Start: 0.2, Duration: 0.1}},
	}

	events, err := FrequencyEvents(groups, 1)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.InDelta(t, miditone.PitchToFrequency(60), events[0].Hz, 1e-9)
	assert.InDelta(t, 0.0, events[1].Hz, 1e-12)
	assert.InDelta(t, 440.0, events[2].Hz, 1e-9)
}

func TestFrequencyEventsRejectsBadSpeed(t *testing.T) {
	_, err := FrequencyEvents(nil, 0)
	assert.Error(t, err)
}

func TestFrequencyEventsEmpty(t *testing.T) {
	_, err := FrequencyEvents(nil, 1)
	assert.ErrorIs(t, err, ErrNoEvents)
}

func TestPlayFrequencies(t *testing.T) {
	events := []FreqEvent{
		{Time: 0, Hz: 220},
		{Time: 0.01, Hz: 0},
		{Time: 0.02, Hz: 440},
	}

	motor := &recordingMotor{}
	require.NoError(t, PlayFrequencies(context.Background(), events, motor))

	motor.mu.Lock()
	defer motor.mu.Unlock()
	// trailing 0 from the deferred Stop
	assert.Equal(t, []float64{220, 0, 440, 0}, motor.freqs)
}
