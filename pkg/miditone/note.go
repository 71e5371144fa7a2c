// ABOUTME: Note type and pitch conversion helpers
// ABOUTME: Represents a single extracted note with absolute timing
package miditone

import (
	"fmt"
	"math"
)

// Note is a single musical note with absolute, tempo-compensated timing.
// Start and Duration are in seconds from the beginning of the track.
// StartTick and DurationTicks preserve the raw tick positions so callers can
// rescale timing without losing tempo fidelity.
type Note struct {
	Pitch         uint8
	Start         float64
	Duration      float64
	Velocity      uint8
	StartTick     int64
	DurationTicks int64
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchToFrequency converts a MIDI pitch to Hz using equal temperament with
// A4 (pitch 69) at 440 Hz.
func PitchToFrequency(pitch int) float64 {
	return 440.0 * math.Pow(2, float64(pitch-69)/12.0)
}

// Frequency returns the note's frequency in Hz.
func (n Note) Frequency() float64 { return PitchToFrequency(int(n.Pitch)) }

// Name returns the note name without octave, e.g. "A#".
func (n Note) Name() string { return noteNames[n.Pitch%12] }

// FullName returns the note name with octave, e.g. "A#4". Middle C (60) is C4.
func (n Note) FullName() string {
	return fmt.Sprintf("%s%d", n.Name(), int(n.Pitch)/12-1)
}

// SemitoneFromA returns the semitone relative to A (A=0, A#=1, ..., G#=11).
// The +144 keeps the operand non-negative for pitches below A0 (21).
func (n Note) SemitoneFromA() int { return (int(n.Pitch) + 144 - 21) % 12 }

// End returns the note's absolute end time in seconds.
func (n Note) End() float64 { return n.Start + n.Duration }

func (n Note) String() string {
	return fmt.Sprintf("%s (%.2f Hz) - %.1fs", n.FullName(), n.Frequency(), n.Duration)
}
