// ABOUTME: Tempo map construction and tick-to-time conversion
// ABOUTME: Builds a piecewise tempo timeline from set-tempo meta events
package miditone

import (
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultTempoUS is the MIDI default tempo in microseconds per beat (120 BPM).
const DefaultTempoUS = 500000

// TempoEntry maps an absolute tick position to the tempo in effect from that
// tick until the next entry.
type TempoEntry struct {
	Tick      int64
	USPerBeat int64
}

// TempoMap is a piecewise tempo timeline. Built once per loaded song and
// immutable afterwards. Entry ticks are strictly increasing and an entry at
// tick 0 always exists.
type TempoMap struct {
	entries      []TempoEntry
	ticksPerBeat int64
}

// buildTempoMap scans every track for set-tempo events, accumulating absolute
// tick positions per track (deltas reset at each track start), merges the
// results, sorts by tick and keeps the last tempo seen at any given tick.
func buildTempoMap(tracks []smf.Track, ticksPerBeat int64) *TempoMap {
	entries := []TempoEntry{{Tick: 0, USPerBeat: DefaultTempoUS}}

	for _, track := range tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				us := int64(math.Round(60_000_000 / bpm))
				if us > 0 {
					entries = append(entries, TempoEntry{Tick: tick, USPerBeat: us})
				}
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Tick < entries[j].Tick })

	// De-duplicate ticks, keeping the last tempo at each tick.
	unique := entries[:0]
	for _, e := range entries {
		if len(unique) > 0 && unique[len(unique)-1].Tick == e.Tick {
			unique[len(unique)-1] = e
			continue
		}
		unique = append(unique, e)
	}

	return &TempoMap{entries: unique, ticksPerBeat: ticksPerBeat}
}

// ticksToSeconds converts a tick span under a single tempo.
func ticksToSeconds(ticks, usPerBeat, ticksPerBeat int64) float64 {
	return float64(ticks) * float64(usPerBeat) / (float64(ticksPerBeat) * 1_000_000)
}

// TickToSeconds returns the absolute time of a tick position, accumulating
// elapsed time across every tempo segment up to the target tick. Monotonic in
// tick; with a single entry it reduces to the fixed-tempo closed form.
func (tm *TempoMap) TickToSeconds(tick int64) float64 {
	seconds := 0.0
	lastTick := int64(0)
	tempo := tm.entries[0].USPerBeat

	for _, e := range tm.entries {
		if e.Tick > tick {
			break
		}
		if e.Tick > lastTick {
			seconds += ticksToSeconds(e.Tick-lastTick, tempo, tm.ticksPerBeat)
		}
		lastTick = e.Tick
		tempo = e.USPerBeat
	}

	if tick > lastTick {
		seconds += ticksToSeconds(tick-lastTick, tempo, tm.ticksPerBeat)
	}
	return seconds
}

// TempoAt returns the tempo (µs per beat) in effect at the given tick.
func (tm *TempoMap) TempoAt(tick int64) int64 {
	tempo := tm.entries[0].USPerBeat
	for _, e := range tm.entries {
		if e.Tick > tick {
			break
		}
		tempo = e.USPerBeat
	}
	return tempo
}

// Entries returns a copy of the tempo entries.
func (tm *TempoMap) Entries() []TempoEntry {
	out := make([]TempoEntry, len(tm.entries))
	copy(out, tm.entries)
	return out
}

// TicksPerBeat returns the resolution the map converts with.
func (tm *TempoMap) TicksPerBeat() int64 { return tm.ticksPerBeat }
