// ABOUTME: Track note extraction and chord grouping
// ABOUTME: Turns raw track events into time-sorted, chord-grouped notes
package miditone

import (
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// GroupTolerance is the maximum start-time spread, in seconds, for notes to
// be considered simultaneous and grouped into one chord.
const GroupTolerance = 0.001

// minFlushDuration is the duration floor applied to notes that never receive
// a note-off before the track ends.
const minFlushDuration = 0.1

// ToneGroup is a set of notes sharing an onset time within GroupTolerance,
// sorted ascending by pitch.
type ToneGroup []Note

// Track is a single song track. Notes and Groups re-derive their results from
// the raw track events on every call; callers that need the sequence more
// than once should hold on to the returned slice.
type Track struct {
	name    string
	channel uint8
	events  smf.Track
	tempo   *TempoMap
}

// Name returns the track name, from MIDI metadata or auto-generated.
func (t *Track) Name() string { return t.name }

// Channel returns the track's primary MIDI channel (0-15).
func (t *Track) Channel() uint8 { return t.channel }

type openKey struct {
	pitch   uint8
	channel uint8
}

type openNote struct {
	startTick int64
	velocity  uint8
}

// Notes extracts every note of the track with absolute, tempo-compensated
// timing, sorted by (start time, pitch).
//
// A note-on with non-zero velocity opens an entry keyed by (pitch, channel),
// overwriting any stale open note for the same key. A note-off, or a note-on
// with zero velocity, closes the matching entry. A note-off with no matching
// open note is dropped. Notes left open at the end of the track are flushed
// to the final tick with a minimum duration floor.
func (t *Track) Notes() []Note {
	open := make(map[openKey]openNote)
	var notes []Note
	var tick int64

	for _, ev := range t.events {
		tick += int64(ev.Delta)

		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteStart(&ch, &key, &vel):
			open[openKey{pitch: key, channel: ch}] = openNote{startTick: tick, velocity: vel}
		case ev.Message.GetNoteEnd(&ch, &key):
			k := openKey{pitch: key, channel: ch}
			on, ok := open[k]
			if !ok {
				continue // orphan note-off
			}
			start := t.tempo.TickToSeconds(on.startTick)
			end := t.tempo.TickToSeconds(tick)
			notes = append(notes, Note{
				Pitch:         key,
				Start:         start,
				Duration:      end - start,
				Velocity:      on.velocity,
				StartTick:     on.startTick,
				DurationTicks: tick - on.startTick,
			})
			delete(open, k)
		}
	}

	// Flush notes that never saw a note-off, extending them to track end.
	for k, on := range open {
		start := t.tempo.TickToSeconds(on.startTick)
		end := t.tempo.TickToSeconds(tick)
		dur := end - start
		if dur < minFlushDuration {
			dur = minFlushDuration
		}
		notes = append(notes, Note{
			Pitch:         k.pitch,
			Start:         start,
			Duration:      dur,
			Velocity:      on.velocity,
			StartTick:     on.startTick,
			DurationTicks: tick - on.startTick,
		})
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Start != notes[j].Start {
			return notes[i].Start < notes[j].Start
		}
		return notes[i].Pitch < notes[j].Pitch
	})
	return notes
}

// Groups returns the track's notes grouped into chords. Each group's anchor
// is the start time of its first note; a note joins the running group while
// its start lies within GroupTolerance of that anchor. Group members are
// sorted ascending by pitch.
func (t *Track) Groups() []ToneGroup {
	return groupNotes(t.Notes())
}

// groupNotes groups (start, pitch)-sorted notes by onset time.
func groupNotes(notes []Note) []ToneGroup {
	if len(notes) == 0 {
		return nil
	}

	var groups []ToneGroup
	current := ToneGroup{notes[0]}
	anchor := notes[0].Start

	for _, n := range notes[1:] {
		if n.Start-anchor < GroupTolerance && anchor-n.Start < GroupTolerance {
			current = append(current, n)
			continue
		}
		groups = append(groups, sortGroup(current))
		current = ToneGroup{n}
		anchor = n.Start
	}
	return append(groups, sortGroup(current))
}

func sortGroup(g ToneGroup) ToneGroup {
	sort.SliceStable(g, func(i, j int) bool { return g[i].Pitch < g[j].Pitch })
	return g
}

// NoteCount returns the total number of notes in the track.
func (t *Track) NoteCount() int { return len(t.Notes()) }

// Duration returns the track length in seconds, the latest note end time.
func (t *Track) Duration() float64 {
	var max float64
	for _, n := range t.Notes() {
		if end := n.End(); end > max {
			max = end
		}
	}
	return max
}
