// ABOUTME: Song loading and track access
// ABOUTME: Parses a MIDI file and exposes named, tempo-aware tracks
package miditone

import (
	"fmt"
	"os"
	"strings"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrTrackNotFound is returned when a track name does not exist in the song.
var ErrTrackNotFound = fmt.Errorf("track not found")

// Song is a loaded MIDI file: its tempo map plus one Track per file track.
// Immutable after Load.
type Song struct {
	path         string
	ticksPerBeat int64
	tempo        *TempoMap
	tracks       []*Track
	byName       map[string]*Track
}

// Load reads and validates a MIDI file, builds the tempo map and resolves
// track names. Fails before any scheduling can begin: a missing file, an
// unparsable file or a non-positive resolution are all load-time errors.
func Load(path string) (*Song, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("midi file not found: %w", err)
	}

	parsed, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("not a valid midi file %q: %w", path, err)
	}

	metric, ok := parsed.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported midi time format %v (want metric ticks)", parsed.TimeFormat)
	}
	ticksPerBeat := int64(metric.Resolution())
	if ticksPerBeat <= 0 {
		return nil, fmt.Errorf("invalid midi resolution %d", ticksPerBeat)
	}

	tempo := buildTempoMap(parsed.Tracks, ticksPerBeat)

	s := &Song{
		path:         path,
		ticksPerBeat: ticksPerBeat,
		tempo:        tempo,
		byName:       make(map[string]*Track),
	}
	names := trackNames(parsed.Tracks)
	for i, raw := range parsed.Tracks {
		tr := &Track{
			name:    names[i],
			channel: primaryChannel(raw),
			events:  raw,
			tempo:   tempo,
		}
		s.tracks = append(s.tracks, tr)
		s.byName[tr.name] = tr
	}
	return s, nil
}

// Track returns the track with the given name (case-sensitive).
func (s *Song) Track(name string) (*Track, error) {
	tr, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			ErrTrackNotFound, name, strings.Join(s.TrackNames(), ", "))
	}
	return tr, nil
}

// TrackAt returns the track at a zero-based index.
func (s *Song) TrackAt(index int) (*Track, error) {
	if index < 0 || index >= len(s.tracks) {
		return nil, fmt.Errorf("track index %d out of range (0-%d)", index, len(s.tracks)-1)
	}
	return s.tracks[index], nil
}

// Tracks returns every track in file order.
func (s *Song) Tracks() []*Track {
	out := make([]*Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// TrackNames returns all track names in file order.
func (s *Song) TrackNames() []string {
	names := make([]string, len(s.tracks))
	for i, tr := range s.tracks {
		names[i] = tr.name
	}
	return names
}

// Tempo returns the song's tempo map.
func (s *Song) Tempo() *TempoMap { return s.tempo }

// TicksPerBeat returns the file resolution.
func (s *Song) TicksPerBeat() int64 { return s.ticksPerBeat }

// InitialBPM returns the tempo at tick 0 in beats per minute.
func (s *Song) InitialBPM() float64 {
	return 60_000_000 / float64(s.tempo.entries[0].USPerBeat)
}

// Path returns the file the song was loaded from.
func (s *Song) Path() string { return s.path }

// gmInstruments names the General MIDI programs we care to label tracks
// with; anything else falls back to "Track N".
var gmInstruments = map[uint8]string{
	0:  "Acoustic Grand Piano",
	1:  "Bright Acoustic Piano",
	2:  "Electric Grand Piano",
	3:  "Honky-tonk Piano",
	4:  "Electric Piano 1",
	5:  "Electric Piano 2",
	19: "Church Organ",
	40: "Violin",
	48: "Strings",
	56: "Trumpet",
	57: "Trombone",
	73: "Flute",
}

// trackNames resolves one name per track: the track-name meta event if
// present, else the instrument of the first program change, else "Track N".
// Duplicate names get " (2)", " (3)" suffixes.
func trackNames(tracks []smf.Track) []string {
	names := make([]string, 0, len(tracks))
	seen := make(map[string]int)

	for idx, track := range tracks {
		var name string
		var program *uint8

		for _, ev := range track {
			var text string
			if ev.Message.GetMetaTrackName(&text) && strings.TrimSpace(text) != "" {
				name = strings.TrimSpace(text)
				break
			}
			var ch, prog uint8
			if program == nil && ev.Message.GetProgramChange(&ch, &prog) {
				p := prog
				program = &p
			}
		}

		if name == "" {
			if program != nil {
				name = gmInstruments[*program]
			}
			if name == "" {
				name = fmt.Sprintf("Track %d", idx)
			}
		}

		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		names = append(names, name)
	}
	return names
}

// primaryChannel returns the most frequently used channel of a track, or 0
// when the track has no channel messages.
func primaryChannel(track smf.Track) uint8 {
	counts := make(map[uint8]int)
	for _, ev := range track {
		var ch uint8
		if ev.Message.GetChannel(&ch) {
			counts[ch]++
		}
	}
	var best uint8
	bestCount := 0
	for ch, n := range counts {
		if n > bestCount || (n == bestCount && ch < best) {
			best = ch
			bestCount = n
		}
	}
	return best
}
