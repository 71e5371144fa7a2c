// ABOUTME: Inspection tool for MIDI files
// ABOUTME: Prints tracks, tempo changes, and the first tone groups of a track
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/miditone/miditone-go/internal/app"
	"github.com/miditone/miditone-go/pkg/miditone"
)

var (
	midiPath = flag.String("midi", "imperialmarch.mid", "Path to the MIDI file")
	track    = flag.String("track", "", "Track to dump tone groups for (empty = none)")
	groups   = flag.Int("groups", 16, "Number of tone groups to dump")
	debug    = flag.Bool("debug", false, "Enable debug logging (adds source location)")
)

func main() {
	flag.Parse()
	app.InitLogger(*debug)

	song, err := miditone.Load(*midiPath)
	if err != nil {
		slog.Error("load failed", "path", *midiPath, "err", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %g BPM, %d ticks/beat\n", song.Path(), song.InitialBPM(), song.TicksPerBeat())

	fmt.Println("\nTracks:")
	for i, tr := range song.Tracks() {
		fmt.Printf("  %2d  %-24s ch %-2d  %4d notes  %7.2fs\n",
			i, tr.Name(), tr.Channel(), tr.NoteCount(), tr.Duration())
	}

	entries := song.Tempo().Entries()
	fmt.Println("\nTempo changes:")
	for _, e := range entries {
		bpm := 60_000_000 / float64(e.USPerBeat)
		fmt.Printf("  tick %-8d %8.2fs  %7.2f BPM\n", e.Tick, song.Tempo().TickToSeconds(e.Tick), bpm)
	}

	if *track == "" {
		return
	}
	tr, err := song.Track(*track)
	if err != nil {
		slog.Error("track lookup failed", "track", *track, "err", err)
		os.Exit(1)
	}

	fmt.Printf("\nTone groups for %q:\n", tr.Name())
	for i, g := range tr.Groups() {
		if i >= *groups {
			fmt.Printf("  ... %d more\n", len(tr.Groups())-i)
			break
		}
		fmt.Printf("  %8.3fs ", g[0].Start)
		for _, n := range g {
			fmt.Printf(" %s", n.FullName())
		}
		fmt.Println()
	}
}
