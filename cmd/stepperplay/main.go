// ABOUTME: Entry point for the stepper motor player
// ABOUTME: Drives a single stepper at note frequency from one MIDI track
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/miditone/miditone-go/internal/app"
	"github.com/miditone/miditone-go/pkg/actuator"
	"github.com/miditone/miditone-go/pkg/miditone"
	"github.com/miditone/miditone-go/pkg/schedule"
)

var (
	midiPath   = flag.String("midi", "imperialmarch.mid", "Path to the MIDI file")
	track      = flag.String("track", "", "Track name to play (default: first track)")
	speed      = flag.Float64("speed", 1.0, "Playback speed multiplier (1.0 = original)")
	serialPort = flag.String("serial", "", "Serial device of the stepper controller (empty = console)")
	baud       = flag.Int("baud", 115200, "Serial baud rate")
	debug      = flag.Bool("debug", false, "Enable debug logging (adds source location)")
)

func main() {
	flag.Parse()
	app.InitLogger(*debug)

	song, err := miditone.Load(*midiPath)
	if err != nil {
		slog.Error("load failed", "path", *midiPath, "err", err)
		os.Exit(1)
	}

	var tr *miditone.Track
	if *track == "" {
		tr, err = song.TrackAt(0)
	} else {
		tr, err = song.Track(*track)
	}
	if err != nil {
		slog.Error("track selection failed", "track", *track, "err", err)
		os.Exit(1)
	}

	events, err := schedule.FrequencyEvents(tr.Groups(), *speed)
	if errors.Is(err, schedule.ErrNoEvents) {
		slog.Info("nothing to play", "track", tr.Name())
		return
	}
	if err != nil {
		slog.Error("scheduling failed", "track", tr.Name(), "err", err)
		os.Exit(1)
	}
	slog.Info("track scheduled",
		"track", tr.Name(),
		"notes", tr.NoteCount(),
		"events", len(events),
		"speed", *speed,
	)

	var sink schedule.FrequencySink
	if *serialPort != "" {
		stepper, err := actuator.OpenStepper(*serialPort, *baud)
		if err != nil {
			slog.Error("stepper open failed", "port", *serialPort, "err", err)
			os.Exit(1)
		}
		defer stepper.Shutdown()
		sink = stepper
	} else {
		sink = actuator.NewConsoleStepper()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := schedule.PlayFrequencies(ctx, events, sink); err != nil && ctx.Err() == nil {
		slog.Error("playback failed", "err", err)
		os.Exit(1)
	}
}
