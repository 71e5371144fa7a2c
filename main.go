// ABOUTME: Entry point for the organ/audio player
// ABOUTME: Parses CLI flags and plays a MIDI track against the chosen sink
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/miditone/miditone-go/internal/app"
	"github.com/miditone/miditone-go/internal/config"
	"github.com/miditone/miditone-go/internal/version"
)

var (
	midiPath     = flag.String("midi", "imperialmarch.mid", "Path to the MIDI file")
	track        = flag.String("track", "all", "Track name to play, or 'all'")
	turnOnDelay  = flag.Float64("turn-on-delay", 0, "Seconds to pre-open a valve before note start")
	turnOffDelay = flag.Float64("turn-off-delay", 0, "Seconds to pre-close a valve before note end")
	speed        = flag.Float64("speed", 1.0, "Playback speed multiplier (1.0 = original)")
	startTime    = flag.Float64("start-time", 0, "Start time in seconds (post speed scaling)")
	stopTime     = flag.Float64("stop-time", -1, "Stop time in seconds (exclusive), -1 = play to end")
	audio        = flag.Bool("audio", false, "Synthesize audio output")
	volume       = flag.Float64("volume", 0.2, "Audio volume in [0,1]")
	serialPort   = flag.String("serial", "", "Serial device of the valve controller (empty = console)")
	baud         = flag.Int("baud", 115200, "Serial baud rate")
	configPath   = flag.String("config", "", "Optional JSON config file; flags override it")
	debug        = flag.Bool("debug", false, "Enable debug logging (adds source location)")
)

func main() {
	flag.Parse()
	app.InitLogger(*debug)
	slog.Info(version.Product, "version", version.Version)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("config load failed", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags override the config file, but only when actually passed.
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	override := func(name string, apply func()) {
		if *configPath == "" || setFlags[name] {
			apply()
		}
	}
	override("midi", func() { cfg.MIDIPath = *midiPath })
	override("track", func() { cfg.Track = *track })
	override("turn-on-delay", func() { cfg.TurnOnDelay = *turnOnDelay })
	override("turn-off-delay", func() { cfg.TurnOffDelay = *turnOffDelay })
	override("speed", func() { cfg.Speed = *speed })
	override("start-time", func() { cfg.StartTime = *startTime })
	if setFlags["stop-time"] && *stopTime >= 0 {
		cfg.StopTime = stopTime
	}
	override("audio", func() { cfg.Audio.Enabled = *audio })
	override("volume", func() { cfg.Audio.Volume = *volume })
	override("serial", func() { cfg.Serial.Port = *serialPort })
	override("baud", func() { cfg.Serial.Baud = *baud })

	player, err := app.New(cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}

	song := player.Song()
	slog.Info("song loaded",
		"file", song.Path(),
		"bpm", song.InitialBPM(),
		"ticks_per_beat", song.TicksPerBeat(),
		"tracks", song.TrackNames(),
	)

	// Ctrl-C interrupts the dispatch loop; open valves are force-closed on
	// the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := player.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("playback failed", "err", err)
		os.Exit(1)
	}
}
