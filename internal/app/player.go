// ABOUTME: Player application orchestration
// ABOUTME: Loads a song, builds merged event lists and drives the chosen sink
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/miditone/miditone-go/internal/config"
	"github.com/miditone/miditone-go/pkg/actuator"
	"github.com/miditone/miditone-go/pkg/miditone"
	"github.com/miditone/miditone-go/pkg/schedule"
	"github.com/miditone/miditone-go/pkg/synth"
)

// InitLogger configures the process-wide slog handler. Debug mode adds
// source locations.
func InitLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	slog.SetDefault(slog.New(h))
}

// Player wires a loaded song to an actuator sink and plays it.
type Player struct {
	cfg  *config.Config
	song *miditone.Song
}

// New validates the configuration and loads the song.
func New(cfg *config.Config) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	song, err := miditone.Load(cfg.MIDIPath)
	if err != nil {
		return nil, err
	}
	return &Player{cfg: cfg, song: song}, nil
}

// Song exposes the loaded song.
func (p *Player) Song() *miditone.Song { return p.song }

// selectTracks resolves the track selection; "all" plays every track.
func (p *Player) selectTracks() ([]*miditone.Track, error) {
	if p.cfg.Track == "all" || p.cfg.Track == "" {
		tracks := p.song.Tracks()
		if len(tracks) == 0 {
			return nil, fmt.Errorf("no tracks in %s", p.song.Path())
		}
		return tracks, nil
	}
	tr, err := p.song.Track(p.cfg.Track)
	if err != nil {
		return nil, err
	}
	return []*miditone.Track{tr}, nil
}

// BuildEvents builds and merges the delay-compensated event lists of every
// selected track.
func (p *Player) BuildEvents() ([]schedule.Event, error) {
	tracks, err := p.selectTracks()
	if err != nil {
		return nil, err
	}

	var lists [][]schedule.Event
	totalTones := 0
	for _, tr := range tracks {
		groups := tr.Groups()
		for _, g := range groups {
			totalTones += len(g)
		}

		opts := schedule.Options{
			TurnOnDelay:  p.cfg.TurnOnDelay,
			TurnOffDelay: p.cfg.TurnOffDelay,
			Speed:        p.cfg.Speed,
			WindowStart:  p.cfg.StartTime,
			WindowEnd:    p.cfg.StopTime,
			BasePitch:    p.cfg.BasePitch,
			Track:        tr.Name(),
		}
		events, err := schedule.Build(groups, opts)
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", tr.Name(), err)
		}
		lists = append(lists, events)
	}

	merged := schedule.Merge(lists...)
	slog.Info("events queued",
		"file", p.song.Path(),
		"tracks", len(tracks),
		"tones", totalTones,
		"events", len(merged),
		"speed", p.cfg.Speed,
		"turn_on_delay", p.cfg.TurnOnDelay,
		"turn_off_delay", p.cfg.TurnOffDelay,
	)
	return merged, nil
}

// Run plays the configured selection against the configured sink. An empty
// event list after windowing is a normal outcome, reported and not failed.
func (p *Player) Run(ctx context.Context) error {
	events, err := p.BuildEvents()
	if err != nil {
		return err
	}

	sink, shutdown, err := p.openSink()
	if err != nil {
		return err
	}
	defer shutdown()

	err = schedule.Play(ctx, events, sink)
	if errors.Is(err, schedule.ErrNoEvents) {
		slog.Info("nothing to play", "track", p.cfg.Track, "available", p.song.TrackNames())
		return nil
	}
	return err
}

// openSink picks the actuator: synth engine when audio is enabled, the
// serial valve controller when a port is configured, the console otherwise.
func (p *Player) openSink() (schedule.ValveSink, func(), error) {
	if p.cfg.Audio.Enabled {
		engine := synth.New(synth.Config{
			SampleRate:   p.cfg.Audio.SampleRate,
			Volume:       p.cfg.Audio.Volume,
			RampDuration: p.cfg.Audio.RampMs / 1000,
			BasePitch:    p.cfg.BasePitch,
			Enabled:      true,
		})
		return engine, engine.CloseAll, nil
	}

	if p.cfg.Serial.Port != "" {
		valves, err := actuator.OpenValves(p.cfg.Serial.Port, p.cfg.Serial.Baud)
		if err != nil {
			return nil, nil, err
		}
		return valves, func() {
			if err := valves.Shutdown(); err != nil {
				slog.Warn("valves shutdown", "err", err)
			}
		}, nil
	}

	return actuator.NewConsole(), func() {}, nil
}
