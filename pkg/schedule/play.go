// ABOUTME: Monotonic real-time event dispatch loop
// ABOUTME: Sleeps between commands and drives valve or frequency sinks
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/miditone/miditone-go/pkg/miditone"
)

// ValveSink receives discrete open/close commands for abstract actuator
// channels. Implementations: the synth engine, the serial valve controller,
// the console sink.
type ValveSink interface {
	Open(channel int)
	Close(channel int)
}

// FrequencySink drives a single-frequency actuator such as a stepper motor.
type FrequencySink interface {
	SetFrequency(hz float64)
	Stop()
}

// Play dispatches events against a monotonic wall clock. For each event it
// sleeps until the command time, then issues the open or close. An Open for
// a channel already open is suppressed, as is a Close for a channel not
// open. When the loop ends, or the context is cancelled mid-sleep, every
// channel still open is force-closed.
//
// This is the only place in the package that blocks. Events are dispatched
// strictly in list order.
func Play(ctx context.Context, events []Event, sink ValveSink) error {
	if len(events) == 0 {
		return ErrNoEvents
	}

	open := make(map[int]bool)
	defer func() {
		for ch := range open {
			sink.Close(ch)
		}
	}()

	origin := time.Now()
	for _, ev := range events {
		if err := sleepUntil(ctx, origin, ev.Time); err != nil {
			return err
		}

		switch ev.Kind {
		case KindOpen:
			if open[ev.Channel] {
				continue
			}
			sink.Open(ev.Channel)
			open[ev.Channel] = true
		case KindClose:
			if !open[ev.Channel] {
				continue
			}
			sink.Close(ev.Channel)
			delete(open, ev.Channel)
		}
		slog.Debug("event dispatched",
			"t", time.Since(origin).Seconds(),
			"kind", ev.Kind.String(),
			"channel", ev.Channel,
			"note", ev.Note.FullName(),
			"track", ev.Track,
		)
	}
	return nil
}

// FreqEvent is a timed frequency change. Hz zero means stop.
type FreqEvent struct {
	Time float64
	Hz   float64
}

// FrequencyEvents flattens tone groups for a single-frequency actuator. Only
// the first (lowest) note of each group plays; the rest are ignored.
func FrequencyEvents(groups []miditone.ToneGroup, speed float64) ([]FreqEvent, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("speed must be > 0, got %g", speed)
	}

	var events []FreqEvent
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		note := group[0]
		start := note.Start / speed
		end := start + note.Duration/speed
		events = append(events,
			FreqEvent{Time: start, Hz: note.Frequency()},
			FreqEvent{Time: end, Hz: 0},
		)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		// starts before stops at the same instant
		return events[i].Hz > events[j].Hz
	})
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	return events, nil
}

// PlayFrequencies dispatches frequency events with the same monotonic loop
// as Play and stops the motor when done or cancelled.
func PlayFrequencies(ctx context.Context, events []FreqEvent, sink FrequencySink) error {
	if len(events) == 0 {
		return ErrNoEvents
	}
	defer sink.Stop()

	origin := time.Now()
	for _, ev := range events {
		if err := sleepUntil(ctx, origin, ev.Time); err != nil {
			return err
		}
		if ev.Hz > 0 {
			sink.SetFrequency(ev.Hz)
		} else {
			sink.Stop()
		}
	}
	return nil
}

// sleepUntil blocks until target seconds have elapsed since origin, or the
// context is cancelled. A target already in the past returns immediately.
func sleepUntil(ctx context.Context, origin time.Time, target float64) error {
	wait := time.Duration(target*float64(time.Second)) - time.Since(origin)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
