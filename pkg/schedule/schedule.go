// ABOUTME: Delay-compensated actuator event building
// ABOUTME: Converts tone groups into windowed, time-sorted open/close events
package schedule

import (
	"fmt"
	"sort"

	"github.com/miditone/miditone-go/pkg/miditone"
)

// ErrNoEvents reports that windowing and filtering left nothing to play.
// A normal outcome, not a failure.
var ErrNoEvents = fmt.Errorf("no events to play")

// Kind distinguishes open from close commands. Open sorts before Close at
// equal timestamps so a sustained note is never closed by a simultaneous
// re-trigger.
type Kind int

const (
	KindOpen Kind = iota
	KindClose
)

func (k Kind) String() string {
	if k == KindOpen {
		return "open"
	}
	return "close"
}

// Event is a single timed actuator command. Time is seconds relative to the
// start of the playback window.
type Event struct {
	Time    float64
	Kind    Kind
	Channel int
	Note    miditone.Note
	Track   string
}

// Options control event building. WindowEnd nil means the window extends to
// the end of the material.
type Options struct {
	TurnOnDelay  float64
	TurnOffDelay float64
	Speed        float64
	WindowStart  float64
	WindowEnd    *float64
	BasePitch    int
	Track        string
}

// Validate rejects option values before they can reach the scheduler.
func (o Options) Validate() error {
	if o.Speed <= 0 {
		return fmt.Errorf("speed must be > 0, got %g", o.Speed)
	}
	if o.TurnOnDelay < 0 || o.TurnOffDelay < 0 {
		return fmt.Errorf("delays must be >= 0, got on=%g off=%g", o.TurnOnDelay, o.TurnOffDelay)
	}
	if o.WindowStart < 0 {
		return fmt.Errorf("window start must be >= 0, got %g", o.WindowStart)
	}
	if o.WindowEnd != nil && *o.WindowEnd <= o.WindowStart {
		return fmt.Errorf("window end %g must be after window start %g", *o.WindowEnd, o.WindowStart)
	}
	return nil
}

// Build turns tone groups into a time-sorted event list.
//
// Per note: timestamps are divided by speed, notes wholly outside
// [WindowStart, WindowEnd) are dropped, survivors are clipped to the window
// and rebased so the window start becomes time zero. Open commands fire
// TurnOnDelay early and close commands TurnOffDelay early, clamped at zero,
// so the physical actuator reaches its state at the musically intended
// instant despite actuation latency.
func Build(groups []miditone.ToneGroup, opts Options) ([]Event, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var events []Event
	for _, group := range groups {
		for _, note := range group {
			start := note.Start / opts.Speed
			end := start + note.Duration/opts.Speed

			if opts.WindowEnd != nil && start >= *opts.WindowEnd {
				continue
			}
			if end <= opts.WindowStart {
				continue
			}

			clippedStart := start
			if clippedStart < opts.WindowStart {
				clippedStart = opts.WindowStart
			}
			clippedEnd := end
			if opts.WindowEnd != nil && clippedEnd > *opts.WindowEnd {
				clippedEnd = *opts.WindowEnd
			}
			if clippedEnd <= clippedStart {
				continue
			}

			relStart := clippedStart - opts.WindowStart
			relEnd := clippedEnd - opts.WindowStart

			openTime := relStart - opts.TurnOnDelay
			if openTime < 0 {
				openTime = 0
			}
			closeTime := relEnd - opts.TurnOffDelay
			if closeTime < 0 {
				closeTime = 0
			}

			channel := int(note.Pitch) - opts.BasePitch
			events = append(events,
				Event{Time: openTime, Kind: KindOpen, Channel: channel, Note: note, Track: opts.Track},
				Event{Time: closeTime, Kind: KindClose, Channel: channel, Note: note, Track: opts.Track},
			)
		}
	}

	sortEvents(events)
	return events, nil
}

// Merge concatenates independently built event lists and re-sorts them by
// the shared (time, open-before-close, channel) key, so overlapping tracks
// stay in chronological order.
func Merge(lists ...[]Event) []Event {
	var merged []Event
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sortEvents(merged)
	return merged
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Channel < b.Channel
	})
}
