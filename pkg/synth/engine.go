// ABOUTME: Multi-voice additive sine synthesizer
// ABOUTME: Voice table with bounded-slope gain ramps rendered per audio block
package synth

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// reapEpsilon is the gain below which a released voice is removed.
const reapEpsilon = 1e-4

// Config controls the synth engine.
type Config struct {
	SampleRate   int     // default 44100
	Volume       float64 // global volume, clamped to [0,1], default 0.2
	RampDuration float64 // gain ramp length in seconds, default 0.05
	BasePitch    int     // MIDI pitch of channel 0
	Enabled      bool    // false selects the silent stub, no device is opened
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Volume == 0 {
		c.Volume = 0.2
	}
	if c.Volume < 0 {
		c.Volume = 0
	}
	if c.Volume > 1 {
		c.Volume = 1
	}
	if c.RampDuration <= 0 {
		c.RampDuration = 0.05
	}
	return c
}

// voice is the synthesis state for one sounding channel. Owned by the engine
// and only touched under the engine lock.
type voice struct {
	freq   float64
	gain   float64
	target float64
}

// Engine is a multi-voice additive synthesizer. Open and Close are called
// from the scheduler thread; render runs on the audio device thread. The
// voice table is the only shared state and is guarded by mu, which is held
// only for table mutation and per-block math, never across a sleep or wait.
//
// When no audio device can be opened, or Enabled is false, the engine runs
// as a no-op stub: Open/Close are accepted and produce no signal.
type Engine struct {
	cfg         Config
	rampSamples int

	mu     sync.Mutex
	voices map[int]*voice
	phase  int64

	// scratch is reused across renderInt16LE calls so the device callback
	// does not allocate. Touched by the device thread only.
	scratch []float32

	dev device
}

// New builds an engine and resolves the audio capability once. Device
// absence or init failure degrades to the stub and is logged, never
// returned: playback without audio is a normal configuration.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:         cfg,
		rampSamples: int(math.Max(1, cfg.RampDuration*float64(cfg.SampleRate))),
		voices:      make(map[int]*voice),
	}

	if !cfg.Enabled {
		slog.Info("synth: audio disabled, running silent")
		return e
	}

	dev, err := newMalgoDevice(e)
	if err == nil {
		e.dev = dev
		slog.Info("synth: audio initialized", "backend", "malgo", "sample_rate", cfg.SampleRate)
		return e
	}
	slog.Info("synth: malgo backend unavailable, trying oto", "err", err)

	dev, err = newOtoDevice(e)
	if err == nil {
		e.dev = dev
		slog.Info("synth: audio initialized", "backend", "oto", "sample_rate", cfg.SampleRate)
		return e
	}
	slog.Info("synth: no audio backend available, running silent", "err", err)
	return e
}

// Active reports whether a real audio device is producing signal.
func (e *Engine) Active() bool { return e.dev != nil }

// Open starts (or re-targets) the voice for a channel. The channel maps to a
// frequency through the configured base pitch.
func (e *Engine) Open(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.voices[channel]; ok {
		v.target = 1
		return
	}
	e.voices[channel] = &voice{
		freq:   440.0 * math.Pow(2, float64(e.cfg.BasePitch+channel-69)/12.0),
		target: 1,
	}
}

// Close ramps a channel's voice down. Unknown channels are a no-op; the
// voice itself is reaped by render once it has decayed.
func (e *Engine) Close(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.voices[channel]; ok {
		v.target = 0
	}
}

// CloseAll releases every voice, waits one ramp duration so the device
// thread can drain the amplitude, then clears the table and releases the
// device. Safe to call in stub mode and more than once.
func (e *Engine) CloseAll() {
	e.mu.Lock()
	for _, v := range e.voices {
		v.target = 0
	}
	e.mu.Unlock()

	if e.dev != nil {
		time.Sleep(time.Duration(float64(e.rampSamples) / float64(e.cfg.SampleRate) * float64(time.Second)))
	}

	e.mu.Lock()
	e.voices = make(map[int]*voice)
	e.mu.Unlock()

	if e.dev != nil {
		e.dev.stop()
		e.dev = nil
	}
}

// render fills one mono block. Each voice's gain advances toward its target
// by at most rampStep per sample so every gain change is a bounded-slope
// ramp; the sine phase persists across blocks. The mix is divided by the
// number of active voices and scaled by the global volume. Released voices
// below the reap threshold are removed at the end of the block.
//
// Runs on the audio device thread. Work is bounded by frames and active
// voice count; it must never block beyond taking the table lock.
func (e *Engine) render(out []float32) {
	for i := range out {
		out[i] = 0
	}
	frames := len(out)
	if frames == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.voices) == 0 {
		e.phase = (e.phase + int64(frames)) % int64(e.cfg.SampleRate)
		return
	}

	rampStep := 1.0 / float64(e.rampSamples)
	voiceCount := float64(len(e.voices))
	sr := float64(e.cfg.SampleRate)

	for ch, v := range e.voices {
		maxDelta := rampStep * float64(frames)
		delta := v.target - v.gain
		if delta > maxDelta {
			delta = maxDelta
		} else if delta < -maxDelta {
			delta = -maxDelta
		}

		w := 2 * math.Pi * v.freq / sr
		for i := 0; i < frames; i++ {
			g := v.gain + delta*float64(i)/float64(frames)
			out[i] += float32(math.Sin(w*float64(e.phase+int64(i))) * g)
		}
		v.gain += delta

		if v.target == 0 && v.gain <= reapEpsilon {
			delete(e.voices, ch)
		}
	}

	scale := float32(e.cfg.Volume / voiceCount)
	for i := range out {
		out[i] *= scale
	}
	e.phase = (e.phase + int64(frames)) % int64(e.cfg.SampleRate)
}

// renderInt16LE renders a block directly into a 16-bit little-endian byte
// buffer, the wire format both device backends consume.
func (e *Engine) renderInt16LE(dst []byte) {
	frames := len(dst) / 2
	if cap(e.scratch) < frames {
		e.scratch = make([]float32, frames)
	}
	block := e.scratch[:frames]
	e.render(block)

	for i, s := range block {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		dst[i*2] = byte(v)
		dst[i*2+1] = byte(uint16(v) >> 8)
	}
}
