// ABOUTME: Audio device backends for the synth engine
// ABOUTME: malgo callback device with an oto pull-based fallback
package synth

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"
)

// device is a running audio output pulling blocks from the engine.
type device interface {
	stop()
}

// malgoDevice drives the engine from the miniaudio data callback. The OS
// audio thread invokes the callback at a fixed block cadence; each call
// renders one block straight into the device buffer.
type malgoDevice struct {
	ctx *malgo.AllocatedContext
	dev *malgo.Device
}

func newMalgoDevice(e *Engine) (device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context init: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(e.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			e.renderInt16LE(pOutputSample)
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		uninitContext(ctx)
		return nil, fmt.Errorf("malgo device init: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		uninitContext(ctx)
		return nil, fmt.Errorf("malgo device start: %w", err)
	}

	return &malgoDevice{ctx: ctx, dev: dev}, nil
}

func (m *malgoDevice) stop() {
	if err := m.dev.Stop(); err != nil {
		slog.Warn("synth: malgo device stop", "err", err)
	}
	m.dev.Uninit()
	uninitContext(m.ctx)
}

func uninitContext(ctx *malgo.AllocatedContext) {
	if err := ctx.Uninit(); err != nil {
		slog.Warn("synth: malgo context uninit", "err", err)
	}
	ctx.Free()
}

// otoDevice feeds an oto player from the engine through an io.Reader. oto
// pulls on its own thread, so synthesis still happens off the scheduler.
type otoDevice struct {
	player *oto.Player
	ctx    *oto.Context
}

func newOtoDevice(e *Engine) (device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   e.cfg.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(&engineReader{engine: e})
	player.Play()
	return &otoDevice{player: player, ctx: ctx}, nil
}

func (o *otoDevice) stop() {
	if err := o.player.Close(); err != nil {
		slog.Warn("synth: oto player close", "err", err)
	}
	if err := o.ctx.Suspend(); err != nil {
		slog.Warn("synth: oto context suspend", "err", err)
	}
}

// engineReader adapts the engine's block renderer to the io.Reader the oto
// player consumes. Always fills the whole buffer; silence is rendered
// explicitly, never signalled as EOF.
type engineReader struct {
	engine *Engine
}

func (r *engineReader) Read(p []byte) (int, error) {
	n := len(p) &^ 1 // whole 16-bit frames only
	if n == 0 {
		return 0, nil
	}
	r.engine.renderInt16LE(p[:n])
	return n, nil
}

var _ io.Reader = (*engineReader)(nil)
