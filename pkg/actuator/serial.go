// ABOUTME: Serial-port actuator drivers
// ABOUTME: Valve controller and stepper motor over a framed serial link
package actuator

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"go.bug.st/serial"
)

// port is the minimal serial surface the drivers use; satisfied by
// serial.Port and by in-memory writers in tests.
type port interface {
	io.Writer
	io.Closer
}

// openPort opens the named serial device at the given baud rate.
func openPort(device string, baud int) (port, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", device, err)
	}
	slog.Info("serial: port opened", "device", device, "baud", baud)
	return p, nil
}

// Valves drives a pipe-organ valve controller over a serial link. Channel
// indices may be negative (valves below the base pitch); they are encoded
// as int8 on the wire.
type Valves struct {
	port port
}

// OpenValves connects to the valve controller.
func OpenValves(device string, baud int) (*Valves, error) {
	p, err := openPort(device, baud)
	if err != nil {
		return nil, err
	}
	return &Valves{port: p}, nil
}

// Open opens one valve.
func (v *Valves) Open(channel int) { v.set(channel, 1) }

// Close closes one valve.
func (v *Valves) Close(channel int) { v.set(channel, 0) }

func (v *Valves) set(channel int, state byte) {
	if channel < math.MinInt8 || channel > math.MaxInt8 {
		slog.Warn("valves: channel out of wire range, dropped", "channel", channel)
		return
	}
	frame := encodeFrame(cmdValveSet, []byte{byte(int8(channel)), state})
	if _, err := v.port.Write(frame); err != nil {
		slog.Error("valves: write failed", "channel", channel, "state", state, "err", err)
	}
}

// AllOff closes every valve with a single command.
func (v *Valves) AllOff() {
	if _, err := v.port.Write(encodeFrame(cmdAllOff, nil)); err != nil {
		slog.Error("valves: all-off write failed", "err", err)
	}
}

// Shutdown closes all valves and releases the port.
func (v *Valves) Shutdown() error {
	v.AllOff()
	return v.port.Close()
}

// Stepper drives a stepper motor at note frequencies over the same framed
// serial link. Frequencies are sent as centihertz so the controller works
// in integers.
type Stepper struct {
	port port
}

// OpenStepper connects to the stepper controller.
func OpenStepper(device string, baud int) (*Stepper, error) {
	p, err := openPort(device, baud)
	if err != nil {
		return nil, err
	}
	return &Stepper{port: p}, nil
}

// SetFrequency sets the drive frequency in Hz.
func (s *Stepper) SetFrequency(hz float64) {
	if hz < 0 {
		hz = 0
	}
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(math.Round(hz*100)))
	if _, err := s.port.Write(encodeFrame(cmdSetFrequency, payload)); err != nil {
		slog.Error("stepper: write failed", "hz", hz, "err", err)
	}
}

// Stop stops driving the motor.
func (s *Stepper) Stop() { s.SetFrequency(0) }

// Shutdown stops the motor and releases the port.
func (s *Stepper) Shutdown() error {
	s.Stop()
	return s.port.Close()
}
