// ABOUTME: Console actuator sinks for dry runs
// ABOUTME: Log open/close and frequency commands with elapsed timestamps
package actuator

import (
	"log/slog"
	"time"
)

// Console is a valve sink that logs commands instead of driving hardware.
// The default sink when neither audio nor a serial port is configured.
type Console struct {
	start time.Time
}

// NewConsole returns a console sink with its timestamp origin at now.
func NewConsole() *Console {
	return &Console{start: time.Now()}
}

func (c *Console) elapsed() float64 { return time.Since(c.start).Seconds() }

// Open logs a valve-open command.
func (c *Console) Open(channel int) {
	slog.Info("valve open", "t", c.elapsed(), "channel", channel)
}

// Close logs a valve-close command.
func (c *Console) Close(channel int) {
	slog.Info("valve close", "t", c.elapsed(), "channel", channel)
}

// ConsoleStepper logs frequency commands instead of driving a motor.
type ConsoleStepper struct {
	start  time.Time
	active float64
}

// NewConsoleStepper returns a console stepper with its origin at now.
func NewConsoleStepper() *ConsoleStepper {
	return &ConsoleStepper{start: time.Now()}
}

// SetFrequency logs a run command.
func (c *ConsoleStepper) SetFrequency(hz float64) {
	slog.Info("stepper run", "t", time.Since(c.start).Seconds(), "hz", hz)
	c.active = hz
}

// Stop logs a stop command, including the frequency it interrupts.
func (c *ConsoleStepper) Stop() {
	slog.Info("stepper stop", "t", time.Since(c.start).Seconds(), "was_hz", c.active)
	c.active = 0
}
