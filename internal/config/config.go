// ABOUTME: Playback and audio configuration
// ABOUTME: JSON file support with defaults and load-time validation
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// AudioConfig controls the synth engine.
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	SampleRate int     `json:"sampleRate,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
	RampMs     float64 `json:"rampMs,omitempty"`
}

// SerialConfig selects a hardware actuator link. An empty port means no
// hardware is attached.
type SerialConfig struct {
	Port string `json:"port,omitempty"`
	Baud int    `json:"baud,omitempty"`
}

// Config is the full player configuration.
type Config struct {
	MIDIPath     string       `json:"midiPath,omitempty"`
	Track        string       `json:"track,omitempty"`
	TurnOnDelay  float64      `json:"turnOnDelay"`
	TurnOffDelay float64      `json:"turnOffDelay"`
	Speed        float64      `json:"speed"`
	StartTime    float64      `json:"startTime"`
	StopTime     *float64     `json:"stopTime,omitempty"`
	BasePitch    int          `json:"basePitch"`
	Audio        AudioConfig  `json:"audio"`
	Serial       SerialConfig `json:"serial"`
}

// Default returns a config with sensible defaults: valve 0 at C3, original
// speed, audio off.
func Default() *Config {
	return &Config{
		Track:     "all",
		Speed:     1.0,
		BasePitch: 48,
		Audio: AudioConfig{
			SampleRate: 44100,
			Volume:     0.2,
			RampMs:     50,
		},
		Serial: SerialConfig{
			Baud: 115200,
		},
	}
}

// Load reads a JSON config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects values the scheduler and engine must never see.
func (c *Config) Validate() error {
	if c.Speed <= 0 {
		return fmt.Errorf("speed must be > 0, got %g", c.Speed)
	}
	if c.TurnOnDelay < 0 {
		return fmt.Errorf("turnOnDelay must be >= 0, got %g", c.TurnOnDelay)
	}
	if c.TurnOffDelay < 0 {
		return fmt.Errorf("turnOffDelay must be >= 0, got %g", c.TurnOffDelay)
	}
	if c.StartTime < 0 {
		return fmt.Errorf("startTime must be >= 0, got %g", c.StartTime)
	}
	if c.StopTime != nil && *c.StopTime <= c.StartTime {
		return fmt.Errorf("stopTime %g must be after startTime %g", *c.StopTime, c.StartTime)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio volume must be in [0,1], got %g", c.Audio.Volume)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sampleRate must be > 0, got %d", c.Audio.SampleRate)
	}
	return nil
}
