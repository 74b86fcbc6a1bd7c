package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/keymacro/internal/timer"
)

// Config is the complete keymacro configuration.
type Config struct {
	Store    StoreConfig    `toml:"store" yaml:"store"`
	Timer    TimerConfig    `toml:"timer" yaml:"timer"`
	Playback PlaybackConfig `toml:"playback" yaml:"playback"`
	Queue    QueueConfig    `toml:"queue" yaml:"queue"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
}

// StoreConfig locates the macro region.
type StoreConfig struct {
	// Image is a raw image (.bin) or macro definition (.yaml/.toml).
	Image string `toml:"image" yaml:"image"`
	// SlotSize is the record size of one macro slot in bytes.
	SlotSize int `toml:"slot_size" yaml:"slot_size"`
	// Base is the address of slot 0 within the image.
	Base int `toml:"base" yaml:"base"`
	// Slots is the number of slots offered for playback.
	Slots int `toml:"slots" yaml:"slots"`
	// Watch reloads the image when the file changes.
	Watch bool `toml:"watch" yaml:"watch"`
}

// TimerConfig describes the emulated playback timer.
type TimerConfig struct {
	// ClockHz is the CPU clock feeding the prescaler.
	ClockHz int `toml:"clock_hz" yaml:"clock_hz"`
	// Prescaler is the clock divisor while playing (1, 8, 32, 64, 128, 256, 1024).
	Prescaler int `toml:"prescaler" yaml:"prescaler"`
	// Reload is written to the counter on every overflow.
	Reload int `toml:"reload" yaml:"reload"`
	// ResolutionMS is how often wall time is fed to the timer.
	ResolutionMS int `toml:"resolution_ms" yaml:"resolution_ms"`
}

// PlaybackConfig tunes the scheduler.
type PlaybackConfig struct {
	// TicksPer100ms overrides the derived delay unit when positive.
	TicksPer100ms int `toml:"ticks_per_100ms" yaml:"ticks_per_100ms"`
	// FrameIntervalMS is the main loop period.
	FrameIntervalMS int `toml:"frame_interval_ms" yaml:"frame_interval_ms"`
}

// QueueConfig sizes the output key queue.
type QueueConfig struct {
	Capacity int `toml:"capacity" yaml:"capacity"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
	// Format is text, json or logfmt.
	Format string `toml:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			SlotSize: 80,
			Slots:    12,
		},
		Timer: TimerConfig{
			ClockHz:      timer.DefaultClockHz,
			Prescaler:    64,
			Reload:       6,
			ResolutionMS: 1,
		},
		Playback: PlaybackConfig{
			FrameIntervalMS: 1,
		},
		Queue: QueueConfig{
			Capacity: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks every setting and returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	if c.Store.SlotSize < 2 || c.Store.SlotSize%2 != 0 {
		add("store.slot_size", "must be a positive even number", c.Store.SlotSize)
	}
	if c.Store.Base < 0 {
		add("store.base", "must not be negative", c.Store.Base)
	}
	if c.Store.Slots < 1 || c.Store.Slots > 255 {
		add("store.slots", "must be between 1 and 255", c.Store.Slots)
	}
	if c.Timer.ClockHz <= 0 {
		add("timer.clock_hz", "must be positive", c.Timer.ClockHz)
	}
	if p, err := timer.ParsePrescaler(c.Timer.Prescaler); err != nil || p == timer.Stopped {
		add("timer.prescaler", "must be 1, 8, 32, 64, 128, 256 or 1024", c.Timer.Prescaler)
	}
	if c.Timer.Reload < 0 || c.Timer.Reload > 255 {
		add("timer.reload", "must be between 0 and 255", c.Timer.Reload)
	}
	if c.Timer.ResolutionMS <= 0 {
		add("timer.resolution_ms", "must be positive", c.Timer.ResolutionMS)
	}
	if c.Playback.TicksPer100ms < 0 {
		add("playback.ticks_per_100ms", "must not be negative", c.Playback.TicksPer100ms)
	}
	if c.Playback.FrameIntervalMS <= 0 {
		add("playback.frame_interval_ms", "must be positive", c.Playback.FrameIntervalMS)
	}
	if c.Queue.Capacity < 1 {
		add("queue.capacity", "must be positive", c.Queue.Capacity)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json", "logfmt":
	default:
		add("logging.format", "must be text, json or logfmt", c.Logging.Format)
	}

	if len(errs) == 0 && c.TicksPer100ms() <= 0 {
		add("playback.ticks_per_100ms", "timer too slow for a 100ms delay unit", c.TicksPer100ms())
	}
	return errors.Join(errs...)
}

// Prescaler returns the running prescaler. Call after Validate.
func (c *Config) Prescaler() timer.Prescaler {
	p, _ := timer.ParsePrescaler(c.Timer.Prescaler)
	return p
}

// TicksPer100ms returns the configured or derived delay unit in ticks.
func (c *Config) TicksPer100ms() int {
	if c.Playback.TicksPer100ms > 0 {
		return c.Playback.TicksPer100ms
	}
	if c.Timer.ClockHz <= 0 || c.Timer.Reload < 0 || c.Timer.Reload > 255 {
		return 0
	}
	return timer.TicksPer100ms(uint64(c.Timer.ClockHz), c.Prescaler(), uint8(c.Timer.Reload))
}

// FrameInterval returns the main loop period.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Playback.FrameIntervalMS) * time.Millisecond
}

// Resolution returns how often the clock feeds the timer.
func (c *Config) Resolution() time.Duration {
	return time.Duration(c.Timer.ResolutionMS) * time.Millisecond
}

// DefaultPath returns the default config file location.
// On Unix-like systems: ~/.config/keymacro/config.toml
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "keymacro", "config.toml"), nil
}
