package config

import (
	"errors"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of all configuration environment variables.
const EnvPrefix = "KEYMACRO_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envSetter func(cfg *Config, value string) error

// envMapping maps environment variables to settings.
var envMapping = map[string]struct {
	path string
	set  envSetter
}{
	"KEYMACRO_STORE_IMAGE":                {"store.image", setString(func(c *Config) *string { return &c.Store.Image })},
	"KEYMACRO_STORE_SLOT_SIZE":            {"store.slot_size", setInt(func(c *Config) *int { return &c.Store.SlotSize })},
	"KEYMACRO_STORE_BASE":                 {"store.base", setInt(func(c *Config) *int { return &c.Store.Base })},
	"KEYMACRO_STORE_SLOTS":                {"store.slots", setInt(func(c *Config) *int { return &c.Store.Slots })},
	"KEYMACRO_STORE_WATCH":                {"store.watch", setBool(func(c *Config) *bool { return &c.Store.Watch })},
	"KEYMACRO_TIMER_CLOCK_HZ":             {"timer.clock_hz", setInt(func(c *Config) *int { return &c.Timer.ClockHz })},
	"KEYMACRO_TIMER_PRESCALER":            {"timer.prescaler", setInt(func(c *Config) *int { return &c.Timer.Prescaler })},
	"KEYMACRO_TIMER_RELOAD":               {"timer.reload", setInt(func(c *Config) *int { return &c.Timer.Reload })},
	"KEYMACRO_TIMER_RESOLUTION_MS":        {"timer.resolution_ms", setInt(func(c *Config) *int { return &c.Timer.ResolutionMS })},
	"KEYMACRO_PLAYBACK_TICKS_PER_100MS":   {"playback.ticks_per_100ms", setInt(func(c *Config) *int { return &c.Playback.TicksPer100ms })},
	"KEYMACRO_PLAYBACK_FRAME_INTERVAL_MS": {"playback.frame_interval_ms", setInt(func(c *Config) *int { return &c.Playback.FrameIntervalMS })},
	"KEYMACRO_QUEUE_CAPACITY":             {"queue.capacity", setInt(func(c *Config) *int { return &c.Queue.Capacity })},
	"KEYMACRO_LOG_LEVEL":                  {"logging.level", setString(func(c *Config) *string { return &c.Logging.Level })},
	"KEYMACRO_LOG_FORMAT":                 {"logging.format", setString(func(c *Config) *string { return &c.Logging.Format })},
}

// EnvVars returns the supported environment variable names.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, name)
	}
	return names
}

// ApplyEnv overrides cfg with every mapped variable lookup finds.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	var errs []error
	for name, m := range envMapping {
		val, ok := lookup(name)
		if !ok {
			continue
		}
		if err := m.set(cfg, strings.TrimSpace(val)); err != nil {
			errs = append(errs, &ValidationError{
				Path:    m.path,
				Message: name + ": " + err.Error(),
				Value:   val,
			})
		}
	}
	return errors.Join(errs...)
}

func setString(field func(*Config) *string) envSetter {
	return func(cfg *Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

func setInt(field func(*Config) *int) envSetter {
	return func(cfg *Config, value string) error {
		n, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return errors.New("not an integer")
		}
		*field(cfg) = int(n)
		return nil
	}
}

func setBool(field func(*Config) *bool) envSetter {
	return func(cfg *Config, value string) error {
		switch strings.ToLower(value) {
		case "true", "yes", "on", "1":
			*field(cfg) = true
		case "false", "no", "off", "0", "":
			*field(cfg) = false
		default:
			return errors.New("not a boolean")
		}
		return nil
	}
}
