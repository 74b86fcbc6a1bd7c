// Package config provides the configuration system for keymacro.
//
// Configuration is resolved in three layers, higher layers overriding
// lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← KEYMACRO_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← TOML or YAML
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Command line flags are applied by the caller after Load.
//
// # Configuration Files
//
// The format is chosen by extension (.toml, .yaml, .yml):
//
//	# ~/.config/keymacro/config.toml
//	[store]
//	image = "macros.yaml"
//	slot_size = 80
//
//	[timer]
//	clock_hz = 12000000
//	prescaler = 64
//	reload = 6
//
//	[logging]
//	level = "debug"
//
// Only the keys present in the file are changed; everything else keeps its
// default.
//
// # Derived Values
//
// playback.ticks_per_100ms defaults to 0, meaning "derive from the timer":
// clock_hz / 10 / (256 - reload) / prescaler. The reference board gives 75.
package config
