// Package script runs Lua playback scenarios against a simulated keyboard.
//
// Scripts see a sandboxed Lua (base, table, string and math libraries only)
// plus the keymacro module, available both as a global and through
// require("keymacro"):
//
//	keymacro.start(slot)          -> bool, trigger a slot
//	keymacro.cancel()             -> bool, stop the active session
//	keymacro.tick([n])            -> overflows fired by n timer periods
//	keymacro.poll()                  run one main loop iteration
//	keymacro.frame([n])              n times: one tick then one poll
//	keymacro.active()             -> bool
//	keymacro.has_macro(slot)      -> bool
//	keymacro.drain()              -> list of key names emitted since last drain
//	keymacro.run_until_idle([max])-> ticks used, idle
//	keymacro.ticks_per_100ms()    -> delay unit in ticks
//	keymacro.elapsed_ms()         -> simulated time in milliseconds
//	keymacro.session()            -> table describing the current session
//	keymacro.log(fmt, ...)           log through the application logger
//
// Example:
//
//	local km = require("keymacro")
//	assert(km.start(0))
//	km.run_until_idle()
//	local keys = km.drain()
//	assert(keys[1] == "H" and keys[2] == "I")
package script
