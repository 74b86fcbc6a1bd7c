// Package macro plays back keyboard macros stored in fixed-size slots.
//
// # Concepts
//
// A macro is a slot in the macro store: a list of (key index, delay)
// entries ending at a terminator (key 0 or 255) or at the end of the slot.
// Playing a macro pushes each key index to a KeySink, pausing after any
// entry with a nonzero delay until enough timer ticks have elapsed.
//
// # Playback
//
// The Player owns a single session and two execution contexts:
//
//   - OnTick is the timer overflow callback. It only rearms the counter and
//     increments the elapsed tick count.
//   - PollFrame is called once per main-loop iteration. When the elapsed
//     ticks reach the pending delay it runs the Decoder, which pushes keys
//     and either arms the next delay or ends the session.
//
// Example:
//
//	player, err := macro.NewPlayer(table, queue, counter)
//	if err != nil {
//	    return err
//	}
//	player.Init()
//	player.Start(3) // immediate keys are pushed before Start returns
//	for player.IsActive() {
//	    player.PollFrame()
//	}
//
// # Sessions
//
// Only one session exists at a time. Start while a session is active is
// silently ignored. A session ends when the Decoder reads a terminator,
// runs off the end of the slot, or Cancel is called. Malformed data is
// never an error: it ends the macro.
//
// # Thread Safety
//
// OnTick may run on any goroutine concurrently with the main loop. Every
// other method must be called from the main loop.
package macro
