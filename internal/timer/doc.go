// Package timer emulates the 8-bit overflow timer that paces macro playback.
//
// Counter8 models an AVR-style timer/counter: an 8-bit register counting up
// at the CPU clock divided by a prescaler, raising an overflow callback
// when it wraps from 255 to 0. The callback usually writes a reload value
// back into the register so the next overflow comes after 256-reload
// counts. Selecting the Stopped prescaler halts counting.
//
// Clock drives a Counter8 from wall time in its own goroutine. That
// goroutine plays the role of the interrupt context: overflow callbacks run
// on it and must stay short and non-blocking.
//
// With the firmware defaults (12 MHz clock, /64 prescaler, reload 6) the
// counter overflows 750 times per second, 75 times per 100 ms.
package timer
