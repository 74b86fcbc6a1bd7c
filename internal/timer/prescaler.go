package timer

import (
	"errors"
	"fmt"
)

// ErrInvalidPrescaler indicates a divisor the timer does not support.
var ErrInvalidPrescaler = errors.New("invalid prescaler")

// Prescaler selects the timer clock source.
type Prescaler uint8

// Clock select values, in register order.
const (
	Stopped Prescaler = iota
	Div1
	Div8
	Div32
	Div64
	Div128
	Div256
	Div1024
)

var divisors = [...]uint64{0, 1, 8, 32, 64, 128, 256, 1024}

// Divisor returns the number of CPU cycles per count, or 0 when stopped.
func (p Prescaler) Divisor() uint64 {
	if int(p) >= len(divisors) {
		return 0
	}
	return divisors[p]
}

// String returns "stopped" or "clk/N".
func (p Prescaler) String() string {
	d := p.Divisor()
	if d == 0 {
		return "stopped"
	}
	return fmt.Sprintf("clk/%d", d)
}

// ParsePrescaler returns the prescaler for a CPU-cycle divisor.
// A divisor of 0 selects Stopped.
func ParsePrescaler(divisor int) (Prescaler, error) {
	if divisor >= 0 {
		for i, d := range divisors {
			if uint64(divisor) == d {
				return Prescaler(i), nil
			}
		}
	}
	return Stopped, fmt.Errorf("%w: %d", ErrInvalidPrescaler, divisor)
}

// CyclesPerOverflow returns the CPU cycles between two overflows when the
// counter is reloaded with reload after each one. Zero when stopped.
func CyclesPerOverflow(p Prescaler, reload uint8) uint64 {
	return p.Divisor() * (256 - uint64(reload))
}

// TicksPer100ms returns how many overflows occur in 100 ms, rounded down.
func TicksPer100ms(clockHz uint64, p Prescaler, reload uint8) int {
	per := CyclesPerOverflow(p, reload)
	if per == 0 {
		return 0
	}
	return int(clockHz / 10 / per)
}
