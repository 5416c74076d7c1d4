//go:build rp2350

package main

// TIMER0 moved on the RP2350.
const timerBase = 0x400B0000
