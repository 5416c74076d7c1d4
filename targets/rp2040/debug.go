//go:build rp2040 || rp2350

package main

import (
	"machine"

	"stepgen/core"
)

// InitDebugUART routes core debug lines to UART1 at 115200 baud. USB
// carries the command link, so debug output needs its own port.
func InitDebugUART(tx, rx machine.Pin) {
	uart := machine.UART1
	err := uart.Configure(machine.UARTConfig{BaudRate: 115200, TX: tx, RX: rx})
	if err != nil {
		return
	}
	core.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})
	core.DebugPrintln("=== stepgen debug UART ===")
}
