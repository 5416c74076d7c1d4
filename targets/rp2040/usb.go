//go:build rp2040 || rp2350

package main

import "machine"

// InitUSB configures machine.Serial, which is USB CDC on these boards.
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// USBRead copies whatever has arrived into buf without blocking.
func USBRead(buf []byte) int {
	n := 0
	for n < len(buf) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		buf[n] = b
		n++
	}
	return n
}

// USBWriteBytes writes data, returning how much was accepted.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
