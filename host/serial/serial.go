// Package serial opens the link to a ramp firmware board.
package serial

import (
	"errors"
	"io"
	"time"
)

var ErrNilConfig = errors.New("serial: nil config")

// Port is a byte stream to the board. Tests substitute a pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush drops any buffered data, so a new session starts clean.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud is ignored by USB CDC boards.
	Baud int

	// ReadTimeout of zero blocks until data arrives.
	ReadTimeout time.Duration
}

// DefaultConfig returns the settings the firmware expects.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100 * time.Millisecond,
	}
}
