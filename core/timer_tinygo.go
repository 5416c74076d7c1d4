//go:build tinygo

package core

import "sync/atomic"

var systemTicks atomic.Uint64

// The board loop stores the hardware counter here; step timers read it.
func getSystemTicks() uint64 { return systemTicks.Load() }

func setSystemTicks(ticks uint64) { systemTicks.Store(ticks) }
