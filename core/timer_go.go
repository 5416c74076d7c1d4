//go:build !tinygo

package core

var systemTicks uint64

func getSystemTicks() uint64 { return systemTicks }

func setSystemTicks(ticks uint64) { systemTicks = ticks }
