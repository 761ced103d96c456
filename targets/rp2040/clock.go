//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"phagebox/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // Raw timer high word
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock initializes the RP2040 hardware timer.
// The timer is a free-running 64-bit microsecond counter.
func InitClock() {
	DebugPrintln("clock: 1MHz hardware timer, " + itoa(core.TimerFreq) + "Hz system clock")
}

// GetHardwareUptime reads the full 64-bit RP2040 hardware timer
func GetHardwareUptime() uint64 {
	// Must read high first, then low, then high again to detect rollover
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		// If high didn't change, we got a consistent reading
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// UpdateSystemTime updates the core clock from the hardware timer.
// Called from the main loop.
func UpdateSystemTime() {
	core.SetTime(uint32(GetHardwareUptime() / (1000000 / core.TimerFreq)))
}
