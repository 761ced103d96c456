package core

import "sync/atomic"

// TimerFreq is the system clock frequency. The clock counts milliseconds,
// which keeps a uint32 from wrapping for 49 days.
const TimerFreq = 1000

var systemTicks uint32

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

// SetTime sets the current system time. Targets call this from the main
// loop with their hardware clock.
func SetTime(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return ms * TimerFreq / 1000
}

// TimerToMS converts timer ticks to milliseconds
func TimerToMS(ticks uint32) uint32 {
	return ticks * 1000 / TimerFreq
}

// timeBefore compares clock values across wraparound
func timeBefore(a, b uint32) bool {
	return int32(a-b) < 0
}
