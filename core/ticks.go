package core

import (
	"sync/atomic"
	"time"
)

// TickCounter counts elapsed seconds for one zone. It is incremented from
// the tick source (interrupt or ticker goroutine) and read or reset by the
// control loop, so every access goes through sync/atomic.
type TickCounter struct {
	v uint32
}

// Load returns the current count
func (c *TickCounter) Load() uint32 {
	return atomic.LoadUint32(&c.v)
}

// Increment adds one tick
func (c *TickCounter) Increment() {
	atomic.AddUint32(&c.v, 1)
}

// Reset sets the count back to zero
func (c *TickCounter) Reset() {
	atomic.StoreUint32(&c.v, 0)
}

// TickSource produces the 1 Hz tick shared by all zones
type TickSource struct {
	counters [NumZones]TickCounter
	total    uint32
}

// Counter returns the counter of a zone
func (s *TickSource) Counter(id ZoneID) *TickCounter {
	return &s.counters[id]
}

// Tick advances every zone counter by one. Safe to call from an interrupt
// handler or another goroutine.
func (s *TickSource) Tick() {
	for i := range s.counters {
		s.counters[i].Increment()
	}
	atomic.AddUint32(&s.total, 1)
}

// Total returns the number of ticks since boot
func (s *TickSource) Total() uint32 {
	return atomic.LoadUint32(&s.total)
}

// Run calls Tick every period until stop is closed. Targets without a
// dedicated hardware alarm run this in its own goroutine.
func (s *TickSource) Run(stop <-chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
