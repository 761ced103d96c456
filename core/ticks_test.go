package core

import (
	"sync"
	"testing"
	"time"
)

func TestTickSourceTick(t *testing.T) {
	var src TickSource
	src.Tick()
	src.Tick()

	for id := ZoneID(0); id < NumZones; id++ {
		if got := src.Counter(id).Load(); got != 2 {
			t.Errorf("zone %d ticks = %d, want 2", id, got)
		}
	}
	if src.Total() != 2 {
		t.Errorf("Total() = %d, want 2", src.Total())
	}

	src.Counter(ZoneFront).Reset()
	if src.Counter(ZoneFront).Load() != 0 {
		t.Error("Reset did not clear the front counter")
	}
	if src.Counter(ZoneBack).Load() != 2 {
		t.Error("Reset of one zone touched the other")
	}
}

func TestTickCounterConcurrent(t *testing.T) {
	var c TickCounter
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Increment()
				_ = c.Load()
			}
		}()
	}
	wg.Wait()
	if c.Load() != 8000 {
		t.Errorf("Load() = %d, want 8000", c.Load())
	}
}

func TestTickSourceRun(t *testing.T) {
	var src TickSource
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		src.Run(stop, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for src.Total() < 3 {
		select {
		case <-deadline:
			t.Fatal("tick source did not tick")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(stop)
	<-done
}
