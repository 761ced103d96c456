package core

import "testing"

func TestSchedulerOrder(t *testing.T) {
	var s Scheduler
	var fired []int

	mk := func(id int, wake uint32) *Timer {
		return &Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			fired = append(fired, id)
			return SF_DONE
		}}
	}
	s.Schedule(mk(3, 30))
	s.Schedule(mk(1, 10))
	s.Schedule(mk(2, 20))
	s.Schedule(mk(4, 20))

	s.Dispatch(5)
	if len(fired) != 0 {
		t.Fatalf("fired early: %v", fired)
	}

	s.Dispatch(20)
	want := []int{1, 2, 4}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("fired = %v, want %v", fired, want)
			break
		}
	}
	if !s.Pending() {
		t.Error("timer 3 should still be pending")
	}

	s.Dispatch(30)
	if len(fired) != 4 || s.Pending() {
		t.Errorf("fired = %v, pending = %v", fired, s.Pending())
	}
}

func TestSchedulerReschedule(t *testing.T) {
	var s Scheduler
	count := 0
	timer := &Timer{WakeTime: 100, Handler: func(tm *Timer) uint8 {
		count++
		if count == 3 {
			return SF_DONE
		}
		tm.WakeTime += 100
		return SF_RESCHEDULE
	}}
	s.Schedule(timer)

	s.Dispatch(150)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	// Catch up on every missed period in one call
	s.Dispatch(1000)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if s.Pending() {
		t.Error("timer should be done")
	}
}

func TestSchedulerWraparound(t *testing.T) {
	var s Scheduler
	fired := false
	s.Schedule(&Timer{WakeTime: 5, Handler: func(*Timer) uint8 {
		fired = true
		return SF_DONE
	}})

	s.Dispatch(0xFFFFFFF0)
	if fired {
		t.Fatal("timer past the wrap fired early")
	}
	s.Dispatch(10)
	if !fired {
		t.Error("timer did not fire after wrap")
	}
}

func TestSchedulerCancel(t *testing.T) {
	var s Scheduler
	fired := false
	a := &Timer{WakeTime: 10, Handler: func(*Timer) uint8 { fired = true; return SF_DONE }}
	b := &Timer{WakeTime: 20, Handler: func(*Timer) uint8 { fired = true; return SF_DONE }}
	s.Schedule(a)
	s.Schedule(b)
	s.Cancel(b)
	s.Cancel(a)
	s.Dispatch(100)
	if fired || s.Pending() {
		t.Error("cancelled timers fired")
	}
}

func TestTimerConversions(t *testing.T) {
	if TimerFromMS(250) != 250 {
		t.Errorf("TimerFromMS(250) = %d", TimerFromMS(250))
	}
	if TimerToMS(TimerFromMS(1234)) != 1234 {
		t.Error("round trip failed")
	}
	if !timeBefore(0xFFFFFFFF, 1) {
		t.Error("timeBefore should handle wraparound")
	}
}
