package profile

import (
	"time"

	"phagebox/host/pcr"
)

// Point is a setpoint change at an offset from the start of a run
type Point struct {
	Offset  time.Duration
	Celsius float64
}

// Timeline is the expected setpoint over a run, in offset order
type Timeline []Point

// ProgramTimeline lists the setpoint changes a firmware program goes
// through. The run ends on entering the last elongate step.
func ProgramTimeline(p pcr.Program) Timeline {
	var (
		tl Timeline
		at time.Duration
	)
	steps := []pcr.Step{p.Denature, p.Anneal, p.Elongate}
	for c := 0; c < p.Cycles; c++ {
		for _, s := range steps {
			tl = append(tl, Point{Offset: at, Celsius: s.Celsius})
			at += time.Duration(s.Seconds) * time.Second
		}
	}
	return tl
}

// Timeline lists the setpoint changes of the expanded protocol
func (p *Protocol) Timeline() Timeline {
	var (
		tl Timeline
		at time.Duration
	)
	for _, h := range p.Holds() {
		tl = append(tl, Point{Offset: at, Celsius: h.Celsius})
		at += time.Duration(h.Seconds * float64(time.Second))
	}
	return tl
}

// SetpointAt returns the setpoint in force at offset d
func (tl Timeline) SetpointAt(d time.Duration) (float64, bool) {
	if len(tl) == 0 || d < tl[0].Offset {
		return 0, false
	}
	c := tl[0].Celsius
	for _, p := range tl {
		if p.Offset > d {
			break
		}
		c = p.Celsius
	}
	return c, true
}
