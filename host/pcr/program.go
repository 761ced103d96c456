package pcr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"phagebox/protocol"
)

// Zone selects a reaction zone on the wire
type Zone int

const (
	ZoneFront Zone = 1
	ZoneBack  Zone = 2
)

// Zones lists every zone in wire order
var Zones = []Zone{ZoneFront, ZoneBack}

func (z Zone) String() string {
	switch z {
	case ZoneFront:
		return "FRONT"
	case ZoneBack:
		return "BACK"
	}
	return fmt.Sprintf("ZONE(%d)", int(z))
}

// Valid reports whether z names a zone the firmware acts on
func (z Zone) Valid() bool {
	return z == ZoneFront || z == ZoneBack
}

// ParseZone accepts "front", "back", "1" or "2"
func ParseZone(s string) (Zone, error) {
	switch s {
	case "front", "FRONT", "1":
		return ZoneFront, nil
	case "back", "BACK", "2":
		return ZoneBack, nil
	}
	return 0, fmt.Errorf("unknown zone %q (want front or back)", s)
}

// Step is one phase of a PCR cycle
type Step struct {
	Seconds int     `yaml:"seconds" json:"seconds"`
	Celsius float64 `yaml:"celsius" json:"celsius"`
}

// Program is the cycle a zone runs: Cycles repetitions of denature,
// anneal and elongate
type Program struct {
	Cycles   int  `yaml:"cycles" json:"cycles"`
	Denature Step `yaml:"denature" json:"denature"`
	Anneal   Step `yaml:"anneal" json:"anneal"`
	Elongate Step `yaml:"elongate" json:"elongate"`
}

var (
	// ErrInvalidProgram is returned for programs the firmware would reject
	ErrInvalidProgram = errors.New("invalid program")

	// ErrProgramTooLong is returned when a program does not fit in one frame
	ErrProgramTooLong = errors.New("program does not fit in one frame")
)

// Validate applies the firmware's rules: non-negative counts and dwell
// times, finite temperatures, and a frame short enough to survive the
// firmware's frame buffer
func (p Program) Validate() error {
	if p.Cycles < 0 || p.Cycles > math.MaxInt32 {
		return fmt.Errorf("%w: cycles %d", ErrInvalidProgram, p.Cycles)
	}
	for _, s := range p.steps() {
		if s.Seconds < 0 || s.Seconds > math.MaxInt32 {
			return fmt.Errorf("%w: dwell %ds", ErrInvalidProgram, s.Seconds)
		}
		if math.IsNaN(s.Celsius) || math.IsInf(s.Celsius, 0) {
			return fmt.Errorf("%w: temperature %v", ErrInvalidProgram, s.Celsius)
		}
	}
	if n := frameLen(p.Fields(ZoneFront)); n >= protocol.FrameCapacity {
		return fmt.Errorf("%w: %d bytes, max %d", ErrProgramTooLong, n, protocol.FrameCapacity-1)
	}
	return nil
}

// Fields returns the H frame fields that start this program on zone
func (p Program) Fields(zone Zone) []string {
	fields := []string{
		string(protocol.KindHeaterProgram),
		strconv.Itoa(int(zone)),
		strconv.Itoa(p.Cycles),
	}
	for _, s := range p.steps() {
		fields = append(fields, strconv.Itoa(s.Seconds), formatCelsius(s.Celsius))
	}
	return fields
}

// CycleDuration is the nominal time of one full cycle
func (p Program) CycleDuration() time.Duration {
	return time.Duration(p.Denature.Seconds+p.Anneal.Seconds+p.Elongate.Seconds) * time.Second
}

// Duration is the nominal run time. Counting stops on entering elongate,
// so the last elongate step is never held.
func (p Program) Duration() time.Duration {
	if p.Cycles == 0 {
		return 0
	}
	d := time.Duration(p.Cycles) * p.CycleDuration()
	return d - time.Duration(p.Elongate.Seconds)*time.Second
}

func (p Program) steps() [3]Step {
	return [3]Step{p.Denature, p.Anneal, p.Elongate}
}

// formatCelsius keeps one decimal at most
func formatCelsius(c float64) string {
	return strconv.FormatFloat(math.Round(c*10)/10, 'f', -1, 64)
}

func frameLen(fields []string) int {
	n := len(fields) - 1
	for _, f := range fields {
		n += len(f)
	}
	return n
}
