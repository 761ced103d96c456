package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"phagebox/host/pcr"
)

var (
	// ErrSyntax is returned for malformed thermal protocol files
	ErrSyntax = errors.New("protocol syntax error")

	// ErrNotCyclic is returned when a protocol cannot be expressed as one
	// firmware program
	ErrNotCyclic = errors.New("protocol is not a single three-step cycle")
)

// Hold keeps a temperature for a number of seconds
type Hold struct {
	Celsius float64
	Seconds float64
}

// Segment is a run of holds, repeated Loops times when Cycle is set
type Segment struct {
	Cycle bool
	Loops int
	Holds []Hold
}

// Protocol is a line-based thermal protocol:
//
//	# comment
//	94, 300
//	--CYCLE, 30, loops
//	94, 30
//	57, 30
//	72, 60
//	--ENDCYCLE
//	4, 500
type Protocol struct {
	Segments []Segment
}

// ParseProtocol reads the line-based format
func ParseProtocol(r io.Reader) (*Protocol, error) {
	p := &Protocol{}
	var cycle *Segment

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if len(line) <= 1 || line[0] == '#' {
			continue
		}

		switch {
		case strings.HasPrefix(line, "--ENDCYCLE"):
			if cycle == nil {
				return nil, fmt.Errorf("%w: line %d: ENDCYCLE without CYCLE", ErrSyntax, n)
			}
			p.Segments = append(p.Segments, *cycle)
			cycle = nil

		case strings.HasPrefix(line, "--CYCLE"):
			if cycle != nil {
				return nil, fmt.Errorf("%w: line %d: nested CYCLE", ErrSyntax, n)
			}
			loops, err := parseCycleHeader(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, n, err)
			}
			cycle = &Segment{Cycle: true, Loops: loops}

		case strings.HasPrefix(line, "--"):
			return nil, fmt.Errorf("%w: line %d: unknown directive %q", ErrSyntax, n, line)

		default:
			h, err := parseHold(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, n, err)
			}
			if cycle != nil {
				cycle.Holds = append(cycle.Holds, h)
				continue
			}
			p.addHold(h)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cycle != nil {
		return nil, fmt.Errorf("%w: CYCLE not closed", ErrSyntax)
	}
	return p, nil
}

// addHold appends to the trailing plain segment, starting one if needed
func (p *Protocol) addHold(h Hold) {
	if n := len(p.Segments); n > 0 && !p.Segments[n-1].Cycle {
		p.Segments[n-1].Holds = append(p.Segments[n-1].Holds, h)
		return
	}
	p.Segments = append(p.Segments, Segment{Loops: 1, Holds: []Hold{h}})
}

func parseCycleHeader(line string) (int, error) {
	parts := splitFields(line)
	if len(parts) != 3 || parts[2] != "loops" {
		return 0, fmt.Errorf("want \"--CYCLE, N, loops\", got %q", line)
	}
	loops, err := strconv.Atoi(parts[1])
	if err != nil || loops < 0 {
		return 0, fmt.Errorf("bad loop count %q", parts[1])
	}
	return loops, nil
}

func parseHold(line string) (Hold, error) {
	parts := splitFields(line)
	if len(parts) < 2 {
		return Hold{}, fmt.Errorf("want \"temp, time\", got %q", line)
	}
	c, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Hold{}, fmt.Errorf("bad temperature %q", parts[0])
	}
	s, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || s < 0 {
		return Hold{}, fmt.Errorf("bad time %q", parts[1])
	}
	return Hold{Celsius: c, Seconds: s}, nil
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Holds expands cycles into the full hold sequence
func (p *Protocol) Holds() []Hold {
	var out []Hold
	for _, s := range p.Segments {
		for i := 0; i < s.Loops; i++ {
			out = append(out, s.Holds...)
		}
	}
	return out
}

// ToProgram converts the protocol's single three-step cycle into a
// firmware program. Holds outside the cycle have no firmware equivalent
// and are returned separately so the caller can report them.
func (p *Protocol) ToProgram() (pcr.Program, []Hold, error) {
	var (
		cycle   *Segment
		outside []Hold
	)
	for i := range p.Segments {
		s := &p.Segments[i]
		if !s.Cycle {
			outside = append(outside, s.Holds...)
			continue
		}
		if cycle != nil {
			return pcr.Program{}, nil, fmt.Errorf("%w: more than one cycle", ErrNotCyclic)
		}
		cycle = s
	}
	if cycle == nil {
		return pcr.Program{}, nil, fmt.Errorf("%w: no cycle", ErrNotCyclic)
	}
	if len(cycle.Holds) != 3 {
		return pcr.Program{}, nil, fmt.Errorf("%w: cycle has %d steps", ErrNotCyclic, len(cycle.Holds))
	}

	step := func(h Hold) pcr.Step {
		return pcr.Step{Seconds: int(h.Seconds), Celsius: h.Celsius}
	}
	prog := pcr.Program{
		Cycles:   cycle.Loops,
		Denature: step(cycle.Holds[0]),
		Anneal:   step(cycle.Holds[1]),
		Elongate: step(cycle.Holds[2]),
	}
	if err := prog.Validate(); err != nil {
		return pcr.Program{}, nil, err
	}
	return prog, outside, nil
}
