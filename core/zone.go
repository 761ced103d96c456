package core

// ZoneID indexes the fixed set of reaction zones
type ZoneID uint8

const (
	ZoneFront ZoneID = iota
	ZoneBack

	// NumZones is the number of independently heated zones
	NumZones = 2
)

// HeaterCommand is the output of the two-level controller
type HeaterCommand bool

const (
	HeaterOff HeaterCommand = false
	HeaterOn  HeaterCommand = true
)

func (c HeaterCommand) String() string {
	if c {
		return "on"
	}
	return "off"
}

// ZoneStatus is a snapshot of a zone for telemetry and tests
type ZoneStatus struct {
	ID              ZoneID
	Name            string
	Phase           Phase
	ElapsedTicks    uint32
	TargetCycles    uint32
	CompletedCycles uint32
	TargetCelsius   float32
}

// Zone runs the PCR phase machine for one heater/sensor pair
type Zone struct {
	ID     ZoneID
	Name   string
	Heater *DigitalOut

	table           PhaseTable
	current         Phase
	ticks           *TickCounter
	targetCycles    uint32
	completedCycles uint32
	setpoint        float32

	debug  DebugWriter
	events *EventLog
}

// NewZone creates a stopped zone with a zeroed phase table
func NewZone(id ZoneID, name string, heater *DigitalOut, ticks *TickCounter) *Zone {
	if ticks == nil {
		ticks = &TickCounter{}
	}
	return &Zone{
		ID:      id,
		Name:    name,
		Heater:  heater,
		table:   NewPhaseTable(),
		current: PhaseStopped,
		ticks:   ticks,
	}
}

// SetDebugWriter sets where phase transitions are reported
func (z *Zone) SetDebugWriter(w DebugWriter) {
	z.debug = w
}

// SetEventLog sets where state changes are recorded
func (z *Zone) SetEventLog(l *EventLog) {
	z.events = l
}

// Phase returns the current phase
func (z *Zone) Phase() Phase {
	return z.current
}

// Running reports whether the zone is cycling
func (z *Zone) Running() bool {
	return z.current != PhaseStopped
}

// Ticks returns the zone's elapsed-seconds counter
func (z *Zone) Ticks() *TickCounter {
	return z.ticks
}

// Table returns a copy of the phase table
func (z *Zone) Table() PhaseTable {
	return z.table
}

// TargetCelsius returns the setpoint of the current phase
func (z *Zone) TargetCelsius() float32 {
	return z.table[z.current].TargetCelsius
}

// Setpoint returns the target used by the most recent evaluation. It
// stays valid on the evaluation that auto-stops the zone.
func (z *Zone) Setpoint() float32 {
	return z.setpoint
}

// ConfigurePhase overwrites the dwell and setpoint of a cycling phase.
// When p is the active phase the new dwell applies at the next timing check.
// A table whose topology has been damaged is refused.
func (z *Zone) ConfigurePhase(p Phase, dwellSeconds uint32, targetCelsius float32) error {
	if err := z.table.Validate(); err != nil {
		return err
	}
	return z.table.Configure(p, dwellSeconds, targetCelsius)
}

// Start begins cycling at Denature. Calling Start on a running zone
// restarts it. The zone is left untouched when its table fails Validate.
func (z *Zone) Start(cycles uint32) error {
	if err := z.table.Validate(); err != nil {
		z.debugf("bad phase table, start refused cycles=", cycles)
		return err
	}
	z.targetCycles = cycles
	z.completedCycles = 0
	z.ticks.Reset()
	z.current = PhaseDenature
	z.events.Record(EvtStart, z.ID, z.current, cycles)
	z.debugf("start cycles=", cycles)
	return nil
}

// Stop returns the zone to Stopped and switches its heater off
func (z *Zone) Stop() error {
	if z.current != PhaseStopped {
		z.events.Record(EvtStop, z.ID, PhaseStopped, z.completedCycles)
	}
	z.current = PhaseStopped
	if z.Heater != nil {
		return z.Heater.Set(false)
	}
	return nil
}

// Evaluate runs one control step with the elapsed tick count and the
// measured temperature. The timing rule runs first, then the two-level
// rule against the (possibly new) phase setpoint, then auto-stop.
func (z *Zone) Evaluate(ticks uint32, celsius float32) HeaterCommand {
	if z.current == PhaseStopped {
		return HeaterOff
	}

	if ticks >= z.table[z.current].DwellSeconds {
		prev := z.current
		z.current = z.table[z.current].Next
		z.ticks.Reset()
		if z.current == PhaseElongate {
			z.completedCycles++
		}
		z.events.Record(EvtTransition, z.ID, z.current, ticks)
		z.debugTransition(prev, ticks)
	}

	z.setpoint = z.table[z.current].TargetCelsius
	cmd := HeaterOff
	if celsius <= z.setpoint {
		cmd = HeaterOn
	}

	if z.completedCycles >= z.targetCycles {
		z.current = PhaseStopped
		cmd = HeaterOff
		z.events.Record(EvtAutoStop, z.ID, z.current, z.completedCycles)
		z.debugf("done cycles=", z.completedCycles)
	}

	return cmd
}

// Update evaluates using the zone's own tick counter
func (z *Zone) Update(celsius float32) HeaterCommand {
	return z.Evaluate(z.ticks.Load(), celsius)
}

// Status returns a snapshot of the zone
func (z *Zone) Status() ZoneStatus {
	return ZoneStatus{
		ID:              z.ID,
		Name:            z.Name,
		Phase:           z.current,
		ElapsedTicks:    z.ticks.Load(),
		TargetCycles:    z.targetCycles,
		CompletedCycles: z.completedCycles,
		TargetCelsius:   z.TargetCelsius(),
	}
}

func (z *Zone) debugTransition(prev Phase, ticks uint32) {
	if z.debug == nil {
		return
	}
	z.debug("zone " + z.Name + ": " + prev.String() + " -> " + z.current.String() + " after " + utoa(ticks) + "s")
}

func (z *Zone) debugf(event string, n uint32) {
	if z.debug == nil {
		return
	}
	z.debug("zone " + z.Name + ": " + event + utoa(n))
}
