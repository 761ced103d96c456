package core

import "errors"

// Phase is one step of the PCR cycle, or the idle state
type Phase uint8

const (
	PhaseStopped Phase = iota
	PhaseDenature
	PhaseAnneal
	PhaseElongate

	// NumPhases is the number of entries in a phase table
	NumPhases = 4
)

var phaseNames = [NumPhases]string{"STOPPED", "DENATURE", "ANNEAL", "ELONGATE"}

func (p Phase) String() string {
	if int(p) < NumPhases {
		return phaseNames[p]
	}
	return "PHASE(" + itoa(int(p)) + ")"
}

// Valid reports whether p names one of the four phases
func (p Phase) Valid() bool {
	return int(p) < NumPhases
}

var (
	// ErrPhaseNotConfigurable is returned when configuring Stopped or an
	// unknown phase
	ErrPhaseNotConfigurable = errors.New("phase not configurable")

	// ErrInvalidTopology is returned when a phase table does not describe
	// Stopped->Stopped and Denature->Anneal->Elongate->Denature
	ErrInvalidTopology = errors.New("invalid phase table topology")
)

// PhaseEntry holds the dwell time and setpoint of one phase
type PhaseEntry struct {
	Phase         Phase
	DwellSeconds  uint32
	TargetCelsius float32
	Next          Phase
}

// PhaseTable maps every Phase to its entry. Index i holds Phase(i).
type PhaseTable [NumPhases]PhaseEntry

// nextPhase is the only valid topology
var nextPhase = [NumPhases]Phase{
	PhaseStopped:  PhaseStopped,
	PhaseDenature: PhaseAnneal,
	PhaseAnneal:   PhaseElongate,
	PhaseElongate: PhaseDenature,
}

// NewPhaseTable returns a table with zero dwell times and setpoints
func NewPhaseTable() PhaseTable {
	var t PhaseTable
	for i := range t {
		t[i] = PhaseEntry{Phase: Phase(i), Next: nextPhase[i]}
	}
	return t
}

// Validate checks the table against the fixed cycle topology
func (t *PhaseTable) Validate() error {
	for i := range t {
		if t[i].Phase != Phase(i) || t[i].Next != nextPhase[i] {
			return ErrInvalidTopology
		}
	}
	return nil
}

// Configure overwrites the dwell and setpoint of a cycling phase. The
// next-phase edge is left untouched.
func (t *PhaseTable) Configure(p Phase, dwellSeconds uint32, targetCelsius float32) error {
	if p == PhaseStopped || !p.Valid() {
		return ErrPhaseNotConfigurable
	}
	t[p].DwellSeconds = dwellSeconds
	t[p].TargetCelsius = targetCelsius
	return nil
}

// Entry returns the entry for p. p must be valid.
func (t PhaseTable) Entry(p Phase) PhaseEntry {
	return t[p]
}
