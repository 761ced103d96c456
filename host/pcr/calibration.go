package pcr

import (
	"fmt"
	"math"
)

// Calibration relates the temperature inside the reaction chip to the
// temperature the firmware measures on the heater block:
//
//	chip = block*Slope + Intercept
//
// The zero value is the identity.
type Calibration struct {
	Slope     float64 `yaml:"slope" json:"slope"`
	Intercept float64 `yaml:"intercept" json:"intercept"`
}

// Identity leaves temperatures unchanged
var Identity = Calibration{Slope: 1}

func (c Calibration) normalized() Calibration {
	if c.Slope == 0 && c.Intercept == 0 {
		return Identity
	}
	return c
}

// Validate rejects calibrations that cannot be inverted
func (c Calibration) Validate() error {
	c = c.normalized()
	if c.Slope <= 0 || math.IsNaN(c.Slope) || math.IsInf(c.Slope, 0) ||
		math.IsNaN(c.Intercept) || math.IsInf(c.Intercept, 0) {
		return fmt.Errorf("invalid calibration: slope %v intercept %v", c.Slope, c.Intercept)
	}
	return nil
}

// ToChip converts a block temperature to the chip temperature
func (c Calibration) ToChip(block float64) float64 {
	c = c.normalized()
	return block*c.Slope + c.Intercept
}

// ToBlock converts a wanted chip temperature to the block setpoint
func (c Calibration) ToBlock(chip float64) float64 {
	c = c.normalized()
	return (chip - c.Intercept) / c.Slope
}

// ProgramToBlock returns p with every step target converted to a block
// setpoint
func (c Calibration) ProgramToBlock(p Program) Program {
	p.Denature.Celsius = c.ToBlock(p.Denature.Celsius)
	p.Anneal.Celsius = c.ToBlock(p.Anneal.Celsius)
	p.Elongate.Celsius = c.ToBlock(p.Elongate.Celsius)
	return p
}

// SampleToChip converts a firmware sample to chip temperature, keeping the
// block reading in Raw
func (c Calibration) SampleToChip(s Sample) Sample {
	s.Raw = s.Celsius
	s.Celsius = c.ToChip(s.Celsius)
	return s
}
