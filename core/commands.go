package core

import "phagebox/protocol"

// registerCommands installs the firmware's message kinds
func (c *Controller) registerCommands() {
	c.registry.Register(protocol.KindHeaterProgram, "heater_program",
		"zone=%u cycles=%u den_s=%u den_c=%f ann_s=%u ann_c=%f ext_s=%u ext_c=%f",
		protocol.HeaterProgramFields, c.handleHeaterProgram)
	c.registry.Register(protocol.KindAuxToggle, "aux_toggle",
		"magnet=%c led=%c",
		protocol.AuxToggleFields, c.handleAuxToggle)
}

// heaterProgram is a fully decoded H frame
type heaterProgram struct {
	selector int32
	cycles   uint32
	dwell    [3]uint32
	target   [3]float32
}

var programPhases = [3]Phase{PhaseDenature, PhaseAnneal, PhaseElongate}

func decodeHeaterProgram(fields *[][]byte) (heaterProgram, error) {
	var p heaterProgram

	sel, err := protocol.DecodeInt(fields)
	if err != nil {
		return p, err
	}
	p.selector = sel

	cycles, err := protocol.DecodeInt(fields)
	if err != nil {
		return p, err
	}
	if cycles < 0 {
		return p, ErrMalformedFrame
	}
	p.cycles = uint32(cycles)

	for i := range programPhases {
		dwell, err := protocol.DecodeInt(fields)
		if err != nil {
			return p, err
		}
		if dwell < 0 {
			return p, ErrMalformedFrame
		}
		target, err := protocol.DecodeFloat(fields)
		if err != nil {
			return p, err
		}
		p.dwell[i] = uint32(dwell)
		p.target[i] = target
	}
	return p, nil
}

// handleHeaterProgram configures the three phases of a zone and starts it.
// An out-of-range zone selector is acknowledged without effect.
func (c *Controller) handleHeaterProgram(fields *[][]byte) error {
	p, err := decodeHeaterProgram(fields)
	if err != nil {
		return err
	}

	if z := c.zoneForSelector(p.selector); z != nil {
		for i, phase := range programPhases {
			if err := z.ConfigurePhase(phase, p.dwell[i], p.target[i]); err != nil {
				c.debugf("configure refused: ", err.Error())
				return ErrMalformedFrame
			}
		}
		if err := z.Start(p.cycles); err != nil {
			return ErrMalformedFrame
		}
	} else {
		c.debugf("ignoring zone selector ", itoa(int(p.selector)))
	}

	c.transport.Reply(utoa(p.cycles))
	return nil
}

// handleAuxToggle flips the LED and/or magnet outputs
func (c *Controller) handleAuxToggle(fields *[][]byte) error {
	magnet, err := protocol.DecodeInt(fields)
	if err != nil {
		return err
	}
	led, err := protocol.DecodeInt(fields)
	if err != nil {
		return err
	}

	if led != 0 && c.LED != nil {
		if err := c.LED.Toggle(); err != nil {
			c.debugf("led toggle failed: ", err.Error())
		}
	}
	if magnet != 0 && c.Magnet != nil {
		if err := c.Magnet.Toggle(); err != nil {
			c.debugf("magnet toggle failed: ", err.Error())
		}
	}

	c.transport.Reply(itoa(int(led)))
	return nil
}

// zoneForSelector maps the wire selector (1, 2) to a zone
func (c *Controller) zoneForSelector(sel int32) *Zone {
	if sel < 1 || sel > NumZones {
		return nil
	}
	return c.Zones[sel-1]
}
