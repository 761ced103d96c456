//go:build rp2040

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/ds18b20"
	"tinygo.org/x/drivers/onewire"

	"phagebox/config"
	"phagebox/core"
)

// Probes run at 9-bit resolution so a conversion fits in the wait below
const (
	probeResolution = 9
	conversionWait  = 100 * time.Millisecond
)

// ProbeSensor reads one DS18B20 per zone, each on its own 1-Wire bus
type ProbeSensor struct {
	buses   [core.NumZones]onewire.Device
	probes  [core.NumZones]ds18b20.Device
	filters [core.NumZones]core.ReadingFilter
}

// NewProbeSensor sets up the 1-Wire buses named in the board config
func NewProbeSensor(board *config.BoardConfig) (*ProbeSensor, error) {
	pins, err := board.SensorPins()
	if err != nil {
		return nil, err
	}

	s := &ProbeSensor{}
	for i, pin := range pins {
		bus := onewire.New(machine.Pin(pin))
		bus.Configure(onewire.Config{})

		probe := ds18b20.New(bus)
		probe.Configure()
		// A single probe per bus is addressed with Skip ROM
		probe.ThermometerResolution(nil, probeResolution)
		s.buses[i] = bus
		s.probes[i] = probe
	}
	return s, nil
}

// ReadCelsius starts a conversion, waits for it and reads the result.
// The wait stalls the whole control loop. A bus with no presence pulse, a
// CRC error or the disconnected sentinel reads as disconnected, and the
// power-on value is refused until the probe has settled.
func (s *ProbeSensor) ReadCelsius(zone core.ZoneID) (float32, error) {
	if zone >= core.NumZones {
		return 0, core.ErrSensorDisconnected
	}
	probe := s.probes[zone]
	filter := &s.filters[zone]

	if err := s.buses[zone].Reset(); err != nil {
		filter.Lost()
		return 0, core.ErrSensorDisconnected
	}
	probe.RequestTemperature(nil)
	time.Sleep(conversionWait)

	milli, err := probe.ReadTemperature(nil)
	if err != nil {
		filter.Lost()
		return 0, core.ErrSensorDisconnected
	}
	return filter.Accept(milli)
}
