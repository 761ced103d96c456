package core

import (
	"errors"

	"phagebox/protocol"
)

// Default identification blink
const (
	DefaultBlinkCount      = 10
	DefaultBlinkIntervalMS = 100
)

// ControllerConfig wires a Controller to its board
type ControllerConfig struct {
	ZoneNames  [NumZones]string
	HeaterPins [NumZones]GPIOPin
	LEDPin     GPIOPin
	MagnetPin  GPIOPin

	GPIO   GPIODriver
	Sensor TemperatureSensor
	Ticks  *TickSource
	Output protocol.OutputBuffer

	BlinkCount      int    // LED toggles before ready; 0 uses the default, <0 skips
	BlinkIntervalMS uint32 // Interval between toggles; 0 uses the default

	Debug DebugWriter
}

// Controller is the cycle driver: it owns the zones, the outputs and the
// command transport, and runs one control iteration per Step
type Controller struct {
	Zones  [NumZones]*Zone
	LED    *DigitalOut
	Magnet *DigitalOut

	sensor    TemperatureSensor
	ticks     *TickSource
	transport *protocol.Transport
	registry  *CommandRegistry
	sched     Scheduler
	events    EventLog
	debug     DebugWriter

	blinkTimer     Timer
	blinksLeft     int
	blinkInterval  uint32
	ready          bool
	commandErrors  uint32
	telemetryLines []byte
}

// NewController builds a controller from its configuration. Outputs are
// not touched until Init.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Ticks == nil {
		cfg.Ticks = &TickSource{}
	}
	if cfg.BlinkCount == 0 {
		cfg.BlinkCount = DefaultBlinkCount
	}
	if cfg.BlinkIntervalMS == 0 {
		cfg.BlinkIntervalMS = DefaultBlinkIntervalMS
	}

	c := &Controller{
		LED:           NewDigitalOut("led", cfg.LEDPin, cfg.GPIO, false),
		Magnet:        NewDigitalOut("magnet", cfg.MagnetPin, cfg.GPIO, false),
		sensor:        cfg.Sensor,
		ticks:         cfg.Ticks,
		registry:      NewCommandRegistry(),
		debug:         cfg.Debug,
		blinksLeft:    cfg.BlinkCount,
		blinkInterval: cfg.BlinkIntervalMS,
	}
	for i := range c.Zones {
		id := ZoneID(i)
		heater := NewDigitalOut("heater_"+cfg.ZoneNames[i], cfg.HeaterPins[i], cfg.GPIO, false)
		z := NewZone(id, cfg.ZoneNames[i], heater, cfg.Ticks.Counter(id))
		z.SetDebugWriter(cfg.Debug)
		z.SetEventLog(&c.events)
		c.Zones[i] = z
	}
	c.transport = protocol.NewTransport(cfg.Output, c.handleFrame)
	c.registerCommands()
	return c
}

// Init drives every output to its default level and starts the
// identification blink. The ready frame follows the last toggle.
func (c *Controller) Init() error {
	for _, z := range c.Zones {
		if err := z.Heater.Configure(); err != nil {
			return err
		}
	}
	if err := c.LED.Configure(); err != nil {
		return err
	}
	if err := c.Magnet.Configure(); err != nil {
		return err
	}

	if c.blinksLeft <= 0 {
		c.announceReady()
		return nil
	}
	c.blinkTimer.Handler = c.blink
	c.blinkTimer.WakeTime = GetTime() + TimerFromMS(c.blinkInterval)
	c.sched.Schedule(&c.blinkTimer)
	return nil
}

func (c *Controller) blink(t *Timer) uint8 {
	if err := c.LED.Toggle(); err != nil {
		c.debugf("led toggle failed: ", err.Error())
	}
	c.blinksLeft--
	if c.blinksLeft <= 0 {
		c.announceReady()
		return SF_DONE
	}
	t.WakeTime += TimerFromMS(c.blinkInterval)
	return SF_RESCHEDULE
}

func (c *Controller) announceReady() {
	c.ready = true
	c.transport.Write([]byte(protocol.ReadyFrame + "\n"))
}

// Ready reports whether the identification blink has finished
func (c *Controller) Ready() bool {
	return c.ready
}

// Step runs one control iteration. Due timers run first. Once ready, every
// available input byte is framed and dispatched, then each running zone is
// sampled, evaluated and reported in zone order. Input arriving before
// ready stays in the buffer.
func (c *Controller) Step(input protocol.InputBuffer) {
	c.sched.Dispatch(GetTime())
	if !c.ready {
		return
	}

	if input != nil {
		c.transport.Receive(input)
	}

	for _, z := range c.Zones {
		if z.Running() {
			c.stepZone(z)
		}
	}
}

func (c *Controller) stepZone(z *Zone) {
	celsius, err := c.sensor.ReadCelsius(z.ID)
	if err != nil {
		if herr := z.Heater.Set(false); herr != nil {
			c.debugf("heater off failed: ", herr.Error())
		}
		c.events.Record(EvtSensorFault, z.ID, z.Phase(), 0)
		c.debugf("zone "+z.Name+": sensor read failed: ", err.Error())
		return
	}

	cmd := z.Update(celsius)
	if err := z.Heater.Set(bool(cmd)); err != nil {
		c.debugf("zone "+z.Name+": heater set failed: ", err.Error())
	}

	line := protocol.AppendTelemetry(c.telemetryLines[:0], z.Name, false, celsius)
	line = protocol.AppendTelemetry(line, z.Name, true, z.Setpoint())
	c.telemetryLines = line
	c.transport.Write(line)
}

// handleFrame is the transport's frame handler
func (c *Controller) handleFrame(frame []byte) {
	err := c.registry.Dispatch(frame)
	if err == nil {
		return
	}

	c.commandErrors++
	var kind uint32
	if len(frame) > 0 {
		kind = uint32(frame[0])
	}
	c.events.Record(EvtCommandError, 0, PhaseStopped, kind)

	switch {
	case errors.Is(err, ErrUnknownCommand):
		c.transport.Notice(protocol.NoticeUnknownCommand)
	case errors.Is(err, ErrMalformedFrame):
		c.transport.Notice(protocol.NoticeMalformedCommand)
	default:
		c.debugf("command failed: ", err.Error())
	}
}

// Shutdown stops both zones and returns every output to its default level
func (c *Controller) Shutdown() error {
	var first error
	for _, z := range c.Zones {
		if err := z.Stop(); err != nil && first == nil {
			first = err
		}
	}
	for _, out := range []*DigitalOut{c.LED, c.Magnet} {
		if err := out.Shutdown(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Zone returns the zone with the given index
func (c *Controller) Zone(id ZoneID) *Zone {
	if id >= NumZones {
		return nil
	}
	return c.Zones[id]
}

// Ticks returns the tick source feeding the zones
func (c *Controller) Ticks() *TickSource {
	return c.ticks
}

// Transport returns the command transport
func (c *Controller) Transport() *protocol.Transport {
	return c.transport
}

// Registry returns the command registry
func (c *Controller) Registry() *CommandRegistry {
	return c.registry
}

// Events returns recent zone events from oldest to newest
func (c *Controller) Events() []ZoneEvent {
	return c.events.Events()
}

// CommandErrors returns how many frames were rejected
func (c *Controller) CommandErrors() uint32 {
	return c.commandErrors
}

func (c *Controller) debugf(msg string, detail string) {
	if c.debug == nil {
		return
	}
	c.debug(msg + detail)
}
