package sim

import (
	"sync"
	"time"

	"github.com/chewxy/math32"

	"phagebox/core"
)

// Plant simulates the heater relays, the aux outputs and the probes of the
// instrument. Each zone follows dT/dt = heat*on - loss*(T - ambient).
type Plant struct {
	mu sync.Mutex

	cfg        PlantConfig
	heaterPins [core.NumZones]core.GPIOPin
	configured map[core.GPIOPin]bool
	levels     map[core.GPIOPin]bool

	celsius      [core.NumZones]float32
	disconnected [core.NumZones]bool
	onTime       [core.NumZones]time.Duration
	elapsed      time.Duration
	reads        uint64
}

// Ensure Plant can stand in for the board hardware.
var (
	_ core.GPIODriver        = (*Plant)(nil)
	_ core.TemperatureSensor = (*Plant)(nil)
)

// NewPlant creates a plant whose zone heaters are driven by heaterPins
func NewPlant(cfg PlantConfig, heaterPins [core.NumZones]core.GPIOPin) *Plant {
	applyDefaults(&cfg)
	p := &Plant{
		cfg:        cfg,
		heaterPins: heaterPins,
		configured: make(map[core.GPIOPin]bool),
		levels:     make(map[core.GPIOPin]bool),
	}
	for i := range p.celsius {
		p.celsius[i] = cfg.Zones[i].InitialCelsius
		p.disconnected[i] = cfg.Zones[i].Disconnected
	}
	return p
}

// ConfigureOutput configures a pin as a digital output
func (p *Plant) ConfigureOutput(pin core.GPIOPin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configured[pin] = true
	return nil
}

// SetPin sets the pin level
func (p *Plant) SetPin(pin core.GPIOPin, value bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels[pin] = value
	return nil
}

// GetPin reads the pin level
func (p *Plant) GetPin(pin core.GPIOPin) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[pin], nil
}

// ReadCelsius returns the simulated probe reading
func (p *Plant) ReadCelsius(zone core.ZoneID) (float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if zone >= core.NumZones || p.disconnected[zone] {
		return 0, core.ErrSensorDisconnected
	}
	p.reads++
	return p.celsius[zone], nil
}

// Advance moves the thermal model forward by dt of simulated time
func (p *Plant) Advance(dt time.Duration) {
	if dt <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	sec := float32(dt.Seconds())
	ambient := p.cfg.AmbientCelsius
	for i := range p.celsius {
		m := p.cfg.Zones[i]

		var drive float32
		if p.levels[p.heaterPins[i]] {
			drive = m.HeatRate
			p.onTime[i] += dt
		}

		if m.LossRate <= 0 {
			p.celsius[i] += drive * sec
			continue
		}
		// Exact step of the first-order model toward its equilibrium
		eq := ambient + drive/m.LossRate
		p.celsius[i] = eq + (p.celsius[i]-eq)*math32.Exp(-m.LossRate*sec)
	}
	p.elapsed += dt
}

// Celsius returns the true block temperature, ignoring probe faults
func (p *Plant) Celsius(zone core.ZoneID) float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.celsius[zone]
}

// SetCelsius forces a block temperature
func (p *Plant) SetCelsius(zone core.ZoneID, c float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.celsius[zone] = c
}

// SetDisconnected simulates unplugging or reconnecting a probe
func (p *Plant) SetDisconnected(zone core.ZoneID, disconnected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected[zone] = disconnected
}

// HeaterOn reports the relay state of a zone
func (p *Plant) HeaterOn(zone core.ZoneID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[p.heaterPins[zone]]
}

// Level reports the level of any pin
func (p *Plant) Level(pin core.GPIOPin) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[pin]
}

// DutyCycle returns the fraction of simulated time a zone's heater was on
func (p *Plant) DutyCycle(zone core.ZoneID) float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.elapsed == 0 {
		return 0
	}
	return float32(p.onTime[zone].Seconds() / p.elapsed.Seconds())
}

// Elapsed returns the simulated time advanced so far
func (p *Plant) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed
}
