package config

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"phagebox/core"
	"phagebox/protocol"
)

// ZoneConfig describes the heater relay and probe of one zone
type ZoneConfig struct {
	Name      string `json:"name"`
	HeaterPin string `json:"heater_pin"`
	SensorPin string `json:"sensor_pin"`
}

// BoardConfig describes how the instrument is wired
type BoardConfig struct {
	Zones     [core.NumZones]ZoneConfig `json:"zones"`
	LEDPin    string                    `json:"led_pin"`
	MagnetPin string                    `json:"magnet_pin"`

	Baud            int    `json:"baud"`
	BlinkCount      int    `json:"blink_count"`
	BlinkIntervalMS uint32 `json:"blink_interval_ms"`
	TickPeriodMS    uint32 `json:"tick_period_ms"`
}

var (
	// ErrInvalidPin is returned for a pin name that is not "gpioN" or "N"
	ErrInvalidPin = errors.New("invalid pin name")

	// ErrDuplicatePin is returned when two outputs share a pin
	ErrDuplicatePin = errors.New("pin assigned twice")

	// ErrZoneName is returned for an empty or repeated zone name
	ErrZoneName = errors.New("zone names must be unique and non-empty")
)

// LoadConfig parses a JSON configuration and applies defaults
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values from the default board
func applyDefaults(config *BoardConfig) {
	def := DefaultBoardConfig()

	for i := range config.Zones {
		z := &config.Zones[i]
		if z.Name == "" {
			z.Name = def.Zones[i].Name
		}
		if z.HeaterPin == "" {
			z.HeaterPin = def.Zones[i].HeaterPin
		}
		if z.SensorPin == "" {
			z.SensorPin = def.Zones[i].SensorPin
		}
	}
	if config.LEDPin == "" {
		config.LEDPin = def.LEDPin
	}
	if config.MagnetPin == "" {
		config.MagnetPin = def.MagnetPin
	}
	if config.Baud == 0 {
		config.Baud = def.Baud
	}
	if config.BlinkCount == 0 {
		config.BlinkCount = def.BlinkCount
	}
	if config.BlinkIntervalMS == 0 {
		config.BlinkIntervalMS = def.BlinkIntervalMS
	}
	if config.TickPeriodMS == 0 {
		config.TickPeriodMS = def.TickPeriodMS
	}
}

// DefaultBoardConfig returns the stock PhageBox wiring
func DefaultBoardConfig() *BoardConfig {
	return &BoardConfig{
		Zones: [core.NumZones]ZoneConfig{
			{Name: "FRONT", HeaterPin: "gpio6", SensorPin: "gpio11"},
			{Name: "BACK", HeaterPin: "gpio7", SensorPin: "gpio12"},
		},
		LEDPin:          "gpio3",
		MagnetPin:       "gpio5",
		Baud:            9600,
		BlinkCount:      core.DefaultBlinkCount,
		BlinkIntervalMS: core.DefaultBlinkIntervalMS,
		TickPeriodMS:    1000,
	}
}

// ParsePin converts "gpio6" or "6" to a pin number
func ParsePin(name string) (core.GPIOPin, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, ErrInvalidPin
	}
	return core.GPIOPin(n), nil
}

// Validate checks pin names and zone names
func (c *BoardConfig) Validate() error {
	seen := make(map[core.GPIOPin]bool)
	claim := func(name string) error {
		pin, err := ParsePin(name)
		if err != nil {
			return err
		}
		if seen[pin] {
			return ErrDuplicatePin
		}
		seen[pin] = true
		return nil
	}

	names := make(map[string]bool)
	for _, z := range c.Zones {
		if z.Name == "" || names[z.Name] {
			return ErrZoneName
		}
		names[z.Name] = true
		if err := claim(z.HeaterPin); err != nil {
			return err
		}
		if err := claim(z.SensorPin); err != nil {
			return err
		}
	}
	if err := claim(c.LEDPin); err != nil {
		return err
	}
	return claim(c.MagnetPin)
}

// SensorPins returns the probe pin of each zone
func (c *BoardConfig) SensorPins() ([core.NumZones]core.GPIOPin, error) {
	var pins [core.NumZones]core.GPIOPin
	for i, z := range c.Zones {
		pin, err := ParsePin(z.SensorPin)
		if err != nil {
			return pins, err
		}
		pins[i] = pin
	}
	return pins, nil
}

// ControllerConfig builds the controller wiring for this board
func (c *BoardConfig) ControllerConfig(gpio core.GPIODriver, sensor core.TemperatureSensor,
	ticks *core.TickSource, output protocol.OutputBuffer, debug core.DebugWriter) (core.ControllerConfig, error) {

	cfg := core.ControllerConfig{
		GPIO:            gpio,
		Sensor:          sensor,
		Ticks:           ticks,
		Output:          output,
		BlinkCount:      c.BlinkCount,
		BlinkIntervalMS: c.BlinkIntervalMS,
		Debug:           debug,
	}
	for i, z := range c.Zones {
		pin, err := ParsePin(z.HeaterPin)
		if err != nil {
			return cfg, err
		}
		cfg.ZoneNames[i] = z.Name
		cfg.HeaterPins[i] = pin
	}

	var err error
	if cfg.LEDPin, err = ParsePin(c.LEDPin); err != nil {
		return cfg, err
	}
	if cfg.MagnetPin, err = ParsePin(c.MagnetPin); err != nil {
		return cfg, err
	}
	return cfg, nil
}
