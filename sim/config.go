package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"phagebox/core"
)

// ZoneModel describes the thermal behaviour of one zone
type ZoneModel struct {
	InitialCelsius float32 `yaml:"initial_celsius"`
	HeatRate       float32 `yaml:"heat_rate"`    // °C/s gained with the heater on
	LossRate       float32 `yaml:"loss_rate"`    // 1/s, fraction of the excess over ambient lost per second
	Disconnected   bool    `yaml:"disconnected"` // probe does not answer
}

// PlantConfig contains the simulated instrument parameters.
type PlantConfig struct {
	AmbientCelsius float32     `yaml:"ambient_celsius"`
	Speed          float64     `yaml:"speed"` // Simulated seconds per wall-clock second
	Zones          []ZoneModel `yaml:"zones"`
}

// DefaultPlantConfig returns a block that settles about 150 °C above
// ambient with the heater held on
func DefaultPlantConfig() PlantConfig {
	return PlantConfig{
		AmbientCelsius: 22,
		Speed:          1,
		Zones: []ZoneModel{
			{InitialCelsius: 22, HeatRate: 3, LossRate: 0.02},
			{InitialCelsius: 22, HeatRate: 3, LossRate: 0.02},
		},
	}
}

// ParsePlantConfig decodes a YAML plant description and applies defaults
func ParsePlantConfig(data []byte) (PlantConfig, error) {
	var cfg PlantConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse plant config: %w", err)
	}
	if len(cfg.Zones) > core.NumZones {
		return cfg, fmt.Errorf("plant config has %d zones, the instrument has %d", len(cfg.Zones), core.NumZones)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// LoadPlantConfig reads a YAML plant description from a file
func LoadPlantConfig(path string) (PlantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PlantConfig{}, fmt.Errorf("failed to read plant config: %w", err)
	}
	return ParsePlantConfig(data)
}

func applyDefaults(cfg *PlantConfig) {
	def := DefaultPlantConfig()
	if cfg.AmbientCelsius == 0 {
		cfg.AmbientCelsius = def.AmbientCelsius
	}
	if cfg.Speed <= 0 {
		cfg.Speed = def.Speed
	}
	for len(cfg.Zones) < core.NumZones {
		cfg.Zones = append(cfg.Zones, ZoneModel{})
	}
	for i := range cfg.Zones {
		z := &cfg.Zones[i]
		if z.InitialCelsius == 0 {
			z.InitialCelsius = cfg.AmbientCelsius
		}
		if z.HeatRate == 0 {
			z.HeatRate = def.Zones[i].HeatRate
		}
		if z.LossRate == 0 {
			z.LossRate = def.Zones[i].LossRate
		}
	}
}
