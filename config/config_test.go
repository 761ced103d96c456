package config

import (
	"testing"

	"phagebox/core"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}
	def := DefaultBoardConfig()
	if *cfg != *def {
		t.Errorf("empty config = %+v, want defaults %+v", cfg, def)
	}
	if cfg.Baud != 9600 || cfg.TickPeriodMS != 1000 {
		t.Errorf("baud=%d tick=%d", cfg.Baud, cfg.TickPeriodMS)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{
		"zones": [{"name": "LEFT", "heater_pin": "gpio14"}, {"name": "RIGHT"}],
		"led_pin": "25",
		"blink_count": 4
	}`))
	if err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}
	if cfg.Zones[0].Name != "LEFT" || cfg.Zones[0].HeaterPin != "gpio14" || cfg.Zones[0].SensorPin != "gpio11" {
		t.Errorf("zone 0 = %+v", cfg.Zones[0])
	}
	if cfg.Zones[1].Name != "RIGHT" || cfg.Zones[1].HeaterPin != "gpio7" {
		t.Errorf("zone 1 = %+v", cfg.Zones[1])
	}
	if cfg.LEDPin != "25" || cfg.BlinkCount != 4 || cfg.MagnetPin != "gpio5" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"bad pin", `{"led_pin": "pa3"}`, ErrInvalidPin},
		{"shared pin", `{"magnet_pin": "gpio6"}`, ErrDuplicatePin},
		{"same names", `{"zones": [{"name": "A"}, {"name": "A"}]}`, ErrZoneName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig([]byte(tt.json)); err != tt.want {
				t.Errorf("LoadConfig() = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig([]byte(`{`)); err == nil {
		t.Error("LoadConfig accepted invalid JSON")
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		in   string
		want core.GPIOPin
		ok   bool
	}{
		{"gpio6", 6, true},
		{"GPIO25", 25, true},
		{" 12 ", 12, true},
		{"gpio", 0, false},
		{"d6", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePin(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParsePin(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestControllerConfig(t *testing.T) {
	board := DefaultBoardConfig()
	cfg, err := board.ControllerConfig(nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("ControllerConfig() = %v", err)
	}
	if cfg.ZoneNames != [core.NumZones]string{"FRONT", "BACK"} {
		t.Errorf("names = %v", cfg.ZoneNames)
	}
	if cfg.HeaterPins != [core.NumZones]core.GPIOPin{6, 7} || cfg.LEDPin != 3 || cfg.MagnetPin != 5 {
		t.Errorf("pins = %v led=%d magnet=%d", cfg.HeaterPins, cfg.LEDPin, cfg.MagnetPin)
	}
	if cfg.BlinkCount != 10 || cfg.BlinkIntervalMS != 100 {
		t.Errorf("blink = %d x %dms", cfg.BlinkCount, cfg.BlinkIntervalMS)
	}

	probes, err := board.SensorPins()
	if err != nil || probes != [core.NumZones]core.GPIOPin{11, 12} {
		t.Errorf("SensorPins() = %v, %v", probes, err)
	}
}
