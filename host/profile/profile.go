// Package profile loads PCR run profiles for the host tool.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"phagebox/host/pcr"
)

// ErrNoZones is returned for profiles that do not run anything
var ErrNoZones = errors.New("profile has no zones")

// ZoneProfile gives a zone either an inline program or a protocol file
type ZoneProfile struct {
	Program  *pcr.Program `yaml:"program,omitempty"`
	Protocol string       `yaml:"protocol,omitempty"`
}

// Profile describes one run
//
//	port: /dev/ttyACM0
//	calibration: {slope: 0.7, intercept: 5}
//	zones:
//	  front:
//	    program: {cycles: 30, denature: {seconds: 15, celsius: 95}, ...}
//	  back:
//	    protocol: lambda.txt
type Profile struct {
	Port       string                 `yaml:"port"`
	Baud       int                    `yaml:"baud"`
	AckTimeout time.Duration          `yaml:"ack_timeout"`
	Zones      map[string]ZoneProfile `yaml:"zones"`

	// Step temperatures are chip temperatures when set
	Calibration pcr.Calibration `yaml:"calibration,omitempty"`

	// Recording
	CSV    string `yaml:"csv,omitempty"`
	Redis  string `yaml:"redis,omitempty"`
	Listen string `yaml:"listen,omitempty"`

	// Resolved by Load
	Programs map[pcr.Zone]pcr.Program `yaml:"-"`
	Skipped  map[pcr.Zone][]Hold      `yaml:"-"`
}

// Load reads a profile. Protocol paths are relative to the profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a profile and resolves its programs
func Parse(data []byte, dir string) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if p.Baud == 0 {
		p.Baud = 9600
	}
	if p.AckTimeout == 0 {
		p.AckTimeout = pcr.DefaultAckTimeout
	}
	if len(p.Zones) == 0 {
		return nil, ErrNoZones
	}
	if err := p.Calibration.Validate(); err != nil {
		return nil, err
	}

	p.Programs = make(map[pcr.Zone]pcr.Program, len(p.Zones))
	p.Skipped = make(map[pcr.Zone][]Hold)
	for name, zp := range p.Zones {
		zone, err := pcr.ParseZone(name)
		if err != nil {
			return nil, err
		}
		prog, skipped, err := zp.resolve(dir)
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", name, err)
		}
		p.Programs[zone] = prog
		if len(skipped) > 0 {
			p.Skipped[zone] = skipped
		}
	}
	return p, nil
}

func (zp ZoneProfile) resolve(dir string) (pcr.Program, []Hold, error) {
	switch {
	case zp.Program != nil && zp.Protocol != "":
		return pcr.Program{}, nil, errors.New("set program or protocol, not both")
	case zp.Program != nil:
		return *zp.Program, nil, zp.Program.Validate()
	case zp.Protocol != "":
		path := zp.Protocol
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return pcr.Program{}, nil, err
		}
		defer f.Close()
		proto, err := ParseProtocol(f)
		if err != nil {
			return pcr.Program{}, nil, fmt.Errorf("%s: %w", zp.Protocol, err)
		}
		return proto.ToProgram()
	}
	return pcr.Program{}, nil, errors.New("no program")
}

// Duration is the nominal time until every zone has finished
func (p *Profile) Duration() time.Duration {
	var d time.Duration
	for _, prog := range p.Programs {
		d = max(d, prog.Duration())
	}
	return d
}
