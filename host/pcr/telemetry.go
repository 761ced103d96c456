package pcr

import (
	"strconv"
	"strings"
	"time"

	"phagebox/protocol"
)

// SampleKind tells measured temperatures from setpoints
type SampleKind int

const (
	SampleMeasured SampleKind = iota
	SampleSetpoint
)

func (k SampleKind) String() string {
	if k == SampleSetpoint {
		return "setpoint"
	}
	return "measured"
}

// Sample is one telemetry value reported by the firmware. Celsius is the
// chip temperature after calibration, Raw the block value on the wire.
type Sample struct {
	Time    time.Time
	Zone    string
	Kind    SampleKind
	Celsius float64
	Raw     float64
}

// ParseTelemetry parses a "T_<ZONE>[_SET],<celsius>" line
func ParseTelemetry(line string, at time.Time) (Sample, bool) {
	if !strings.HasPrefix(line, protocol.TelemetryPrefix) {
		return Sample{}, false
	}
	tag, value, ok := strings.Cut(line[len(protocol.TelemetryPrefix):], string(protocol.FieldSeparator))
	if !ok || tag == "" {
		return Sample{}, false
	}

	kind := SampleMeasured
	if name, found := strings.CutSuffix(tag, protocol.TelemetrySetSuffix); found && name != "" {
		tag = name
		kind = SampleSetpoint
	}

	c, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return Sample{}, false
	}
	return Sample{Time: at, Zone: tag, Kind: kind, Celsius: c, Raw: c}, true
}
