package core

import "errors"

// ErrSensorDisconnected is returned when a probe does not answer or reports
// its disconnected sentinel
var ErrSensorDisconnected = errors.New("temperature sensor disconnected")

// ErrSensorNotReady is returned while a probe still holds its power-on value
var ErrSensorNotReady = errors.New("temperature sensor not ready")

// TemperatureSensor reads the probe of a zone. A read may block for the
// probe's conversion time; that stall is shared by every zone.
type TemperatureSensor interface {
	ReadCelsius(zone ZoneID) (float32, error)
}

// DS18B20 readings in milli-degrees that do not come from a conversion
const (
	PowerOnMilli      = 85000
	DisconnectedMilli = -127000
)

// ReadingFilter screens raw DS18B20 readings for one probe. 85 °C is the
// scratchpad's power-on value, so it is refused until the probe has
// reported anything else; after that it is a real temperature.
type ReadingFilter struct {
	settled bool
}

// Accept converts a milli-degree reading or rejects it
func (f *ReadingFilter) Accept(milli int32) (float32, error) {
	switch {
	case milli <= DisconnectedMilli:
		f.settled = false
		return 0, ErrSensorDisconnected
	case milli == PowerOnMilli && !f.settled:
		return 0, ErrSensorNotReady
	}
	f.settled = true
	return float32(milli) / 1000, nil
}

// Lost marks the probe as gone; its next power-on value is refused again
func (f *ReadingFilter) Lost() {
	f.settled = false
}
