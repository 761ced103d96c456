package core

import "errors"

var errMockHardware = errors.New("mock hardware failure")

// mockGPIO records pin levels in memory
type mockGPIO struct {
	configured map[GPIOPin]bool
	levels     map[GPIOPin]bool
	writes     map[GPIOPin]int
	failPins   map[GPIOPin]bool
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		configured: make(map[GPIOPin]bool),
		levels:     make(map[GPIOPin]bool),
		writes:     make(map[GPIOPin]int),
		failPins:   make(map[GPIOPin]bool),
	}
}

func (m *mockGPIO) ConfigureOutput(pin GPIOPin) error {
	if m.failPins[pin] {
		return errMockHardware
	}
	m.configured[pin] = true
	return nil
}

func (m *mockGPIO) SetPin(pin GPIOPin, value bool) error {
	if m.failPins[pin] {
		return errMockHardware
	}
	m.levels[pin] = value
	m.writes[pin]++
	return nil
}

func (m *mockGPIO) GetPin(pin GPIOPin) (bool, error) {
	if m.failPins[pin] {
		return false, errMockHardware
	}
	return m.levels[pin], nil
}

// mockSensor returns fixed readings per zone
type mockSensor struct {
	celsius [NumZones]float32
	err     [NumZones]error
	reads   [NumZones]int
}

func (m *mockSensor) ReadCelsius(zone ZoneID) (float32, error) {
	m.reads[zone]++
	if m.err[zone] != nil {
		return 0, m.err[zone]
	}
	return m.celsius[zone], nil
}

// recordOutput collects everything written to it
type recordOutput struct {
	data []byte
}

func (r *recordOutput) Output(data []byte) {
	r.data = append(r.data, data...)
}

func (r *recordOutput) String() string {
	return string(r.data)
}

func (r *recordOutput) Reset() {
	r.data = r.data[:0]
}

func (r *recordOutput) Len() int {
	return len(r.data)
}
