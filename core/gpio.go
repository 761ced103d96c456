// Digital outputs: heater relays, the indicator LED and the magnet relay
package core

// DigitalOut flags
const (
	DF_ON         = 1 << 0 // Current pin state (1=high, 0=low)
	DF_DEFAULT_ON = 1 << 3 // Default state for shutdown
)

// DigitalOut represents a configured GPIO output pin
type DigitalOut struct {
	Name  string
	Pin   GPIOPin
	Flags uint8

	driver GPIODriver
}

// NewDigitalOut creates an output bound to a driver. It is not touched
// until Configure is called.
func NewDigitalOut(name string, pin GPIOPin, driver GPIODriver, defaultOn bool) *DigitalOut {
	d := &DigitalOut{Name: name, Pin: pin, driver: driver}
	if defaultOn {
		d.Flags |= DF_DEFAULT_ON
	}
	return d
}

// Configure sets the pin as an output at its default level
func (d *DigitalOut) Configure() error {
	if err := d.driver.ConfigureOutput(d.Pin); err != nil {
		return err
	}
	return d.Set(d.Flags&DF_DEFAULT_ON != 0)
}

// Set drives the pin to the given level
func (d *DigitalOut) Set(on bool) error {
	if err := d.driver.SetPin(d.Pin, on); err != nil {
		return err
	}
	if on {
		d.Flags |= DF_ON
	} else {
		d.Flags &^= DF_ON
	}
	return nil
}

// Toggle flips the pin. The current level is read back from the driver so
// that a toggle is a toggle even if something else drove the pin.
func (d *DigitalOut) Toggle() error {
	on, err := d.driver.GetPin(d.Pin)
	if err != nil {
		return err
	}
	return d.Set(!on)
}

// IsOn returns the level last driven
func (d *DigitalOut) IsOn() bool {
	return d.Flags&DF_ON != 0
}

// Shutdown returns the pin to its default level
func (d *DigitalOut) Shutdown() error {
	return d.Set(d.Flags&DF_DEFAULT_ON != 0)
}
