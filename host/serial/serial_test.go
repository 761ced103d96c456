package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, 100, cfg.ReadTimeout)
}

func TestOpenRejectsMissingDevice(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(&Config{Baud: 9600})
	assert.Error(t, err)
}

func TestSortPorts(t *testing.T) {
	ports := []PortInfo{{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyACM1"}, {Name: "/dev/ttyACM0"}}
	sortPorts(ports)
	assert.Equal(t, "/dev/ttyACM0", ports[0].Name)
	assert.Equal(t, "/dev/ttyUSB0", ports[2].Name)
}
