package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlantConfigDefaults(t *testing.T) {
	cfg, err := ParsePlantConfig([]byte(`speed: 30`))
	require.NoError(t, err)

	assert.Equal(t, float32(22), cfg.AmbientCelsius)
	assert.Equal(t, 30.0, cfg.Speed)
	require.Len(t, cfg.Zones, 2)
	for _, z := range cfg.Zones {
		assert.Equal(t, float32(22), z.InitialCelsius)
		assert.Equal(t, float32(3), z.HeatRate)
		assert.Equal(t, float32(0.02), z.LossRate)
	}
}

func TestParsePlantConfigZones(t *testing.T) {
	cfg, err := ParsePlantConfig([]byte(`
ambient_celsius: 25
zones:
  - heat_rate: 5
    loss_rate: 0.05
  - initial_celsius: 60
    disconnected: true
`))
	require.NoError(t, err)

	assert.Equal(t, float32(25), cfg.Zones[0].InitialCelsius)
	assert.Equal(t, float32(5), cfg.Zones[0].HeatRate)
	assert.Equal(t, float32(60), cfg.Zones[1].InitialCelsius)
	assert.True(t, cfg.Zones[1].Disconnected)
	assert.Equal(t, 1.0, cfg.Speed)
}

func TestParsePlantConfigErrors(t *testing.T) {
	_, err := ParsePlantConfig([]byte("zones: [{}, {}, {}]"))
	assert.Error(t, err)

	_, err = ParsePlantConfig([]byte("speed: [fast"))
	assert.Error(t, err)
}

func TestLoadPlantConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.yaml")
	require.NoError(t, os.WriteFile(path, []byte("speed: 10\n"), 0o644))

	cfg, err := LoadPlantConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.Speed)

	_, err = LoadPlantConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
