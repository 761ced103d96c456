package pcr

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationRoundTrip(t *testing.T) {
	cal := Calibration{Slope: 0.7, Intercept: 5}
	require.NoError(t, cal.Validate())

	assert.InDelta(t, 71.5, cal.ToChip(95), 1e-9)
	assert.InDelta(t, 100, cal.ToBlock(75), 1e-9)
	for _, c := range []float64{4, 55, 72, 95} {
		assert.InDelta(t, c, cal.ToChip(cal.ToBlock(c)), 1e-9)
	}
}

func TestCalibrationZeroIsIdentity(t *testing.T) {
	var cal Calibration
	require.NoError(t, cal.Validate())
	assert.Equal(t, 60.0, cal.ToBlock(60))
	assert.Equal(t, 60.0, cal.ToChip(60))
	assert.Equal(t, standardProgram(), cal.ProgramToBlock(standardProgram()))
}

func TestCalibrationValidate(t *testing.T) {
	for _, cal := range []Calibration{
		{Slope: 0, Intercept: 5},
		{Slope: -1},
		{Slope: math.NaN()},
		{Slope: 1, Intercept: math.Inf(1)},
	} {
		assert.Error(t, cal.Validate(), "%+v", cal)
	}
}

func TestCalibrationProgramAndSample(t *testing.T) {
	cal := Calibration{Slope: 0.5, Intercept: 10}
	p := cal.ProgramToBlock(standardProgram())
	assert.Equal(t, 160.0, p.Denature.Celsius)
	assert.Equal(t, 80.0, p.Anneal.Celsius)
	assert.Equal(t, 124.0, p.Elongate.Celsius)
	assert.Equal(t, 32, p.Cycles)
	assert.Equal(t, 15, p.Denature.Seconds)

	s := cal.SampleToChip(Sample{Zone: "FRONT", Celsius: 60, Raw: 60})
	assert.Equal(t, 40.0, s.Celsius)
	assert.Equal(t, 60.0, s.Raw)
}

func TestClientAppliesCalibration(t *testing.T) {
	fw, c := newFakeFirmware(t, func(frame string) string {
		return "<" + strings.Split(frame, ",")[2] + ">T_FRONT,60.00\nT_FRONT_SET,160.00\n"
	})
	assert.Equal(t, Identity, c.Calibration())
	assert.Error(t, c.SetCalibration(Calibration{Slope: -2}))
	require.NoError(t, c.SetCalibration(Calibration{Slope: 0.5, Intercept: 10}))

	require.NoError(t, c.StartZone(context.Background(), ZoneFront, standardProgram()))
	assert.Equal(t, "H,1,32,15,160,20,80,60,124", <-fw.frames)

	for _, want := range []struct{ chip, raw float64 }{{40, 60}, {90, 160}} {
		select {
		case s := <-c.Samples():
			assert.Equal(t, want.chip, s.Celsius)
			assert.Equal(t, want.raw, s.Raw)
		case <-time.After(2 * time.Second):
			t.Fatal("no sample")
		}
	}
}
