package core

import (
	"strings"
	"testing"

	"phagebox/protocol"
)

const (
	testLEDPin    GPIOPin = 3
	testMagnetPin GPIOPin = 5
	testFrontPin  GPIOPin = 6
	testBackPin   GPIOPin = 7
)

type controllerFixture struct {
	c      *Controller
	gpio   *mockGPIO
	sensor *mockSensor
	out    *recordOutput
	debug  []string
}

func newControllerFixture(t *testing.T, blinks int) *controllerFixture {
	t.Helper()
	SetTime(0)
	f := &controllerFixture{
		gpio:   newMockGPIO(),
		sensor: &mockSensor{celsius: [NumZones]float32{20, 20}},
		out:    &recordOutput{},
	}
	f.c = NewController(ControllerConfig{
		ZoneNames:       [NumZones]string{"FRONT", "BACK"},
		HeaterPins:      [NumZones]GPIOPin{testFrontPin, testBackPin},
		LEDPin:          testLEDPin,
		MagnetPin:       testMagnetPin,
		GPIO:            f.gpio,
		Sensor:          f.sensor,
		Output:          f.out,
		BlinkCount:      blinks,
		BlinkIntervalMS: 100,
		Debug:           func(s string) { f.debug = append(f.debug, s) },
	})
	if err := f.c.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	return f
}

// ready returns a fixture past the identification blink with empty output
func newReadyController(t *testing.T) *controllerFixture {
	t.Helper()
	f := newControllerFixture(t, -1)
	if !f.c.Ready() {
		t.Fatal("controller should be ready without a blink")
	}
	f.out.Reset()
	return f
}

// send steps the controller with the given input, one byte at a time
func (f *controllerFixture) send(s string) {
	for i := 0; i < len(s); i++ {
		f.c.Step(protocol.NewSliceInputBuffer([]byte{s[i]}))
	}
}

func TestControllerInitBlinkThenReady(t *testing.T) {
	f := newControllerFixture(t, DefaultBlinkCount)
	for _, pin := range []GPIOPin{testLEDPin, testMagnetPin, testFrontPin, testBackPin} {
		if !f.gpio.configured[pin] || f.gpio.levels[pin] {
			t.Errorf("pin %d not configured low", pin)
		}
	}

	input := protocol.NewSliceInputBuffer([]byte("<B,0,1>"))
	for ms := uint32(0); ms < 1000; ms += 50 {
		SetTime(ms)
		f.c.Step(input)
		if f.c.Ready() {
			t.Fatalf("ready at %d ms, before the blink finished", ms)
		}
	}
	if input.Available() == 0 {
		t.Error("input consumed before ready")
	}

	SetTime(1000)
	f.c.Step(input)
	if !f.c.Ready() {
		t.Fatal("not ready after the blink")
	}
	// LED toggled an even number of times, then the queued command toggled it once more
	if want := "<ready>\n<1>"; f.out.String() != want {
		t.Errorf("output = %q, want %q", f.out.String(), want)
	}
	if !f.gpio.levels[testLEDPin] {
		t.Error("LED should be on after blink plus one toggle")
	}
	if f.gpio.writes[testLEDPin] != 1+DefaultBlinkCount+1 {
		t.Errorf("LED writes = %d", f.gpio.writes[testLEDPin])
	}
}

func TestControllerHeaterProgramRoundTrip(t *testing.T) {
	f := newReadyController(t)
	f.send("<H,1,2,1,95,1,60,1,72>")

	z := f.c.Zone(ZoneFront)
	table := z.Table()
	want := [][2]float32{{1, 95}, {1, 60}, {1, 72}}
	for i, p := range []Phase{PhaseDenature, PhaseAnneal, PhaseElongate} {
		e := table.Entry(p)
		if float32(e.DwellSeconds) != want[i][0] || e.TargetCelsius != want[i][1] {
			t.Errorf("%v entry = %+v, want %v", p, e, want[i])
		}
	}
	st := z.Status()
	if st.Phase != PhaseDenature || st.TargetCycles != 2 {
		t.Errorf("status = %+v", st)
	}
	if f.c.Zone(ZoneBack).Running() {
		t.Error("back zone should be untouched")
	}
	if !f.gpio.levels[testFrontPin] {
		t.Error("front heater should be on below setpoint")
	}

	wantOut := "<2>T_FRONT,20.00\nT_FRONT_SET,95.00\n"
	if f.out.String() != wantOut {
		t.Errorf("output = %q, want %q", f.out.String(), wantOut)
	}
}

func TestControllerSecondZoneAndDecimalFields(t *testing.T) {
	f := newReadyController(t)
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,2,15.0,30.0,95.0,30.0,55.0,60.0,72.0>")))

	z := f.c.Zone(ZoneBack)
	if z.Status().TargetCycles != 15 || z.Table().Entry(PhaseElongate).DwellSeconds != 60 {
		t.Errorf("status = %+v table = %+v", z.Status(), z.Table())
	}
	if !strings.HasPrefix(f.out.String(), "<15>T_BACK,20.00\nT_BACK_SET,95.00\n") {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestControllerInvalidSelector(t *testing.T) {
	f := newReadyController(t)
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,3,2,1,95,1,60,1,72>")))

	if f.out.String() != "<2>" {
		t.Errorf("output = %q, want ack only", f.out.String())
	}
	for id := ZoneID(0); id < NumZones; id++ {
		z := f.c.Zone(id)
		if z.Running() || z.Table() != NewPhaseTable() {
			t.Errorf("zone %d mutated by invalid selector", id)
		}
	}
}

func TestControllerMalformedFrames(t *testing.T) {
	frames := []string{
		"<H,1,2,1,95>",
		"<H,1,two,1,95,1,60,1,72>",
		"<H,1,2,1,95,1,60,1,hot>",
		"<H,1,-1,1,95,1,60,1,72>",
		"<H,1,2,-5,95,1,60,1,72>",
		"<B,1>",
	}
	for _, frame := range frames {
		t.Run(frame, func(t *testing.T) {
			f := newReadyController(t)
			f.c.Step(protocol.NewSliceInputBuffer([]byte(frame)))

			if f.out.String() != protocol.NoticeMalformedCommand+"\n" {
				t.Errorf("output = %q", f.out.String())
			}
			z := f.c.Zone(ZoneFront)
			if z.Running() || z.Table() != NewPhaseTable() {
				t.Error("malformed frame mutated the zone")
			}
			if f.gpio.levels[testLEDPin] || f.gpio.levels[testMagnetPin] {
				t.Error("malformed frame toggled an output")
			}
			if f.c.CommandErrors() != 1 {
				t.Errorf("CommandErrors() = %d", f.c.CommandErrors())
			}
		})
	}
}

func TestControllerOverlongFrameKeepsPrefix(t *testing.T) {
	f := newReadyController(t)
	// 41 bytes between the markers; the last two are lost
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,2,1000,95.125,1000,60.125,1000,72.125>")))

	if !strings.HasPrefix(f.out.String(), "<2>") {
		t.Errorf("output = %q, want ack <2>", f.out.String())
	}
	if f.c.Transport().Truncations() == 0 {
		t.Error("overflow not counted")
	}
	z := f.c.Zone(ZoneFront)
	if !z.Running() {
		t.Fatal("zone should run from the truncated frame")
	}
	e := z.Table().Entry(PhaseElongate)
	if e.DwellSeconds != 1000 || e.TargetCelsius != float32(72.1) {
		t.Errorf("elongate = %+v, want 1000 s at 72.1", e)
	}
	if d := z.Table().Entry(PhaseDenature); d.TargetCelsius != float32(95.125) {
		t.Errorf("denature = %+v", d)
	}
}

func TestControllerOverlongFrameLosesField(t *testing.T) {
	f := newReadyController(t)
	// Truncation ends the frame inside the elongate dwell, so the target is missing
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,2,1000,95.125,1000,60.125,100000000,72>")))

	if f.out.String() != protocol.NoticeMalformedCommand+"\n" {
		t.Errorf("output = %q, want malformed notice", f.out.String())
	}
	z := f.c.Zone(ZoneFront)
	if z.Running() || z.Table() != NewPhaseTable() {
		t.Error("truncated frame mutated the zone")
	}
}

func TestControllerRefusesDamagedTable(t *testing.T) {
	f := newReadyController(t)
	z := f.c.Zone(ZoneFront)
	z.table[PhaseAnneal].Next = PhaseStopped

	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,2,1,95,1,60,1,72>")))

	if f.out.String() != protocol.NoticeMalformedCommand+"\n" {
		t.Errorf("output = %q, want malformed notice", f.out.String())
	}
	if z.Running() {
		t.Error("zone started with a damaged table")
	}
	if e := z.Table().Entry(PhaseDenature); e.TargetCelsius != 0 {
		t.Errorf("denature configured on a damaged table: %+v", e)
	}
}

func TestControllerUnknownCommand(t *testing.T) {
	f := newReadyController(t)
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<Z,1,2><>")))

	want := "unknown command\nunknown command\n"
	if f.out.String() != want {
		t.Errorf("output = %q, want %q", f.out.String(), want)
	}
	evts := f.c.Events()
	if len(evts) != 2 || evts[0].EventType != EvtCommandError || evts[0].Value != 'Z' {
		t.Errorf("events = %+v", evts)
	}
}

func TestControllerAuxToggle(t *testing.T) {
	f := newReadyController(t)
	f.gpio.levels[testMagnetPin] = true

	f.c.Step(protocol.NewSliceInputBuffer([]byte("<B,0,1>")))
	if !f.gpio.levels[testLEDPin] {
		t.Error("LED should toggle on")
	}
	if !f.gpio.levels[testMagnetPin] {
		t.Error("magnet should be unchanged")
	}
	if f.out.String() != "<1>" {
		t.Errorf("output = %q, want <1>", f.out.String())
	}

	f.out.Reset()
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<B,1,0>")))
	if !f.gpio.levels[testLEDPin] || f.gpio.levels[testMagnetPin] {
		t.Error("B,1,0 should toggle only the magnet")
	}
	if f.out.String() != "<0>" {
		t.Errorf("output = %q, want <0>", f.out.String())
	}

	f.c.Step(protocol.NewSliceInputBuffer([]byte("<B,1,1>")))
	if f.gpio.levels[testLEDPin] || !f.gpio.levels[testMagnetPin] {
		t.Error("B,1,1 should toggle both outputs")
	}
}

func TestControllerDrainsInputBeforeEvaluating(t *testing.T) {
	f := newReadyController(t)
	f.c.Ticks().Tick()
	f.c.Ticks().Tick()

	// Start resets the tick counter before the zone is evaluated, so the
	// stale ticks never reach the timing rule
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,2,1,95,1,60,1,72>")))
	if got := f.c.Zone(ZoneFront).Phase(); got != PhaseDenature {
		t.Errorf("phase = %v, want DENATURE", got)
	}
}

func TestControllerRunsToCompletion(t *testing.T) {
	f := newReadyController(t)
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,2,1,95,1,60,1,72>")))

	for i := 0; i < 10 && f.c.Zone(ZoneFront).Running(); i++ {
		f.c.Ticks().Tick()
		f.c.Step(nil)
	}
	z := f.c.Zone(ZoneFront)
	if z.Running() || z.Status().CompletedCycles != 2 {
		t.Errorf("status = %+v", z.Status())
	}
	if f.gpio.levels[testFrontPin] {
		t.Error("heater should be off after auto-stop")
	}

	// Stopped zones are not sampled
	reads := f.sensor.reads[ZoneFront]
	f.out.Reset()
	f.c.Step(nil)
	if f.sensor.reads[ZoneFront] != reads || f.out.Len() != 0 {
		t.Error("stopped zone was sampled or reported")
	}
}

func TestControllerSensorFault(t *testing.T) {
	f := newReadyController(t)
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,2,1,95,1,60,1,72>")))
	if !f.gpio.levels[testFrontPin] {
		t.Fatal("heater should be on")
	}

	f.sensor.err[ZoneFront] = ErrSensorDisconnected
	f.out.Reset()
	f.c.Ticks().Tick()
	f.c.Step(nil)

	if f.gpio.levels[testFrontPin] {
		t.Error("heater should be off after a failed read")
	}
	if f.out.Len() != 0 {
		t.Errorf("telemetry emitted on fault: %q", f.out.String())
	}
	z := f.c.Zone(ZoneFront)
	if z.Phase() != PhaseDenature {
		t.Errorf("phase = %v, fault should not advance the zone", z.Phase())
	}
	evts := f.c.Events()
	if evts[len(evts)-1].EventType != EvtSensorFault {
		t.Errorf("last event = %+v", evts[len(evts)-1])
	}
	if !strings.Contains(strings.Join(f.debug, "\n"), "sensor read failed") {
		t.Error("fault not reported through the debug writer")
	}

	f.sensor.err[ZoneFront] = nil
	f.c.Step(nil)
	if z.Phase() != PhaseAnneal {
		t.Errorf("phase = %v, want ANNEAL once the probe recovers", z.Phase())
	}
}

func TestControllerStopViaZeroCycles(t *testing.T) {
	f := newReadyController(t)
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,5,10,95,10,60,10,72>")))
	f.out.Reset()

	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,0,10,95,10,60,10,72>")))
	if f.c.Zone(ZoneFront).Running() || f.gpio.levels[testFrontPin] {
		t.Error("zero cycles should stop the zone with the heater off")
	}
	if !strings.HasPrefix(f.out.String(), "<0>") {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestControllerShutdown(t *testing.T) {
	f := newReadyController(t)
	f.c.Step(protocol.NewSliceInputBuffer([]byte("<H,1,2,1,95,1,60,1,72><H,2,2,1,95,1,60,1,72><B,1,1>")))

	if err := f.c.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	for _, pin := range []GPIOPin{testLEDPin, testMagnetPin, testFrontPin, testBackPin} {
		if f.gpio.levels[pin] {
			t.Errorf("pin %d still on", pin)
		}
	}
	if f.c.Zone(ZoneFront).Running() || f.c.Zone(ZoneBack).Running() {
		t.Error("zones still running")
	}
}

func TestControllerRegistersDictionary(t *testing.T) {
	f := newReadyController(t)
	dict := f.c.Registry().Dictionary()
	if !strings.HasPrefix(dict, "H heater_program zone=%u") || !strings.Contains(dict, "\nB aux_toggle magnet=%c led=%c\n") {
		t.Errorf("dictionary = %q", dict)
	}
}
