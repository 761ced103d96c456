package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"phagebox/config"
	"phagebox/core"
	"phagebox/protocol"
)

// DefaultStepPeriod is the control loop cadence of the bench
const DefaultStepPeriod = 10 * time.Millisecond

// Bench runs the firmware core against a simulated plant, talking the
// device protocol over port
type Bench struct {
	Plant      *Plant
	Controller *core.Controller

	port       io.ReadWriter
	log        *slog.Logger
	ticks      *core.TickSource
	output     *protocol.ScratchOutput
	speed      float64
	tickPeriod time.Duration
	stepPeriod time.Duration
}

// NewBench wires a controller to a plant built from the board and plant
// configurations
func NewBench(board *config.BoardConfig, plantCfg PlantConfig, port io.ReadWriter, log *slog.Logger) (*Bench, error) {
	if board == nil {
		board = config.DefaultBoardConfig()
	}
	applyDefaults(&plantCfg)

	b := &Bench{
		port:       port,
		log:        log,
		ticks:      &core.TickSource{},
		output:     protocol.NewScratchOutput(),
		speed:      plantCfg.Speed,
		tickPeriod: time.Duration(float64(time.Duration(board.TickPeriodMS)*time.Millisecond) / plantCfg.Speed),
		stepPeriod: DefaultStepPeriod,
	}

	debug := func(msg string) {
		b.log.Debug(msg, "source", "firmware")
	}
	// Heater pins are resolved first so the plant knows which relay heats which zone
	cfg, err := board.ControllerConfig(nil, nil, b.ticks, b.output, debug)
	if err != nil {
		return nil, fmt.Errorf("invalid board config: %w", err)
	}
	b.Plant = NewPlant(plantCfg, cfg.HeaterPins)
	cfg.GPIO = b.Plant
	cfg.Sensor = b.Plant
	b.Controller = core.NewController(cfg)

	return b, nil
}

// Run drives the control loop until ctx is cancelled or the port reaches
// end of file. Outputs are shut down before returning.
func (b *Bench) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)

	rx := make(chan []byte, 16)
	go b.readLoop(rx, stop)
	go b.ticks.Run(stop, b.tickPeriod)

	start := time.Now()
	last := start
	core.SetTime(0)
	if err := b.Controller.Init(); err != nil {
		return fmt.Errorf("controller init failed: %w", err)
	}
	if err := b.flush(); err != nil {
		return err
	}
	b.log.Info("bench started", "version", protocol.Version, "speed", b.speed, "tick", b.tickPeriod)

	ticker := time.NewTicker(b.stepPeriod)
	defer ticker.Stop()

	var pending []byte
	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return ctx.Err()
		case <-ticker.C:
		}

		now := time.Now()
		b.Plant.Advance(time.Duration(float64(now.Sub(last)) * b.speed))
		last = now
		core.SetTime(uint32(now.Sub(start).Milliseconds()))

	drain:
		for {
			select {
			case chunk, ok := <-rx:
				if !ok {
					b.log.Info("port closed")
					b.shutdown()
					return nil
				}
				pending = append(pending, chunk...)
			default:
				break drain
			}
		}

		in := protocol.NewSliceInputBuffer(pending)
		b.Controller.Step(in)
		pending = pending[len(pending)-in.Available():]

		if err := b.flush(); err != nil {
			b.shutdown()
			return err
		}
	}
}

func (b *Bench) shutdown() {
	if err := b.Controller.Shutdown(); err != nil {
		b.log.Warn("shutdown failed", "error", err)
	}
	b.flush()
	tr := b.Controller.Transport()
	b.log.Info("link stats", "frames", tr.FramesReceived(), "truncations", tr.Truncations())
}

func (b *Bench) flush() error {
	data := b.output.Result()
	if len(data) == 0 {
		return nil
	}
	_, err := b.port.Write(data)
	b.output.Reset()
	if err != nil {
		return fmt.Errorf("port write failed: %w", err)
	}
	return nil
}

// readLoop forwards port input to rx and closes rx when the port ends
func (b *Bench) readLoop(rx chan<- []byte, stop <-chan struct{}) {
	defer close(rx)
	buf := make([]byte, 256)
	for {
		n, err := b.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case rx <- chunk:
			case <-stop:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				b.log.Warn("port read failed", "error", err)
			}
			return
		}
	}
}
