package pcr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"phagebox/host/serial"
	"phagebox/protocol"
)

const (
	// DefaultAckTimeout bounds the wait for an acknowledgement frame
	DefaultAckTimeout = 2 * time.Second

	// DefaultSampleBuffer is the size of the samples channel buffer
	DefaultSampleBuffer = 256
)

var (
	// ErrRejected is returned when the firmware answers a command with a notice
	ErrRejected = errors.New("command rejected by firmware")

	// ErrUnexpectedAck is returned when an acknowledgement does not echo the request
	ErrUnexpectedAck = errors.New("unexpected acknowledgement")

	// ErrClosed is returned once the connection is gone
	ErrClosed = errors.New("connection closed")
)

// Client talks to the PhageBox firmware
type Client struct {
	transport *protocol.HostTransport
	log       *slog.Logger

	// One request in flight at a time
	reqMu      sync.Mutex
	ackTimeout time.Duration

	replies chan reply
	samples chan Sample
	notices chan string

	calibration atomic.Pointer[Calibration]

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	dropped   atomic.Uint64
}

type reply struct {
	ack    string
	notice string
}

// Connect opens the serial device and returns a client on it
func Connect(cfg *serial.Config, log *slog.Logger) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	// Drop whatever the board printed before we were listening
	if err := port.Flush(); err != nil {
		log.Debug("flush failed", "error", err)
	}
	return NewClient(port, log), nil
}

// NewClient starts a client on an open port
func NewClient(port io.ReadWriteCloser, log *slog.Logger) *Client {
	c := &Client{
		transport:  protocol.NewHostTransport(port),
		log:        log,
		ackTimeout: DefaultAckTimeout,
		replies:    make(chan reply, 8),
		samples:    make(chan Sample, DefaultSampleBuffer),
		notices:    make(chan string, 16),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
	go c.dispatch()
	return c
}

// SetAckTimeout changes how long requests wait for an acknowledgement
func (c *Client) SetAckTimeout(d time.Duration) {
	c.ackTimeout = d
}

// SetCalibration makes StartZone take chip temperatures and Samples report
// them
func (c *Client) SetCalibration(cal Calibration) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	c.calibration.Store(&cal)
	return nil
}

// Calibration returns the calibration in use
func (c *Client) Calibration() Calibration {
	if cal := c.calibration.Load(); cal != nil {
		return *cal
	}
	return Identity
}

// Samples returns parsed telemetry. Samples are dropped when the consumer
// falls behind; the channel is closed when the connection ends.
func (c *Client) Samples() <-chan Sample {
	return c.samples
}

// Notices returns firmware text lines that are not telemetry
func (c *Client) Notices() <-chan string {
	return c.notices
}

// Dropped returns how many samples were discarded
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WaitReady blocks until the firmware has announced itself
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("waiting for ready: %w", ctx.Err())
	}
}

// StartZone configures the three phases of a zone and starts it. Step
// temperatures are chip temperatures; the calibration turns them into
// block setpoints.
func (c *Client) StartZone(ctx context.Context, zone Zone, p Program) error {
	if !zone.Valid() {
		return fmt.Errorf("invalid zone %d", int(zone))
	}
	p = c.Calibration().ProgramToBlock(p)
	if err := p.Validate(); err != nil {
		return err
	}
	if err := c.request(ctx, strconv.Itoa(p.Cycles), p.Fields(zone)...); err != nil {
		return fmt.Errorf("start %v: %w", zone, err)
	}
	c.log.Info("zone started", "zone", zone, "cycles", p.Cycles, "duration", p.Duration())
	return nil
}

// StopZone stops a zone by starting it with zero cycles. The zone's phase
// table is cleared.
func (c *Client) StopZone(ctx context.Context, zone Zone) error {
	if !zone.Valid() {
		return fmt.Errorf("invalid zone %d", int(zone))
	}
	if err := c.request(ctx, "0", Program{}.Fields(zone)...); err != nil {
		return fmt.Errorf("stop %v: %w", zone, err)
	}
	c.log.Info("zone stopped", "zone", zone)
	return nil
}

// ToggleAux flips the magnet and/or LED outputs
func (c *Client) ToggleAux(ctx context.Context, magnet, led bool) error {
	m, l := flag(magnet), flag(led)
	if err := c.request(ctx, l, string(protocol.KindAuxToggle), m, l); err != nil {
		return fmt.Errorf("toggle aux: %w", err)
	}
	return nil
}

// Send writes a raw frame and returns the firmware's answer: the ack text,
// or ErrRejected wrapping the notice
func (c *Client) Send(ctx context.Context, fields ...string) (string, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	r, err := c.exchange(ctx, fields)
	if err != nil {
		return "", err
	}
	if r.notice != "" {
		return "", fmt.Errorf("%w: %s", ErrRejected, r.notice)
	}
	return r.ack, nil
}

func (c *Client) request(ctx context.Context, wantAck string, fields ...string) error {
	ack, err := c.Send(ctx, fields...)
	if err != nil {
		return err
	}
	if ack != wantAck {
		return fmt.Errorf("%w: got <%s>, want <%s>", ErrUnexpectedAck, ack, wantAck)
	}
	return nil
}

// exchange sends one frame and waits for its reply. Caller holds reqMu.
func (c *Client) exchange(ctx context.Context, fields []string) (reply, error) {
	// Drop replies nobody waited for
drain:
	for {
		select {
		case <-c.replies:
		default:
			break drain
		}
	}

	if err := c.transport.Send(fields...); err != nil {
		if errors.Is(err, protocol.ErrTransportClosed) {
			return reply{}, ErrClosed
		}
		return reply{}, err
	}

	timer := time.NewTimer(c.ackTimeout)
	defer timer.Stop()

	select {
	case r := <-c.replies:
		return r, nil
	case <-timer.C:
		return reply{}, fmt.Errorf("no acknowledgement within %v", c.ackTimeout)
	case <-c.done:
		return reply{}, ErrClosed
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// dispatch sorts firmware output into replies, samples and notices
func (c *Client) dispatch() {
	defer close(c.done)
	defer close(c.samples)
	defer close(c.notices)

	for l := range c.transport.Lines() {
		switch l.Kind {
		case protocol.LineFrame:
			if l.Text == "ready" {
				c.readyOnce.Do(func() { close(c.ready) })
				c.log.Info("firmware ready")
				continue
			}
			c.reply(reply{ack: l.Text})

		case protocol.LineText:
			if s, ok := ParseTelemetry(l.Text, l.Time); ok {
				s = c.Calibration().SampleToChip(s)
				select {
				case c.samples <- s:
				default:
					c.dropped.Add(1)
				}
				continue
			}
			if l.Text == protocol.NoticeUnknownCommand || l.Text == protocol.NoticeMalformedCommand {
				c.reply(reply{notice: l.Text})
			}
			c.log.Debug("firmware notice", "text", l.Text)
			select {
			case c.notices <- l.Text:
			default:
			}
		}
	}
}

func (c *Client) reply(r reply) {
	select {
	case c.replies <- r:
	default:
		c.log.Warn("dropping unsolicited reply", "ack", r.ack, "notice", r.notice)
	}
}

// Close closes the connection
func (c *Client) Close() error {
	err := c.transport.Close()
	<-c.done
	return err
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
