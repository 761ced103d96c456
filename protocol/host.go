package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LineKind distinguishes delimited frames from plain text lines
type LineKind uint8

const (
	LineText LineKind = iota
	LineFrame
)

// Line is one unit of firmware output as seen by the host
type Line struct {
	Kind LineKind
	Text string // frame interior for LineFrame, line without terminator for LineText
	Time time.Time
}

// ErrTransportClosed is returned by operations on a closed HostTransport
var ErrTransportClosed = errors.New("transport closed")

// HostTransport handles the protocol from the host side: it writes
// command frames and splits the firmware's output into frames and lines
type HostTransport struct {
	port io.ReadWriteCloser

	writeMutex sync.Mutex
	lines      chan Line

	// Reader state
	text    bytes.Buffer
	frame   bytes.Buffer
	inFrame bool

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
	now      func() time.Time
}

// NewHostTransport creates a new host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:     port,
		lines:    make(chan Line, 64),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		now:      time.Now,
	}

	go t.readLoop()

	return t
}

// Lines returns the channel of received lines. It is closed when the
// reader stops.
func (t *HostTransport) Lines() <-chan Line {
	return t.lines
}

// Send writes one frame built from fields
func (t *HostTransport) Send(fields ...string) error {
	select {
	case <-t.stopChan:
		return ErrTransportClosed
	default:
	}

	msg := AppendFrame(make([]byte, 0, FrameCapacity), fields...)
	if len(msg)-2 >= FrameCapacity {
		return fmt.Errorf("frame too long: %d bytes (max %d)", len(msg)-2, FrameCapacity-1)
	}

	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}
	return nil
}

// readLoop continuously reads from the port and emits lines
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)
	defer close(t.lines)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			for _, b := range buffer[:n] {
				t.process(b)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				t.flushText()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (t *HostTransport) process(b byte) {
	switch {
	case b == StartMarker:
		t.inFrame = true
		t.frame.Reset()
	case b == EndMarker && t.inFrame:
		t.inFrame = false
		t.emit(Line{Kind: LineFrame, Text: t.frame.String()})
	case t.inFrame:
		t.frame.WriteByte(b)
	case b == LineTerminator:
		t.flushText()
	case b == '\r':
	default:
		t.text.WriteByte(b)
	}
}

func (t *HostTransport) flushText() {
	if t.text.Len() == 0 {
		return
	}
	t.emit(Line{Kind: LineText, Text: t.text.String()})
	t.text.Reset()
}

func (t *HostTransport) emit(l Line) {
	l.Time = t.now()
	select {
	case t.lines <- l:
	case <-t.stopChan:
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}
