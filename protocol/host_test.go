package protocol

import (
	"io"
	"net"
	"testing"
	"time"
)

func nextLine(t *testing.T, ht *HostTransport) Line {
	t.Helper()
	select {
	case l, ok := <-ht.Lines():
		if !ok {
			t.Fatal("Lines channel closed")
		}
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for line")
	}
	return Line{}
}

func TestHostTransportSplitsOutput(t *testing.T) {
	hostSide, deviceSide := net.Pipe()
	ht := NewHostTransport(hostSide)
	defer ht.Close()

	go func() {
		deviceSide.Write([]byte("<ready>\n<2>T_FRONT,25.50\r\nT_FRONT_SET,95.00\n"))
	}()

	want := []Line{
		{Kind: LineFrame, Text: "ready"},
		{Kind: LineFrame, Text: "2"},
		{Kind: LineText, Text: "T_FRONT,25.50"},
		{Kind: LineText, Text: "T_FRONT_SET,95.00"},
	}
	for i, w := range want {
		got := nextLine(t, ht)
		if got.Kind != w.Kind || got.Text != w.Text {
			t.Errorf("Line %d: expected %v %q, got %v %q", i, w.Kind, w.Text, got.Kind, got.Text)
		}
		if got.Time.IsZero() {
			t.Errorf("Line %d: missing receive time", i)
		}
	}
}

func TestHostTransportSend(t *testing.T) {
	hostSide, deviceSide := net.Pipe()
	ht := NewHostTransport(hostSide)
	defer ht.Close()

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := io.ReadAtLeast(deviceSide, buf, len("<B,0,1>"))
		received <- string(buf[:n])
	}()

	if err := ht.Send("B", "0", "1"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case got := <-received:
		if got != "<B,0,1>" {
			t.Errorf("Expected <B,0,1>, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for frame")
	}
}

func TestHostTransportRejectsLongFrames(t *testing.T) {
	hostSide, _ := net.Pipe()
	ht := NewHostTransport(hostSide)
	defer ht.Close()

	long := make([]byte, FrameCapacity)
	for i := range long {
		long[i] = '9'
	}
	if err := ht.Send("H", string(long)); err == nil {
		t.Error("Expected error for frame exceeding capacity")
	}
}

func TestHostTransportClosedSend(t *testing.T) {
	hostSide, _ := net.Pipe()
	ht := NewHostTransport(hostSide)
	if err := ht.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ht.Send("B", "0", "1"); err != ErrTransportClosed {
		t.Errorf("Expected ErrTransportClosed, got %v", err)
	}
	if _, ok := <-ht.Lines(); ok {
		t.Error("Expected Lines channel to be closed")
	}
}
