package protocol

// FrameHandler receives one complete frame interior. The slice aliases the
// transport's accumulation buffer and is only valid during the call.
type FrameHandler func(frame []byte)

// Transport frames the inbound byte stream into '<' ... '>' messages and
// writes replies to the output buffer
type Transport struct {
	buf     [FrameCapacity]byte
	n       int
	open    bool
	output  OutputBuffer
	handler FrameHandler

	// Stats
	framesReceived uint32
	truncated      uint32
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler FrameHandler) *Transport {
	return &Transport{
		output:  output,
		handler: handler,
	}
}

// Receive drains every byte currently available in the input buffer.
// Frames completed along the way are handed to the handler before the next
// byte is consumed.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	for _, b := range data {
		t.Feed(b)
	}
	input.Pop(len(data))
}

// Feed processes one byte. The order of the checks matters: the end marker
// is recognised before the byte would be stored, the start marker after.
func (t *Transport) Feed(b byte) {
	if b == EndMarker && t.open {
		t.open = false
		t.framesReceived++
		if t.handler != nil {
			t.handler(t.buf[:t.n])
		}
	}

	if t.open {
		t.buf[t.n] = b
		t.n++
		if t.n == FrameCapacity {
			// Buffer full: keep overwriting the last slot
			t.n = FrameCapacity - 1
			t.truncated++
		}
	}

	if b == StartMarker {
		// A start marker discards any partial frame
		t.n = 0
		t.open = true
	}
}

// InFrame reports whether a frame is currently open
func (t *Transport) InFrame() bool {
	return t.open
}

// Reset discards any partial frame
func (t *Transport) Reset() {
	t.n = 0
	t.open = false
}

// Reply writes a delimited acknowledgement frame
func (t *Transport) Reply(fields ...string) {
	if t.output == nil {
		return
	}
	EncodeFrame(t.output, fields...)
}

// Notice writes a plain-text line
func (t *Transport) Notice(text string) {
	if t.output == nil {
		return
	}
	t.output.Output([]byte(text))
	t.output.Output([]byte{LineTerminator})
}

// Write writes raw bytes, used for telemetry lines
func (t *Transport) Write(data []byte) {
	if t.output == nil {
		return
	}
	t.output.Output(data)
}

// FramesReceived returns the number of frames closed so far
func (t *Transport) FramesReceived() uint32 {
	return t.framesReceived
}

// Truncations returns how many bytes were dropped by buffer overflow
func (t *Transport) Truncations() uint32 {
	return t.truncated
}
