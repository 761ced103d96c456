package protocol

import "sync/atomic"

// InputBuffer provides an abstraction for reading incoming protocol data
type InputBuffer interface {
	// Data returns the available data slice
	Data() []byte

	// Available returns the number of bytes available
	Available() int

	// Pop removes n bytes from the front of the buffer
	Pop(n int)
}

// OutputBuffer provides an abstraction for writing outgoing protocol data
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)
}

// SliceInputBuffer implements InputBuffer using a byte slice
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer creates a new SliceInputBuffer
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte {
	return s.data
}

func (s *SliceInputBuffer) Available() int {
	return len(s.data)
}

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer.
// Writes past MessageMax are dropped.
type ScratchOutput struct {
	buf  [MessageMax]byte
	pos  int
	sent int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

// Len returns the number of buffered bytes
func (s *ScratchOutput) Len() int {
	return s.pos
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// String returns the accumulated output as text
func (s *ScratchOutput) String() string {
	return string(s.buf[:s.pos])
}

// Pending returns the bytes not yet passed to Advance
func (s *ScratchOutput) Pending() []byte {
	return s.buf[s.sent:s.pos]
}

// Advance marks n pending bytes as sent. The buffer empties once everything
// has gone out.
func (s *ScratchOutput) Advance(n int) {
	s.sent = min(s.sent+n, s.pos)
	if s.sent == s.pos {
		s.Reset()
	}
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.sent = 0
}

// FifoBuffer is a single-producer single-consumer byte ring between the
// serial reader goroutine (Write) and the control loop (Data, Pop, Read,
// Reset). Head and tail are free-running counters; capacity is rounded up
// to a power of two.
type FifoBuffer struct {
	buf    []byte
	linear []byte
	mask   uint32
	head   atomic.Uint32 // written by the producer only
	tail   atomic.Uint32 // written by the consumer only
}

// NewFifoBuffer creates a FifoBuffer holding at least capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	size := uint32(1)
	for size < uint32(capacity) {
		size <<= 1
	}
	return &FifoBuffer{
		buf:    make([]byte, size),
		linear: make([]byte, size),
		mask:   size - 1,
	}
}

// Write appends as much of data as fits and returns the count
func (f *FifoBuffer) Write(data []byte) int {
	head := f.head.Load()
	free := uint32(len(f.buf)) - (head - f.tail.Load())
	n := uint32(len(data))
	if n > free {
		n = free
	}
	for i := uint32(0); i < n; i++ {
		f.buf[(head+i)&f.mask] = data[i]
	}
	f.head.Store(head + n)
	return int(n)
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	return int(f.head.Load() - f.tail.Load())
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.Available()
}

// Cap returns the ring size
func (f *FifoBuffer) Cap() int {
	return len(f.buf)
}

// Data returns the readable bytes as one slice. When the readable region
// wraps it is copied to a scratch area; the slice is valid until the next
// Pop, Read or Reset.
func (f *FifoBuffer) Data() []byte {
	tail := f.tail.Load()
	n := f.head.Load() - tail
	start := tail & f.mask
	if start+n <= uint32(len(f.buf)) {
		return f.buf[start : start+n]
	}
	first := uint32(len(f.buf)) - start
	copy(f.linear, f.buf[start:])
	copy(f.linear[first:n], f.buf[:n-first])
	return f.linear[:n]
}

// Pop removes up to n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	if avail := f.Available(); n > avail {
		n = avail
	}
	if n > 0 {
		f.tail.Add(uint32(n))
	}
}

// Read copies up to len(data) bytes out of the ring
func (f *FifoBuffer) Read(data []byte) int {
	n := copy(data, f.Data())
	f.Pop(n)
	return n
}

// IsEmpty returns true if nothing is waiting to be read
func (f *FifoBuffer) IsEmpty() bool {
	return f.Available() == 0
}

// Reset discards everything written so far. Consumer side only.
func (f *FifoBuffer) Reset() {
	f.tail.Store(f.head.Load())
}
