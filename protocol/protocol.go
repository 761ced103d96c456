// Package protocol implements the PhageBox serial command protocol
package protocol

// Version represents the PhageBox firmware version
const Version = "0.2.0"

// Framing constants
const (
	StartMarker    = '<'
	EndMarker      = '>'
	FieldSeparator = ','
	LineTerminator = '\n'

	// FrameCapacity is the size of the frame accumulation buffer. At most
	// FrameCapacity-1 bytes of a frame interior survive; the last slot is
	// overwritten once the buffer is full.
	FrameCapacity = 40

	// MessageMax is the size of the reply scratch buffer
	MessageMax = 256
)

// Message kinds, selected by the first character of the first field
const (
	KindHeaterProgram = 'H'
	KindAuxToggle     = 'B'
)

// Field counts including the kind field
const (
	HeaterProgramFields = 9
	AuxToggleFields     = 3
)

// ReadyFrame is sent once after startup, when the identification blink
// sequence has finished
const ReadyFrame = "<ready>"

// Telemetry line suffix for the setpoint of a zone. A zone named FRONT
// reports "T_FRONT,<celsius>" and "T_FRONT_SET,<celsius>".
const (
	TelemetryPrefix    = "T_"
	TelemetrySetSuffix = "_SET"
)

// Plain-text diagnostic notices
const (
	NoticeUnknownCommand   = "unknown command"
	NoticeMalformedCommand = "malformed command"
)
