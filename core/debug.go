package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// ZoneEvent captures a zone state change for post-mortem inspection
type ZoneEvent struct {
	EventType uint8  // Event type code
	Zone      ZoneID // Zone the event belongs to
	Clock     uint32 // System clock at event (ms)
	Phase     Phase  // Phase after the event
	Value     uint32 // Context-dependent value
}

// Event type codes
const (
	EvtStart        = 1 // Start received, Value = target cycles
	EvtTransition   = 2 // Phase changed, Value = elapsed ticks
	EvtAutoStop     = 3 // Cycle count reached, Value = completed cycles
	EvtStop         = 4 // Explicit stop
	EvtSensorFault  = 5 // Sensor read failed
	EvtCommandError = 6 // Frame rejected, Value = message kind
)

// EventRingSize is the number of events kept by an EventLog
const EventRingSize = 32

// EventLog is a fixed-size ring of recent zone events. Recording never
// blocks or allocates.
type EventLog struct {
	ring [EventRingSize]ZoneEvent
	head uint8
	n    uint8
}

// Record appends an event, overwriting the oldest when full
func (l *EventLog) Record(eventType uint8, zone ZoneID, phase Phase, value uint32) {
	if l == nil {
		return
	}
	l.ring[l.head] = ZoneEvent{
		EventType: eventType,
		Zone:      zone,
		Clock:     GetTime(),
		Phase:     phase,
		Value:     value,
	}
	l.head = (l.head + 1) % EventRingSize
	if l.n < EventRingSize {
		l.n++
	}
}

// Events returns the recorded events from oldest to newest
func (l *EventLog) Events() []ZoneEvent {
	out := make([]ZoneEvent, 0, l.n)
	start := (l.head + EventRingSize - l.n) % EventRingSize
	for i := uint8(0); i < l.n; i++ {
		out = append(out, l.ring[(start+i)%EventRingSize])
	}
	return out
}

// Dump writes every recorded event through w
func (l *EventLog) Dump(w DebugWriter) {
	if w == nil {
		return
	}
	for _, evt := range l.Events() {
		w("[EVT] " + eventName(evt.EventType) +
			" zone=" + itoa(int(evt.Zone)) +
			" clock=" + utoa(evt.Clock) +
			" phase=" + evt.Phase.String() +
			" v=" + utoa(evt.Value))
	}
}

// Clear empties the log
func (l *EventLog) Clear() {
	l.head = 0
	l.n = 0
}

func eventName(t uint8) string {
	switch t {
	case EvtStart:
		return "START"
	case EvtTransition:
		return "TRANSITION"
	case EvtAutoStop:
		return "AUTO_STOP"
	case EvtStop:
		return "STOP"
	case EvtSensorFault:
		return "SENSOR_FAULT"
	case EvtCommandError:
		return "COMMAND_ERROR"
	default:
		return "UNKNOWN"
	}
}
