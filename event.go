package eventgroup

import (
	"fmt"
	"time"
)

// EventType is the discriminant of the closed set of event kinds. The values
// are part of the wire contract shared with other pipeline encoders.
type EventType int

const (
	EventTypeNone EventType = iota
	EventTypeLog
	EventTypeMetric
	EventTypeSpan
)

func (t EventType) String() string {
	switch t {
	case EventTypeLog:
		return "log"
	case EventTypeMetric:
		return "metric"
	case EventTypeSpan:
		return "span"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is the polymorphic handle stored in an EventGroup. The set of
// implementations is closed: *LogEvent, *MetricEvent, and *SpanEvent. Code
// consuming events should switch on the concrete type.
type Event interface {
	// Type returns the kind discriminant.
	Type() EventType

	// Timestamp returns the event time in seconds since the Unix epoch.
	Timestamp() int64

	// TimestampNanosecond returns the sub-second part of the event time.
	TimestampNanosecond() uint32

	// SetTimestamp sets the event time; nsec >= 1e9 carries into sec.
	SetTimestamp(sec int64, nsec uint32)

	// Arena returns the arena the event's string data is copied into.
	Arena() *Arena

	// DataSize returns the number of string bytes the event references.
	DataSize() int

	sealed()
}

// Is reports whether e is of the concrete event kind T.
//
//	if eventgroup.Is[*eventgroup.LogEvent](e) { ... }
func Is[T Event](e Event) bool {
	_, ok := e.(T)
	return ok
}

// As downcasts e to the concrete event kind T, returning an error wrapping
// ErrTypeMismatch if e is of another kind.
func As[T Event](e Event) (T, error) {
	t, ok := e.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: want %T, got %T", ErrTypeMismatch, zero, e)
	}
	return t, nil
}

// MustAs is like As but panics on a mismatch. A wrong-kind downcast is a
// programming error, not a runtime condition to recover from.
func MustAs[T Event](e Event) T {
	t, err := As[T](e)
	if err != nil {
		panic(err)
	}
	return t
}

// eventBase holds the fields common to all event kinds.
type eventBase struct {
	arena *Arena
	sec   int64
	nsec  uint32
	wire  presence
}

func (e *eventBase) Timestamp() int64 { return e.sec }

func (e *eventBase) TimestampNanosecond() uint32 { return e.nsec }

func (e *eventBase) SetTimestamp(sec int64, nsec uint32) {
	e.sec = sec + int64(nsec/1e9)
	e.nsec = nsec % 1e9
}

// Time returns the event time as a time.Time in UTC.
func (e *eventBase) Time() time.Time {
	return time.Unix(e.sec, int64(e.nsec)).UTC()
}

func (e *eventBase) Arena() *Arena { return e.arena }

func (e *eventBase) sealed() {}
