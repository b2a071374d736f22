package eventgroup

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// EventTime is the Fluent forward protocol timestamp: an extension type 0
// carrying seconds and nanoseconds, rather than the predefined (type -1)
// msgpack Time format.
//
// +-------+----+----+----+----+----+----+----+----+----+
// |     1 |  2 |  3 |  4 |  5 |  6 |  7 |  8 |  9 | 10 |
// +-------+----+----+----+----+----+----+----+----+----+
// |    D7 | 00 | second from epoch |     nanosecond    |
// +-------+----+----+----+----+----+----+----+----+----+
// |fixext8|type| 32bits integer BE | 32bits integer BE |
// +-------+----+----+----+----+----+----+----+----+----+
//
//	ref: https://github.com/fluent/fluent/wiki/Forward-Protocol-Specification-v1#time-ext-format
type EventTime struct {
	Seconds     uint32
	Nanoseconds uint32
}

// compile-time check for msgpack Custom[En|De]coder conformance
var _ msgpack.CustomEncoder = (*EventTime)(nil)
var _ msgpack.CustomDecoder = (*EventTime)(nil)

const (
	TimeExtType = 0
	TimeLen     = 8
)

// NewEventTime builds an EventTime from an event's timestamp.
// NB: 64bit -> 32bit seconds => constrained to 1970-2106
func NewEventTime(sec int64, nsec uint32) EventTime {
	return EventTime{Seconds: uint32(sec), Nanoseconds: nsec}
}

// Time returns t as a time.Time in UTC.
func (t EventTime) Time() time.Time {
	return time.Unix(int64(t.Seconds), int64(t.Nanoseconds)).UTC()
}

// EncodeMsgpack serializes t to the custom msgpack format defined in the
// Fluent protocol specification.
func (t *EventTime) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeExtHeader(TimeExtType, TimeLen); err != nil {
		return fmt.Errorf("failed to encode EventTime header: %w", err)
	}
	var b [TimeLen]byte
	binary.BigEndian.PutUint32(b[:4], t.Seconds)
	binary.BigEndian.PutUint32(b[4:], t.Nanoseconds)
	if _, err := enc.Writer().Write(b[:]); err != nil {
		return fmt.Errorf("failed to encode EventTime body: %w", err)
	}
	return nil
}

// DecodeMsgpack deserializes t from the custom msgpack format defined in the
// Fluent protocol specification.
func (t *EventTime) DecodeMsgpack(dec *msgpack.Decoder) error {
	var buf [2 + TimeLen]byte

	// read out the 10 bytes for the serialized EventTime
	if err := dec.ReadFull(buf[:]); err != nil {
		return fmt.Errorf("failed to decode EventTime: %w", err)
	}

	// validate header
	if buf[0] != 0xD7 {
		return fmt.Errorf("failed to decode EventTime: byte[0] = %X, expected: 0xD7 (fixext8)", buf[0])
	}
	if buf[1] != TimeExtType {
		return fmt.Errorf("failed to decode EventTime: byte[1] = %X, expected: 0x00 (custom type 0)", buf[1])
	}

	t.Seconds = binary.BigEndian.Uint32(buf[2:6])
	t.Nanoseconds = binary.BigEndian.Uint32(buf[6:])
	return nil
}
