package eventgroup

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// JSON field names of the group wire schema.
const (
	jsonEvents   = "events"
	jsonMetadata = "metadata"
	jsonTags     = "tags"

	jsonType                = "type"
	jsonTimestamp           = "timestamp"
	jsonTimestampNanosecond = "timestampNanosecond"
	jsonContents            = "contents"
	jsonName                = "name"
	jsonValue               = "value"
	jsonDetail              = "detail"
	jsonTraceID             = "traceId"
	jsonSpanID              = "spanId"
	jsonTraceState          = "traceState"
	jsonParentSpanID        = "parentSpanId"
	jsonKind                = "kind"
	jsonStartTimeNs         = "startTimeNs"
	jsonEndTimeNs           = "endTimeNs"
	jsonStatus              = "status"
	jsonScopeTags           = "scopeTags"
	jsonLinks               = "links"
	jsonTimestampNs         = "timestampNs"

	untypedSingleValueType = "untyped_single_value"
)

var jsonConfig = jsoniter.Config{
	EscapeHTML: false,
}.Froze()

// DecodeJSON decodes a group from its JSON form into a new group with its own
// arena. On failure it returns a *DecodeError and no group.
func DecodeJSON(data []byte) (*EventGroup, error) {
	g := NewEventGroup(nil)
	if err := g.FromJSON(data); err != nil {
		return nil, err
	}
	return g, nil
}

// FromJSON replaces the events, metadata, and tags of g with those decoded
// from data. All strings are copied into g's arena. On failure it returns a
// *DecodeError and the events, metadata, and tags of g are left unchanged,
// though the strings decoded before the failure remain allocated in the
// arena, at most len(data) bytes.
//
// Encoding the group again writes the keys the input carried, including
// empty ones. Null values are read as absent and unknown keys are skipped,
// so neither is written back.
func (g *EventGroup) FromJSON(data []byte) error {
	d := &groupDecoder{g: NewEventGroup(g.arena)}
	if err := d.decode(data); err != nil {
		return &DecodeError{Err: err}
	}
	g.events, g.metadata, g.tags, g.wire = d.g.events, d.g.metadata, d.g.tags, d.g.wire
	return nil
}

// UnmarshalJSON implements json.Unmarshaler via FromJSON.
func (g *EventGroup) UnmarshalJSON(data []byte) error {
	if g.arena == nil {
		*g = *NewEventGroup(nil)
	}
	return g.FromJSON(data)
}

// ToJSON encodes g to its JSON form. Events keep their order and map keys are
// emitted sorted. For groups and events built in code, empty top-level
// collections and empty optional fields are omitted; decoded ones write back
// the keys they were read from.
func (g *EventGroup) ToJSON() ([]byte, error) {
	s := jsonConfig.BorrowStream(nil)
	defer jsonConfig.ReturnStream(s)

	writeGroup(s, g)
	if s.Error != nil {
		return nil, fmt.Errorf("failed to encode event group: %w", s.Error)
	}
	return append([]byte(nil), s.Buffer()...), nil
}

// MarshalJSON implements json.Marshaler via ToJSON.
func (g *EventGroup) MarshalJSON() ([]byte, error) {
	return g.ToJSON()
}

// jsonKeys is a set of schema keys, one bit per key.
type jsonKeys uint32

const (
	keyType jsonKeys = 1 << iota
	keyTimestamp
	keyTimestampNanosecond
	keyContents
	keyName
	keyValue
	keyTags
	keyTraceID
	keySpanID
	keyTraceState
	keyParentSpanID
	keyKind
	keyStartTimeNs
	keyEndTimeNs
	keyStatus
	keyScopeTags
	keyEvents
	keyLinks
	keyMetadata
	keyTimestampNs
)

var schemaKeys = map[string]jsonKeys{
	jsonType:                keyType,
	jsonTimestamp:           keyTimestamp,
	jsonTimestampNanosecond: keyTimestampNanosecond,
	jsonContents:            keyContents,
	jsonName:                keyName,
	jsonValue:               keyValue,
	jsonTags:                keyTags,
	jsonTraceID:             keyTraceID,
	jsonSpanID:              keySpanID,
	jsonTraceState:          keyTraceState,
	jsonParentSpanID:        keyParentSpanID,
	jsonKind:                keyKind,
	jsonStartTimeNs:         keyStartTimeNs,
	jsonEndTimeNs:           keyEndTimeNs,
	jsonStatus:              keyStatus,
	jsonScopeTags:           keyScopeTags,
	jsonEvents:              keyEvents,
	jsonLinks:               keyLinks,
	jsonMetadata:            keyMetadata,
	jsonTimestampNs:         keyTimestampNs,
}

// Keys written even when empty, for objects built in code.
const (
	logKeys        = keyTimestamp | keyTimestampNanosecond | keyContents
	metricKeys     = keyTimestamp | keyTimestampNanosecond | keyName
	spanKeys       = keyTimestamp | keyTimestampNanosecond | keyKind | keyStartTimeNs | keyEndTimeNs | keyStatus
	innerEventKeys = keyTimestampNs
	linkKeys       = keyTraceID | keySpanID
)

// presence records the schema keys an object was decoded from, so that
// encoding it again writes exactly those keys, plus any that gained a value.
type presence struct {
	decoded bool
	keys    jsonKeys
	nulls   jsonKeys
}

// objectWriter writes the fields of one JSON object, placing the commas.
type objectWriter struct {
	s        *jsoniter.Stream
	p        presence
	defaults jsonKeys
	n        int
}

// emits reports whether key k is written: always when it holds a value,
// otherwise when the object was decoded with it or, for objects built in
// code, when k is one of the defaults of its kind.
func (w *objectWriter) emits(k jsonKeys, nonEmpty bool) bool {
	if nonEmpty {
		return true
	}
	if w.p.decoded {
		return w.p.keys&k != 0
	}
	return w.defaults&k != 0
}

func (w *objectWriter) field(key string) {
	if w.n > 0 {
		w.s.WriteMore()
	}
	w.s.WriteObjectField(key)
	w.n++
}

func (w *objectWriter) stringField(key string, k jsonKeys, v StringView) {
	if w.emits(k, len(v) > 0) {
		w.field(key)
		w.s.WriteString(string(v))
	}
}

func (w *objectWriter) stringMap(key string, k jsonKeys, m *StringMap) {
	if w.emits(k, m.Len() > 0) {
		w.field(key)
		writeStringMap(w.s, m)
	}
}

func (w *objectWriter) int64Field(key string, k jsonKeys, v int64) {
	if w.emits(k, v != 0) {
		w.field(key)
		w.s.WriteInt64(v)
	}
}

func (w *objectWriter) uint64Field(key string, k jsonKeys, v uint64) {
	if w.emits(k, v != 0) {
		w.field(key)
		w.s.WriteUint64(v)
	}
}

func writeGroup(s *jsoniter.Stream, g *EventGroup) {
	w := &objectWriter{s: s, p: g.wire}
	s.WriteObjectStart()
	if w.emits(keyEvents, len(g.events) > 0) {
		w.field(jsonEvents)
		s.WriteArrayStart()
		for i, e := range g.events {
			if i > 0 {
				s.WriteMore()
			}
			writeEvent(s, e)
		}
		s.WriteArrayEnd()
	}
	w.stringMap(jsonMetadata, keyMetadata, g.metadata)
	w.stringMap(jsonTags, keyTags, g.tags)
	s.WriteObjectEnd()
}

// eventWriter starts an event object with its type and timestamps.
func eventWriter(s *jsoniter.Stream, t EventType, b *eventBase, defaults jsonKeys) *objectWriter {
	w := &objectWriter{s: s, p: b.wire, defaults: defaults}
	w.field(jsonType)
	s.WriteInt(int(t))
	w.int64Field(jsonTimestamp, keyTimestamp, b.sec)
	w.uint64Field(jsonTimestampNanosecond, keyTimestampNanosecond, uint64(b.nsec))
	return w
}

func writeEvent(s *jsoniter.Stream, e Event) {
	s.WriteObjectStart()
	switch e := e.(type) {
	case *LogEvent:
		w := eventWriter(s, e.Type(), &e.eventBase, logKeys)
		if w.emits(keyContents, len(e.contents) > 0) {
			w.field(jsonContents)
			s.WriteObjectStart()
			for i, c := range e.contents {
				if i > 0 {
					s.WriteMore()
				}
				s.WriteObjectField(string(c.Key))
				s.WriteString(string(c.Value))
			}
			s.WriteObjectEnd()
		}
	case *MetricEvent:
		w := eventWriter(s, e.Type(), &e.eventBase, metricKeys)
		w.stringField(jsonName, keyName, e.name)
		if v, ok := e.value.(UntypedSingleValue); ok {
			w.field(jsonValue)
			s.WriteObjectStart()
			s.WriteObjectField(jsonType)
			s.WriteString(untypedSingleValueType)
			s.WriteMore()
			s.WriteObjectField(jsonDetail)
			s.WriteFloat64(v.Value)
			s.WriteObjectEnd()
		}
		w.stringMap(jsonTags, keyTags, e.tags)
	case *SpanEvent:
		w := eventWriter(s, e.Type(), &e.eventBase, spanKeys)
		w.stringField(jsonTraceID, keyTraceID, e.traceID)
		w.stringField(jsonSpanID, keySpanID, e.spanID)
		w.stringField(jsonTraceState, keyTraceState, e.traceState)
		w.stringField(jsonParentSpanID, keyParentSpanID, e.parentSpanID)
		w.stringField(jsonName, keyName, e.name)
		w.int64Field(jsonKind, keyKind, int64(e.kind))
		w.uint64Field(jsonStartTimeNs, keyStartTimeNs, e.startTimeNs)
		w.uint64Field(jsonEndTimeNs, keyEndTimeNs, e.endTimeNs)
		w.int64Field(jsonStatus, keyStatus, int64(e.status))
		w.stringMap(jsonTags, keyTags, e.tags)
		w.stringMap(jsonScopeTags, keyScopeTags, e.scopeTags)
		if w.emits(keyEvents, len(e.events) > 0) {
			w.field(jsonEvents)
			s.WriteArrayStart()
			for i, ie := range e.events {
				if i > 0 {
					s.WriteMore()
				}
				iw := &objectWriter{s: s, p: ie.wire, defaults: innerEventKeys}
				s.WriteObjectStart()
				iw.uint64Field(jsonTimestampNs, keyTimestampNs, ie.timestampNs)
				iw.stringField(jsonName, keyName, ie.name)
				iw.stringMap(jsonTags, keyTags, ie.tags)
				s.WriteObjectEnd()
			}
			s.WriteArrayEnd()
		}
		if w.emits(keyLinks, len(e.links) > 0) {
			w.field(jsonLinks)
			s.WriteArrayStart()
			for i, l := range e.links {
				if i > 0 {
					s.WriteMore()
				}
				lw := &objectWriter{s: s, p: l.wire, defaults: linkKeys}
				s.WriteObjectStart()
				lw.stringField(jsonTraceID, keyTraceID, l.traceID)
				lw.stringField(jsonSpanID, keySpanID, l.spanID)
				lw.stringField(jsonTraceState, keyTraceState, l.traceState)
				lw.stringMap(jsonTags, keyTags, l.tags)
				s.WriteObjectEnd()
			}
			s.WriteArrayEnd()
		}
	default:
		s.Error = fmt.Errorf("unknown event kind: %T", e)
	}
	s.WriteObjectEnd()
}

func writeStringMap(s *jsoniter.Stream, m *StringMap) {
	s.WriteObjectStart()
	for i, k := range m.SortedKeys() {
		if i > 0 {
			s.WriteMore()
		}
		s.WriteObjectField(string(k))
		s.WriteString(string(m.m[k]))
	}
	s.WriteObjectEnd()
}

// groupDecoder builds a group from JSON in a single pass over the input. Each
// event object is read twice: once to find its type, once to decode it with
// the schema of that kind, because "type" may follow the other fields.
type groupDecoder struct {
	g   *EventGroup
	err error
}

// fail records the first schema violation and returns false, so it can be
// returned directly from jsoniter callbacks to stop iteration.
func (d *groupDecoder) fail(format string, args ...any) bool {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
	}
	return false
}

func (d *groupDecoder) decode(data []byte) error {
	iter := jsoniter.ParseBytes(jsonConfig, data)
	if t := iter.WhatIsNext(); t != jsoniter.ObjectValue {
		if iter.Error != nil {
			return iter.Error
		}
		return fmt.Errorf("expected object at root, got %s", valueTypeName(t))
	}

	d.g.wire.decoded = true
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if !d.see(&d.g.wire, iter, field, groupSchema) {
			return false
		}
		switch field {
		case jsonEvents:
			return d.readEvents(iter)
		case jsonMetadata:
			return d.readStringMap(iter, field, d.g.metadata.Set)
		case jsonTags:
			return d.readStringMap(iter, field, d.g.tags.Set)
		default:
			iter.Skip()
			return true
		}
	})
	if err := d.result(iter); err != nil {
		return err
	}

	// only whitespace may follow the root object
	if t := iter.WhatIsNext(); t != jsoniter.InvalidValue || !errors.Is(iter.Error, io.EOF) {
		return errors.New("unexpected data after top-level object")
	}
	return nil
}

// Keys of each object in the schema.
const (
	groupSchema      = keyEvents | keyMetadata | keyTags
	logSchema        = keyType | keyTimestamp | keyTimestampNanosecond | keyContents
	metricSchema     = keyType | keyTimestamp | keyTimestampNanosecond | keyName | keyValue | keyTags
	spanSchema       = keyType | keyTimestamp | keyTimestampNanosecond | keyTraceID | keySpanID | keyTraceState | keyParentSpanID | keyName | keyKind | keyStartTimeNs | keyEndTimeNs | keyStatus | keyTags | keyScopeTags | keyEvents | keyLinks
	innerEventSchema = keyTimestampNs | keyName | keyTags
	linkSchema       = keyTraceID | keySpanID | keyTraceState | keyTags
)

// see records field in p if it is one of the schema keys. A schema key given
// twice in one object is rejected.
func (d *groupDecoder) see(p *presence, iter *jsoniter.Iterator, field string, schema jsonKeys) bool {
	k := schemaKeys[field] & schema
	if k == 0 {
		return true
	}
	if (p.keys|p.nulls)&k != 0 {
		return d.fail("duplicate key %q", field)
	}
	if iter.WhatIsNext() == jsoniter.NilValue {
		p.nulls |= k
	} else {
		p.keys |= k
	}
	return true
}

func (d *groupDecoder) result(iter *jsoniter.Iterator) error {
	if d.err != nil {
		return d.err
	}
	return iter.Error
}

func (d *groupDecoder) readEvents(iter *jsoniter.Iterator) bool {
	switch t := iter.WhatIsNext(); t {
	case jsoniter.NilValue:
		iter.Skip()
		return true
	case jsoniter.ArrayValue:
	default:
		return d.fail("%s: expected array, got %s", jsonEvents, valueTypeName(t))
	}

	i := 0
	iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
		if t := iter.WhatIsNext(); t != jsoniter.ObjectValue {
			return d.fail("%s[%d]: expected object, got %s", jsonEvents, i, valueTypeName(t))
		}
		raw := iter.SkipAndReturnBytes()
		if iter.Error != nil {
			return false
		}
		e, err := d.decodeEvent(raw)
		if err != nil {
			return d.fail("%s[%d]: %w", jsonEvents, i, err)
		}
		d.g.events = append(d.g.events, e)
		i++
		return true
	})
	return d.err == nil && iter.Error == nil
}

func (d *groupDecoder) decodeEvent(raw []byte) (Event, error) {
	t, err := peekEventType(raw)
	if err != nil {
		return nil, err
	}

	ed := &groupDecoder{g: d.g}
	iter := jsoniter.ParseBytes(jsonConfig, raw)

	var e Event
	switch t {
	case EventTypeLog:
		e = ed.readLogEvent(iter)
	case EventTypeMetric:
		e = ed.readMetricEvent(iter)
	case EventTypeSpan:
		e = ed.readSpanEvent(iter)
	default:
		return nil, fmt.Errorf("unknown event type: %d", int(t))
	}
	if err := ed.result(iter); err != nil {
		return nil, err
	}
	return e, nil
}

var errMissingType = errors.New("missing event type")

func peekEventType(raw []byte) (EventType, error) {
	d := &groupDecoder{}
	iter := jsoniter.ParseBytes(jsonConfig, raw)
	t, found := EventTypeNone, false
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if field != jsonType {
			iter.Skip()
			return true
		}
		v, ok := d.readInt64(iter, field)
		t, found = EventType(v), ok
		return ok
	})
	if err := d.result(iter); err != nil {
		return EventTypeNone, err
	}
	if !found {
		return EventTypeNone, errMissingType
	}
	return t, nil
}

// readTimestamp handles the fields shared by every event kind. It reports
// whether field was one of them and, if so, whether it was read successfully.
func (d *groupDecoder) readTimestamp(iter *jsoniter.Iterator, field string, e Event) (handled, ok bool) {
	switch field {
	case jsonType:
		iter.Skip()
		return true, true
	case jsonTimestamp:
		sec, ok := d.readInt64(iter, field)
		e.SetTimestamp(sec, e.TimestampNanosecond())
		return true, ok
	case jsonTimestampNanosecond:
		nsec, ok := d.readInt64(iter, field)
		if ok && (nsec < 0 || nsec >= 1e9) {
			return true, d.fail("%s: out of range [0, 1e9): %d", field, nsec)
		}
		e.SetTimestamp(e.Timestamp(), uint32(nsec))
		return true, ok
	}
	return false, false
}

func (d *groupDecoder) readLogEvent(iter *jsoniter.Iterator) *LogEvent {
	e := NewLogEvent(d.g.arena)
	e.wire.decoded = true
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if !d.see(&e.wire, iter, field, logSchema) {
			return false
		}
		if handled, ok := d.readTimestamp(iter, field, e); handled {
			return ok
		}
		if field == jsonContents {
			return d.readStringMap(iter, field, e.SetContent)
		}
		iter.Skip()
		return true
	})
	return e
}

func (d *groupDecoder) readMetricEvent(iter *jsoniter.Iterator) *MetricEvent {
	e := NewMetricEvent(d.g.arena)
	e.wire.decoded = true
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if !d.see(&e.wire, iter, field, metricSchema) {
			return false
		}
		if handled, ok := d.readTimestamp(iter, field, e); handled {
			return ok
		}
		switch field {
		case jsonName:
			return d.readString(iter, field, e.SetName)
		case jsonValue:
			return d.readMetricValue(iter, e)
		case jsonTags:
			return d.readStringMap(iter, field, e.tags.Set)
		default:
			iter.Skip()
			return true
		}
	})
	return e
}

func (d *groupDecoder) readMetricValue(iter *jsoniter.Iterator, e *MetricEvent) bool {
	if t := iter.WhatIsNext(); t != jsoniter.ObjectValue {
		return d.fail("%s: expected object, got %s", jsonValue, valueTypeName(t))
	}
	var (
		kind   string
		detail float64
	)
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		switch field {
		case jsonType:
			return d.readString(iter, jsonValue+"."+field, func(s string) { kind = s })
		case jsonDetail:
			if t := iter.WhatIsNext(); t != jsoniter.NumberValue {
				return d.fail("%s.%s: expected number, got %s", jsonValue, field, valueTypeName(t))
			}
			detail = iter.ReadFloat64()
			return iter.Error == nil
		default:
			iter.Skip()
			return true
		}
	})
	if d.err != nil || iter.Error != nil {
		return false
	}
	if kind != untypedSingleValueType {
		return d.fail("%s: unknown metric value type: %q", jsonValue, kind)
	}
	e.SetValue(UntypedSingleValue{Value: detail})
	return true
}

func (d *groupDecoder) readSpanEvent(iter *jsoniter.Iterator) *SpanEvent {
	e := NewSpanEvent(d.g.arena)
	e.wire.decoded = true
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if !d.see(&e.wire, iter, field, spanSchema) {
			return false
		}
		if handled, ok := d.readTimestamp(iter, field, e); handled {
			return ok
		}
		switch field {
		case jsonTraceID:
			return d.readString(iter, field, e.SetTraceID)
		case jsonSpanID:
			return d.readString(iter, field, e.SetSpanID)
		case jsonTraceState:
			return d.readString(iter, field, e.SetTraceState)
		case jsonParentSpanID:
			return d.readString(iter, field, e.SetParentSpanID)
		case jsonName:
			return d.readString(iter, field, e.SetName)
		case jsonKind:
			v, ok := d.readInt64(iter, field)
			e.SetKind(SpanKind(v))
			return ok
		case jsonStatus:
			v, ok := d.readInt64(iter, field)
			e.SetStatus(SpanStatus(v))
			return ok
		case jsonStartTimeNs:
			v, ok := d.readUint64(iter, field)
			e.SetStartTimeNs(v)
			return ok
		case jsonEndTimeNs:
			v, ok := d.readUint64(iter, field)
			e.SetEndTimeNs(v)
			return ok
		case jsonTags:
			return d.readStringMap(iter, field, e.tags.Set)
		case jsonScopeTags:
			return d.readStringMap(iter, field, e.scopeTags.Set)
		case jsonEvents:
			return d.readObjects(iter, field, func(iter *jsoniter.Iterator) bool {
				return d.readSpanInnerEvent(iter, e.AddEvent())
			})
		case jsonLinks:
			return d.readObjects(iter, field, func(iter *jsoniter.Iterator) bool {
				return d.readSpanLink(iter, e.AddLink())
			})
		default:
			iter.Skip()
			return true
		}
	})
	return e
}

func (d *groupDecoder) readSpanInnerEvent(iter *jsoniter.Iterator, ie *SpanInnerEvent) bool {
	ie.wire.decoded = true
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if !d.see(&ie.wire, iter, field, innerEventSchema) {
			return false
		}
		switch field {
		case jsonTimestampNs:
			v, ok := d.readUint64(iter, field)
			ie.SetTimestampNs(v)
			return ok
		case jsonName:
			return d.readString(iter, field, ie.SetName)
		case jsonTags:
			return d.readStringMap(iter, field, ie.tags.Set)
		default:
			iter.Skip()
			return true
		}
	})
	return d.err == nil && iter.Error == nil
}

func (d *groupDecoder) readSpanLink(iter *jsoniter.Iterator, l *SpanLink) bool {
	l.wire.decoded = true
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if !d.see(&l.wire, iter, field, linkSchema) {
			return false
		}
		switch field {
		case jsonTraceID:
			return d.readString(iter, field, l.SetTraceID)
		case jsonSpanID:
			return d.readString(iter, field, l.SetSpanID)
		case jsonTraceState:
			return d.readString(iter, field, l.SetTraceState)
		case jsonTags:
			return d.readStringMap(iter, field, l.tags.Set)
		default:
			iter.Skip()
			return true
		}
	})
	return d.err == nil && iter.Error == nil
}

// readObjects reads an array of objects, calling fn positioned at each one.
func (d *groupDecoder) readObjects(iter *jsoniter.Iterator, field string, fn func(*jsoniter.Iterator) bool) bool {
	if t := iter.WhatIsNext(); t != jsoniter.ArrayValue {
		return d.fail("%s: expected array, got %s", field, valueTypeName(t))
	}
	iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
		if t := iter.WhatIsNext(); t != jsoniter.ObjectValue {
			return d.fail("%s: expected array of objects, got %s", field, valueTypeName(t))
		}
		return fn(iter)
	})
	return d.err == nil && iter.Error == nil
}

// readStringMap reads a flat string→string object, passing each pair to set.
// Non-string values are rejected rather than coerced; null is read as empty.
func (d *groupDecoder) readStringMap(iter *jsoniter.Iterator, field string, set func(k, v string)) bool {
	switch t := iter.WhatIsNext(); t {
	case jsoniter.NilValue:
		iter.Skip()
		return true
	case jsoniter.ObjectValue:
	default:
		return d.fail("%s: expected object, got %s", field, valueTypeName(t))
	}
	iter.ReadMapCB(func(iter *jsoniter.Iterator, key string) bool {
		if t := iter.WhatIsNext(); t != jsoniter.StringValue {
			return d.fail("%s.%s: expected string, got %s", field, key, valueTypeName(t))
		}
		set(key, iter.ReadString())
		return iter.Error == nil
	})
	return d.err == nil && iter.Error == nil
}

func (d *groupDecoder) readString(iter *jsoniter.Iterator, field string, set func(string)) bool {
	if t := iter.WhatIsNext(); t != jsoniter.StringValue {
		return d.fail("%s: expected string, got %s", field, valueTypeName(t))
	}
	set(iter.ReadString())
	return iter.Error == nil
}

func (d *groupDecoder) readInt64(iter *jsoniter.Iterator, field string) (int64, bool) {
	if t := iter.WhatIsNext(); t != jsoniter.NumberValue {
		return 0, d.fail("%s: expected integer, got %s", field, valueTypeName(t))
	}
	n := iter.ReadNumber()
	if iter.Error != nil {
		return 0, false
	}
	v, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0, d.fail("%s: expected integer, got %s", field, n)
	}
	return v, true
}

func (d *groupDecoder) readUint64(iter *jsoniter.Iterator, field string) (uint64, bool) {
	if t := iter.WhatIsNext(); t != jsoniter.NumberValue {
		return 0, d.fail("%s: expected unsigned integer, got %s", field, valueTypeName(t))
	}
	n := iter.ReadNumber()
	if iter.Error != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(string(n), 10, 64)
	if err != nil {
		return 0, d.fail("%s: expected unsigned integer, got %s", field, n)
	}
	return v, true
}

func valueTypeName(t jsoniter.ValueType) string {
	switch t {
	case jsoniter.StringValue:
		return "string"
	case jsoniter.NumberValue:
		return "number"
	case jsoniter.NilValue:
		return "null"
	case jsoniter.BoolValue:
		return "bool"
	case jsoniter.ArrayValue:
		return "array"
	case jsoniter.ObjectValue:
		return "object"
	default:
		return "invalid value"
	}
}
