package eventgroup

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
)

// Record keys used when flattening metrics into Fluent records, shared with
// the Prometheus decoders of the collecting agent.
const (
	metricNameKey = "__name__"
	labelsKey     = "__labels__"
	timeNanoKey   = "__time_nano__"
	valueKey      = "__value__"
	tagKeyPrefix  = "__tag__:"

	labelSep    = "|"
	labelKVSep  = "#$#"
	attrsKey    = "attributes"
	optSize     = "size"
	optChunk    = "chunk"
	optCompress = "compressed"
)

var errEmptyGroup = errors.New("cannot encode an empty event group")

// EncoderPool defines a shared *Encoder pool, used to minimize heap
// allocations.
type EncoderPool struct {
	p sync.Pool
	*EncoderOptions
	tag     string
	prelude []byte
}

// NewEncoderPool creates a shared *Encoder pool that returns Encoders with the
// message prelude, the outer msgpack array and the tag, pre-encoded. The
// prelude is encoded once per pool and only copied into each new Encoder.
func NewEncoderPool(tag string, opts *EncoderOptions) (*EncoderPool, error) {
	if len(tag) == 0 {
		return nil, errors.New("valid tag required")
	}

	if opts == nil {
		opts = DefaultEncoderOptions()
	} else {
		opts.resolve()
	}

	ep := &EncoderPool{EncoderOptions: opts, tag: tag}

	var arrayLen int
	switch opts.Mode {
	case MessageMode:
		arrayLen = 3 // tag, time, record
		if opts.RequestACKs {
			arrayLen++
		}
	case ForwardMode, PackedForwardMode:
		arrayLen = 2 // tag, entries
		if opts.RequestACKs {
			arrayLen++
		}
	case CompressedPackedForwardMode:
		arrayLen = 3 // tag, entries, option{compressed}
	}

	enc := NewEncoder(minBufferCap)
	if err := enc.EncodeArrayLen(arrayLen); err != nil {
		return nil, fmt.Errorf("failed to encode prelude array len: %w", err)
	}
	if err := enc.EncodeString(tag); err != nil {
		return nil, fmt.Errorf("failed to encode prelude tag: %w", err)
	}
	ep.prelude = append([]byte(nil), enc.Bytes()...)

	ep.p = sync.Pool{
		New: func() any {
			e := NewEncoder(opts.NewBufferCap)
			e.p = ep
			e.Write(ep.prelude)
			return e
		},
	}

	return ep, nil
}

// Tag returns the Fluent tag written into every message of the pool.
func (p *EncoderPool) Tag() string { return p.tag }

// Get returns an Encoder with the prelude pre-rendered.
func (p *EncoderPool) Get() *Encoder {
	return p.p.Get().(*Encoder)
}

// Put resets an Encoder and returns it to the shared pool.
func (p *EncoderPool) Put(e *Encoder) {

	// drop if the buffer got too large
	if e.Buffer.Cap() > p.MaxBufferCap {
		return
	}

	// reset for the next usage
	e.Buffer.Truncate(len(p.prelude))
	e.Encoder.Reset(e.Buffer)
	e.nEvents = 0
	e.nMessages = 0
	e.chunks = e.chunks[:0]
	e.fingerprint = 0

	p.p.Put(e)
}

// Encoder provides a msgpack encoder and its underlying bytes.Buffer, plus
// what the Client needs to know about the group encoded into it.
type Encoder struct {
	*bytes.Buffer
	*msgpack.Encoder
	p *EncoderPool

	nEvents     int
	nMessages   int
	chunks      []string
	fingerprint uint64

	// scratch space for the packed modes, lazily created
	entries *Encoder
	zbuf    *bytes.Buffer
	zw      *gzip.Writer
	tags    []recordTag
}

// NewEncoder returns a newly allocated Encoder that is not part of a pool.
func NewEncoder(bufferCap int) *Encoder {
	buf := bytes.NewBuffer(make([]byte, 0, bufferCap))
	return &Encoder{
		Buffer:  buf,
		Encoder: msgpack.NewEncoder(buf),
	}
}

// Free returns the encoder to the shared pool after eagerly resetting it.
func (e *Encoder) Free() {
	if e.p != nil {
		e.p.Put(e)
	}
}

// Events returns the number of events encoded into e.
func (e *Encoder) Events() int { return e.nEvents }

// Messages returns the number of Fluent messages encoded into e. It is the
// number of events in Message mode, 1 otherwise.
func (e *Encoder) Messages() int { return e.nMessages }

// Chunks returns the chunk ids of the ACK requests carried by the messages,
// in message order. It is empty unless RequestACKs is set.
func (e *Encoder) Chunks() []string { return e.chunks }

// Fingerprint returns the tags fingerprint of the encoded group.
func (e *Encoder) Fingerprint() uint64 { return e.fingerprint }

// Mode returns the Fluent event mode of the Encoder.
func (e *Encoder) Mode() eventMode { return e.p.Mode }

// UseCoarseTimestamps controls whether legacy (unix epoch) timestamps are used.
func (e *Encoder) UseCoarseTimestamps() bool { return e.p.UseCoarseTimestamps }

// RequestACK controls whether explicit ACKS are requested from the server.
func (e *Encoder) RequestACK() bool { return e.p.RequestACKs }

// EncodeEventTime encodes an event timestamp as a Fluent EventTime, or as
// Unix epoch seconds if the pool is set to use coarse timestamps.
func (e *Encoder) EncodeEventTime(sec int64, nsec uint32) error {
	if e.p != nil && e.p.UseCoarseTimestamps {
		if err := e.EncodeInt64(sec); err != nil {
			return fmt.Errorf("failed to encode timestamp as int64: %w", err)
		}
		return nil
	}
	t := NewEventTime(sec, nsec)
	if err := e.Encode(&t); err != nil {
		return fmt.Errorf("failed to encode timestamp as EventTime: %w", err)
	}
	return nil
}

// EncodeGroup writes g in the pool's event mode, reading every string
// straight from the group's views. An Encoder holds a single group; call it
// once per Get.
func (e *Encoder) EncodeGroup(g *EventGroup) error {
	if e.p == nil {
		return errors.New("EncodeGroup requires an Encoder from an EncoderPool")
	}
	events := g.Events()
	if len(events) == 0 {
		return errEmptyGroup
	}

	e.fingerprint = g.TagsFingerprint()
	e.collectTags(g)
	errs := new(encErrs)

	switch e.p.Mode {
	case MessageMode:
		for i, ev := range events {
			if i > 0 {
				e.Write(e.p.prelude)
			}
			errs.join("message entry", e.encodeEntry(ev))
			if e.p.RequestACKs {
				errs.join("message option", e.encodeOption(0))
			}
			e.nMessages++
		}

	case ForwardMode:
		errs.join("entries length", e.EncodeArrayLen(len(events)))
		for _, ev := range events {
			errs.join("forward entry", e.EncodeArrayLen(2))
			errs.join("forward entry", e.encodeEntry(ev))
		}
		if e.p.RequestACKs {
			errs.join("forward option", e.encodeOption(len(events)))
		}
		e.nMessages = 1

	case PackedForwardMode, CompressedPackedForwardMode:
		s := e.scratch()
		for _, ev := range events {
			errs.join("packed entry", s.EncodeArrayLen(2))
			errs.join("packed entry", s.encodeEntry(ev))
		}
		stream := s.Bytes()
		if e.p.Mode == CompressedPackedForwardMode {
			z, err := e.gzip(stream)
			errs.join("compressed entries", err)
			stream = z
		}
		errs.join("packed entries", e.EncodeBytes(stream))
		if e.p.Mode == CompressedPackedForwardMode || e.p.RequestACKs {
			errs.join("packed option", e.encodeOption(len(events)))
		}
		e.nMessages = 1
	}

	e.nEvents = len(events)
	return errs.err
}

// recordTag is a group tag as written into each record.
type recordTag struct {
	key   string
	value StringView
}

func (e *Encoder) collectTags(g *EventGroup) {
	e.tags = e.tags[:0]
	if e.p.OmitTags {
		return
	}
	for _, k := range g.Tags().SortedKeys() {
		e.tags = append(e.tags, recordTag{key: tagKeyPrefix + string(k), value: g.GetTag(string(k))})
	}
}

// encodeEntry writes the time and record of one event.
func (e *Encoder) encodeEntry(ev Event) error {
	if err := e.EncodeEventTime(ev.Timestamp(), ev.TimestampNanosecond()); err != nil {
		return err
	}

	errs := new(encErrs)
	switch ev := ev.(type) {
	case *LogEvent:
		errs.join("log record length", e.EncodeMapLen(len(ev.contents)+len(e.tags)))
		for _, c := range ev.contents {
			errs.join("log content key", e.EncodeString(string(c.Key)))
			errs.join("log content value", e.EncodeString(string(c.Value)))
		}

	case *MetricEvent:
		n := 3
		if ev.value != nil {
			n++
		}
		errs.join("metric record length", e.EncodeMapLen(n+len(e.tags)))
		errs.join("metric name", e.encodeKV(metricNameKey, string(ev.name)))
		errs.join("metric labels", e.encodeKV(labelsKey, metricLabels(ev.tags)))
		nanos := ev.Timestamp()*1e9 + int64(ev.TimestampNanosecond())
		errs.join("metric time", e.encodeKV(timeNanoKey, strconv.FormatInt(nanos, 10)))
		switch v := ev.value.(type) {
		case nil:
		case UntypedSingleValue:
			errs.join("metric value", e.encodeKV(valueKey, strconv.FormatFloat(v.Value, 'g', -1, 64)))
		default:
			errs.join("metric value", fmt.Errorf("unknown metric value: %T", v))
		}

	case *SpanEvent:
		errs.join("span record", e.encodeSpanRecord(ev))

	default:
		return fmt.Errorf("unknown event kind: %T", ev)
	}

	for _, t := range e.tags {
		errs.join("group tag", e.encodeKV(t.key, string(t.value)))
	}
	return errs.err
}

func (e *Encoder) encodeSpanRecord(ev *SpanEvent) error {
	n := 8
	if len(ev.traceState) > 0 {
		n++
	}
	if ev.tags.Len() > 0 {
		n++
	}
	if len(ev.events) > 0 {
		n++
	}
	if len(ev.links) > 0 {
		n++
	}

	errs := new(encErrs)
	errs.join("span record length", e.EncodeMapLen(n+len(e.tags)))
	errs.join("trace id", e.encodeKV(jsonTraceID, string(ev.traceID)))
	errs.join("span id", e.encodeKV(jsonSpanID, string(ev.spanID)))
	errs.join("parent span id", e.encodeKV(jsonParentSpanID, string(ev.parentSpanID)))
	errs.join("span name", e.encodeKV(jsonName, string(ev.name)))
	errs.join("span kind", e.encodeKV(jsonKind, ev.kind.String()))
	errs.join("span status", e.encodeKV(jsonStatus, ev.status.String()))
	errs.join("span start", e.EncodeString(jsonStartTimeNs))
	errs.join("span start", e.EncodeUint64(ev.startTimeNs))
	errs.join("span end", e.EncodeString(jsonEndTimeNs))
	errs.join("span end", e.EncodeUint64(ev.endTimeNs))
	if len(ev.traceState) > 0 {
		errs.join("trace state", e.encodeKV(jsonTraceState, string(ev.traceState)))
	}
	if ev.tags.Len() > 0 {
		errs.join("span attributes", e.EncodeString(attrsKey))
		errs.join("span attributes", e.encodeStringMap(ev.tags))
	}
	if len(ev.events) > 0 {
		errs.join("span events", e.EncodeString(jsonEvents))
		errs.join("span events", e.EncodeArrayLen(len(ev.events)))
		for _, ie := range ev.events {
			errs.join("span event", e.EncodeMapLen(3))
			errs.join("span event time", e.EncodeString(jsonTimestampNs))
			errs.join("span event time", e.EncodeUint64(ie.timestampNs))
			errs.join("span event name", e.encodeKV(jsonName, string(ie.name)))
			errs.join("span event attributes", e.EncodeString(attrsKey))
			errs.join("span event attributes", e.encodeStringMap(ie.tags))
		}
	}
	if len(ev.links) > 0 {
		errs.join("span links", e.EncodeString(jsonLinks))
		errs.join("span links", e.EncodeArrayLen(len(ev.links)))
		for _, l := range ev.links {
			errs.join("span link", e.EncodeMapLen(4))
			errs.join("span link trace id", e.encodeKV(jsonTraceID, string(l.traceID)))
			errs.join("span link span id", e.encodeKV(jsonSpanID, string(l.spanID)))
			errs.join("span link trace state", e.encodeKV(jsonTraceState, string(l.traceState)))
			errs.join("span link attributes", e.EncodeString(attrsKey))
			errs.join("span link attributes", e.encodeStringMap(l.tags))
		}
	}
	return errs.err
}

func (e *Encoder) encodeKV(k, v string) error {
	if err := e.EncodeString(k); err != nil {
		return err
	}
	return e.EncodeString(v)
}

func (e *Encoder) encodeStringMap(m *StringMap) error {
	errs := new(encErrs)
	errs.join("map length", e.EncodeMapLen(m.Len()))
	for _, k := range m.SortedKeys() {
		errs.join("map entry", e.encodeKV(string(k), string(m.m[k])))
	}
	return errs.err
}

// encodeOption writes the trailing option map. size is the number of events
// carried by a forward-mode message, and ignored in Message mode.
func (e *Encoder) encodeOption(size int) error {
	n := 0
	if e.p.RequestACKs {
		n++
		if e.p.Mode != MessageMode {
			n++
		}
	}
	if e.p.Mode == CompressedPackedForwardMode {
		n++
	}

	errs := new(encErrs)
	errs.join("option length", e.EncodeMapLen(n))
	if e.p.RequestACKs {
		if e.p.Mode != MessageMode {
			errs.join("option size", e.EncodeString(optSize))
			errs.join("option size", e.EncodeInt(int64(size)))
		}
		id := uuid.New()
		chunk := base64.StdEncoding.EncodeToString(id[:])
		e.chunks = append(e.chunks, chunk)
		errs.join("option chunk", e.encodeKV(optChunk, chunk))
	}
	if e.p.Mode == CompressedPackedForwardMode {
		errs.join("option compressed", e.encodeKV(optCompress, "gzip"))
	}
	return errs.err
}

// scratch returns the reset scratch Encoder used to build packed entries. It
// shares the parent's pool so timestamps follow the same options.
func (e *Encoder) scratch() *Encoder {
	if e.entries == nil {
		e.entries = NewEncoder(e.p.NewBufferCap)
		e.entries.p = e.p
	}
	e.entries.Buffer.Reset()
	e.entries.Encoder.Reset(e.entries.Buffer)
	e.entries.tags = e.tags
	return e.entries
}

func (e *Encoder) gzip(b []byte) ([]byte, error) {
	if e.zw == nil {
		e.zbuf = new(bytes.Buffer)
		e.zw = gzip.NewWriter(e.zbuf)
	} else {
		e.zbuf.Reset()
		e.zw.Reset(e.zbuf)
	}
	if _, err := e.zw.Write(b); err != nil {
		return nil, err
	}
	if err := e.zw.Close(); err != nil {
		return nil, err
	}
	return e.zbuf.Bytes(), nil
}

// metricLabels renders metric tags as "k1#$#v1|k2#$#v2", sorted by key.
func metricLabels(tags *StringMap) string {
	keys := tags.SortedKeys()
	if len(keys) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(labelSep)
		}
		b.WriteString(string(k))
		b.WriteString(labelKVSep)
		b.WriteString(string(tags.m[k]))
	}
	return b.String()
}

// encErrs collects serialization errors
type encErrs struct {
	err error
}

func (e *encErrs) join(target string, err error) (wasErr bool) {
	if err == nil {
		return false
	}
	e.err = errors.Join(e.err, fmt.Errorf("failed to encode %s: %w", target, err))
	return true
}
