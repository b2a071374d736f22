package eventgroup

// SpanKind follows the OpenTelemetry span kind numbering.
type SpanKind int

const (
	SpanKindUnspecified SpanKind = iota
	SpanKindInternal
	SpanKindServer
	SpanKindClient
	SpanKindProducer
	SpanKindConsumer
)

func (k SpanKind) String() string {
	switch k {
	case SpanKindInternal:
		return "internal"
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	default:
		return "unspecified"
	}
}

// SpanStatus follows the OpenTelemetry status code numbering.
type SpanStatus int

const (
	SpanStatusUnset SpanStatus = iota
	SpanStatusOk
	SpanStatusError
)

func (s SpanStatus) String() string {
	switch s {
	case SpanStatusOk:
		return "ok"
	case SpanStatusError:
		return "error"
	default:
		return "unset"
	}
}

// SpanInnerEvent is a timestamped annotation recorded during a span.
type SpanInnerEvent struct {
	arena       *Arena
	timestampNs uint64
	name        StringView
	tags        *StringMap
	wire        presence
}

func (e *SpanInnerEvent) TimestampNs() uint64 { return e.timestampNs }

func (e *SpanInnerEvent) SetTimestampNs(ns uint64) { e.timestampNs = ns }

func (e *SpanInnerEvent) Name() StringView { return e.name }

func (e *SpanInnerEvent) SetName(name string) { e.name = e.arena.CopyString(name).View() }

func (e *SpanInnerEvent) SetNameNoCopy(name StringView) { e.name = name }

func (e *SpanInnerEvent) Tags() *StringMap { return e.tags }

// SpanLink references a span in another (or the same) trace.
type SpanLink struct {
	arena      *Arena
	traceID    StringView
	spanID     StringView
	traceState StringView
	tags       *StringMap
	wire       presence
}

func (l *SpanLink) TraceID() StringView { return l.traceID }

func (l *SpanLink) SetTraceID(id string) { l.traceID = l.arena.CopyString(id).View() }

func (l *SpanLink) SpanID() StringView { return l.spanID }

func (l *SpanLink) SetSpanID(id string) { l.spanID = l.arena.CopyString(id).View() }

func (l *SpanLink) TraceState() StringView { return l.traceState }

func (l *SpanLink) SetTraceState(s string) { l.traceState = l.arena.CopyString(s).View() }

func (l *SpanLink) Tags() *StringMap { return l.tags }

// SpanEvent is one trace span.
type SpanEvent struct {
	eventBase
	traceID      StringView
	spanID       StringView
	traceState   StringView
	parentSpanID StringView
	name         StringView
	kind         SpanKind
	startTimeNs  uint64
	endTimeNs    uint64
	status       SpanStatus
	tags         *StringMap
	scopeTags    *StringMap
	events       []*SpanInnerEvent
	links        []*SpanLink
}

// NewSpanEvent creates an empty SpanEvent whose string data is copied into a.
func NewSpanEvent(a *Arena) *SpanEvent {
	return &SpanEvent{
		eventBase: eventBase{arena: a},
		tags:      newStringMap(a),
		scopeTags: newStringMap(a),
	}
}

func (e *SpanEvent) Type() EventType { return EventTypeSpan }

func (e *SpanEvent) TraceID() StringView { return e.traceID }

func (e *SpanEvent) SetTraceID(id string) { e.traceID = e.arena.CopyString(id).View() }

func (e *SpanEvent) SpanID() StringView { return e.spanID }

func (e *SpanEvent) SetSpanID(id string) { e.spanID = e.arena.CopyString(id).View() }

func (e *SpanEvent) TraceState() StringView { return e.traceState }

func (e *SpanEvent) SetTraceState(s string) { e.traceState = e.arena.CopyString(s).View() }

func (e *SpanEvent) ParentSpanID() StringView { return e.parentSpanID }

func (e *SpanEvent) SetParentSpanID(id string) { e.parentSpanID = e.arena.CopyString(id).View() }

func (e *SpanEvent) Name() StringView { return e.name }

func (e *SpanEvent) SetName(name string) { e.name = e.arena.CopyString(name).View() }

func (e *SpanEvent) SetNameNoCopy(name StringView) { e.name = name }

func (e *SpanEvent) Kind() SpanKind { return e.kind }

func (e *SpanEvent) SetKind(k SpanKind) { e.kind = k }

func (e *SpanEvent) StartTimeNs() uint64 { return e.startTimeNs }

func (e *SpanEvent) SetStartTimeNs(ns uint64) { e.startTimeNs = ns }

func (e *SpanEvent) EndTimeNs() uint64 { return e.endTimeNs }

func (e *SpanEvent) SetEndTimeNs(ns uint64) { e.endTimeNs = ns }

func (e *SpanEvent) Status() SpanStatus { return e.status }

func (e *SpanEvent) SetStatus(s SpanStatus) { e.status = s }

func (e *SpanEvent) SetTag(key, value string) { e.tags.Set(key, value) }

func (e *SpanEvent) SetTagNoCopy(key, value StringView) { e.tags.SetNoCopy(key, value) }

func (e *SpanEvent) HasTag(key string) bool { return e.tags.Has(key) }

func (e *SpanEvent) GetTag(key string) StringView { return e.tags.Get(key) }

func (e *SpanEvent) DelTag(key string) { e.tags.Del(key) }

func (e *SpanEvent) Tags() *StringMap { return e.tags }

// ScopeTags returns the instrumentation scope attributes.
func (e *SpanEvent) ScopeTags() *StringMap { return e.scopeTags }

// AddEvent appends a new, empty inner event and returns it.
func (e *SpanEvent) AddEvent() *SpanInnerEvent {
	ie := &SpanInnerEvent{arena: e.arena, tags: newStringMap(e.arena)}
	e.events = append(e.events, ie)
	return ie
}

func (e *SpanEvent) Events() []*SpanInnerEvent { return e.events }

// AddLink appends a new, empty link and returns it.
func (e *SpanEvent) AddLink() *SpanLink {
	l := &SpanLink{arena: e.arena, tags: newStringMap(e.arena)}
	e.links = append(e.links, l)
	return l
}

func (e *SpanEvent) Links() []*SpanLink { return e.links }

func (e *SpanEvent) DataSize() int {
	n := len(e.traceID) + len(e.spanID) + len(e.traceState) + len(e.parentSpanID) + len(e.name)
	n += e.tags.dataSize() + e.scopeTags.dataSize()
	for _, ie := range e.events {
		n += len(ie.name) + ie.tags.dataSize()
	}
	for _, l := range e.links {
		n += len(l.traceID) + len(l.spanID) + len(l.traceState) + l.tags.dataSize()
	}
	return n
}
