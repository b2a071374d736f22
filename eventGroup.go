package eventgroup

import "github.com/cespare/xxhash/v2"

// EventGroup is the unit handed between pipeline stages: an ordered sequence
// of events plus batch-level metadata and tags, all sharing one Arena.
//
// Metadata is pipeline-internal context (e.g. the source file path); tags are
// user-facing dimensional labels that outputs attach to every event.
//
// A group has exactly one owner at a time and provides no internal locking.
// Stages hand it over by passing the pointer on and not touching it again, or
// move only the events out with SwapEvents.
type EventGroup struct {
	arena    *Arena
	events   []Event
	metadata *StringMap
	tags     *StringMap
	wire     presence
}

// NewEventGroup creates an empty group backed by a. If a is nil, a new Arena
// with the default chunk size is created.
func NewEventGroup(a *Arena) *EventGroup {
	if a == nil {
		a = NewArena(0)
	}
	return &EventGroup{
		arena:    a,
		metadata: newStringMap(a),
		tags:     newStringMap(a),
	}
}

// Arena returns the arena shared by the group and its events, so downstream
// stages can construct further events against the same storage.
func (g *EventGroup) Arena() *Arena { return g.arena }

// AddEvent appends e to the event sequence. The event should have been built
// against g.Arena(), or an arena that the caller keeps alive as long as g;
// this is not checked.
func (g *EventGroup) AddEvent(e Event) {
	g.events = append(g.events, e)
}

// AddLogEvent creates a LogEvent on the group's arena and appends it.
func (g *EventGroup) AddLogEvent() *LogEvent {
	e := NewLogEvent(g.arena)
	g.events = append(g.events, e)
	return e
}

// AddMetricEvent creates a MetricEvent on the group's arena and appends it.
func (g *EventGroup) AddMetricEvent() *MetricEvent {
	e := NewMetricEvent(g.arena)
	g.events = append(g.events, e)
	return e
}

// AddSpanEvent creates a SpanEvent on the group's arena and appends it.
func (g *EventGroup) AddSpanEvent() *SpanEvent {
	e := NewSpanEvent(g.arena)
	g.events = append(g.events, e)
	return e
}

// Events returns the events in insertion order. The slice is owned by the
// group; callers may modify events in place but must not append to it.
func (g *EventGroup) Events() []Event { return g.events }

// Len returns the number of events.
func (g *EventGroup) Len() int { return len(g.events) }

// SwapEvents moves the group's events into *out in O(1), without copying any
// event. Afterwards *out holds exactly what the group held, in the same order,
// and the group's sequence is empty. Whatever *out held before is dropped
// from it but left untouched, so a batch handed off earlier stays intact even
// when out is reused.
func (g *EventGroup) SwapEvents(out *[]Event) {
	*out, g.events = g.events, nil
}

// SetMetadata copies key and value into the arena and stores them.
func (g *EventGroup) SetMetadata(key, value string) { g.metadata.Set(key, value) }

// SetMetadataNoCopy stores key and value without allocating. Both must be
// backed by storage that outlives the group, typically StringBuffer.View().
func (g *EventGroup) SetMetadataNoCopy(key, value StringView) { g.metadata.SetNoCopy(key, value) }

func (g *EventGroup) HasMetadata(key string) bool { return g.metadata.Has(key) }

// GetMetadata returns the value for key, or an empty view if absent.
func (g *EventGroup) GetMetadata(key string) StringView { return g.metadata.Get(key) }

// DelMetadata removes key; a no-op if it is absent.
func (g *EventGroup) DelMetadata(key string) { g.metadata.Del(key) }

func (g *EventGroup) Metadata() *StringMap { return g.metadata }

// SetTag copies key and value into the arena and stores them.
func (g *EventGroup) SetTag(key, value string) { g.tags.Set(key, value) }

// SetTagNoCopy stores key and value without allocating. Both must be backed
// by storage that outlives the group.
func (g *EventGroup) SetTagNoCopy(key, value StringView) { g.tags.SetNoCopy(key, value) }

func (g *EventGroup) HasTag(key string) bool { return g.tags.Has(key) }

// GetTag returns the value for key, or an empty view if absent.
func (g *EventGroup) GetTag(key string) StringView { return g.tags.Get(key) }

// DelTag removes key; a no-op if it is absent.
func (g *EventGroup) DelTag(key string) { g.tags.Del(key) }

func (g *EventGroup) Tags() *StringMap { return g.tags }

// TagsFingerprint returns a hash of the group's tags that does not depend on
// insertion order. Groups with equal tags belong to the same stream.
func (g *EventGroup) TagsFingerprint() uint64 {
	d := xxhash.New()
	for _, k := range g.tags.SortedKeys() {
		_, _ = d.WriteString(string(k))
		_, _ = d.Write(sep)
		_, _ = d.WriteString(string(g.tags.Get(string(k))))
		_, _ = d.Write(sep)
	}
	return d.Sum64()
}

var sep = []byte{0xff}

// DataSize returns the number of string bytes referenced by the group's
// events, metadata, and tags.
func (g *EventGroup) DataSize() int {
	n := g.metadata.dataSize() + g.tags.dataSize()
	for _, e := range g.events {
		n += e.DataSize()
	}
	return n
}
