package eventgroup

// MetricValue is the closed set of metric value shapes. UntypedSingleValue is
// currently the only one.
type MetricValue interface {
	metricValue()
}

// UntypedSingleValue is a single float sample without a declared metric type.
type UntypedSingleValue struct {
	Value float64
}

func (UntypedSingleValue) metricValue() {}

// MetricEvent is one metric sample: a name, a value, and dimension tags.
type MetricEvent struct {
	eventBase
	name  StringView
	value MetricValue
	tags  *StringMap
}

// NewMetricEvent creates an empty MetricEvent whose string data is copied
// into a.
func NewMetricEvent(a *Arena) *MetricEvent {
	return &MetricEvent{
		eventBase: eventBase{arena: a},
		tags:      newStringMap(a),
	}
}

func (e *MetricEvent) Type() EventType { return EventTypeMetric }

func (e *MetricEvent) Name() StringView { return e.name }

// SetName copies name into the arena and sets it.
func (e *MetricEvent) SetName(name string) {
	e.name = e.arena.CopyString(name).View()
}

func (e *MetricEvent) SetNameNoCopy(name StringView) { e.name = name }

// Value returns the metric value, nil if none has been set.
func (e *MetricEvent) Value() MetricValue { return e.value }

func (e *MetricEvent) SetValue(v MetricValue) { e.value = v }

func (e *MetricEvent) SetTag(key, value string) { e.tags.Set(key, value) }

func (e *MetricEvent) SetTagNoCopy(key, value StringView) { e.tags.SetNoCopy(key, value) }

func (e *MetricEvent) HasTag(key string) bool { return e.tags.Has(key) }

func (e *MetricEvent) GetTag(key string) StringView { return e.tags.Get(key) }

func (e *MetricEvent) DelTag(key string) { e.tags.Del(key) }

// Tags returns the metric's dimension tags.
func (e *MetricEvent) Tags() *StringMap { return e.tags }

func (e *MetricEvent) DataSize() int {
	return len(e.name) + e.tags.dataSize()
}
