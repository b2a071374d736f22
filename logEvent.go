package eventgroup

// LogContent is one key/value pair of a log record.
type LogContent struct {
	Key   StringView
	Value StringView
}

// LogEvent is a log record: ordered key/value contents plus a timestamp.
type LogEvent struct {
	eventBase
	contents []LogContent
	index    map[StringView]int
}

// NewLogEvent creates an empty LogEvent whose string data is copied into a.
func NewLogEvent(a *Arena) *LogEvent {
	return &LogEvent{eventBase: eventBase{arena: a}}
}

func (e *LogEvent) Type() EventType { return EventTypeLog }

// SetContent copies key and value into the arena and sets them. An existing
// key keeps its position and takes the new value.
func (e *LogEvent) SetContent(key, value string) {
	k := e.arena.CopyString(key).View()
	v := e.arena.CopyString(value).View()
	e.SetContentNoCopy(k, v)
}

// SetContentNoCopy sets key to value without copying either of them.
func (e *LogEvent) SetContentNoCopy(key, value StringView) {
	if i, ok := e.index[key]; ok {
		e.contents[i].Value = value
		return
	}
	if e.index == nil {
		e.index = make(map[StringView]int)
	}
	e.index[key] = len(e.contents)
	e.contents = append(e.contents, LogContent{Key: key, Value: value})
}

// GetContent returns the value for key, or an empty view if absent.
func (e *LogEvent) GetContent(key string) StringView {
	if i, ok := e.index[StringView(key)]; ok {
		return e.contents[i].Value
	}
	return ""
}

// HasContent reports whether key is present.
func (e *LogEvent) HasContent(key string) bool {
	_, ok := e.index[StringView(key)]
	return ok
}

// DelContent removes key, preserving the order of the remaining contents.
// Removing an absent key is a no-op.
func (e *LogEvent) DelContent(key string) {
	i, ok := e.index[StringView(key)]
	if !ok {
		return
	}
	delete(e.index, StringView(key))
	copy(e.contents[i:], e.contents[i+1:])
	e.contents[len(e.contents)-1] = LogContent{}
	e.contents = e.contents[:len(e.contents)-1]
	for j := i; j < len(e.contents); j++ {
		e.index[e.contents[j].Key] = j
	}
}

// Contents returns the contents in insertion order. The slice is owned by the
// event and must not be modified.
func (e *LogEvent) Contents() []LogContent { return e.contents }

// Len returns the number of contents.
func (e *LogEvent) Len() int { return len(e.contents) }

func (e *LogEvent) DataSize() int {
	n := 0
	for _, c := range e.contents {
		n += len(c.Key) + len(c.Value)
	}
	return n
}
