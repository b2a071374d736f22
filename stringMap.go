package eventgroup

import "sort"

// StringMap is an unordered key→value map of views whose copies are made in
// one Arena. Keys are unique and compared by exact byte content; the last
// write for a key wins. The zero value is not usable, use newStringMap.
type StringMap struct {
	arena *Arena
	m     map[StringView]StringView
}

func newStringMap(a *Arena) *StringMap {
	return &StringMap{arena: a}
}

// Set copies key and value into the arena and stores the copies, so the map
// does not depend on the caller's strings after the call returns.
func (m *StringMap) Set(key, value string) {
	k := m.arena.CopyString(key).View()
	v := m.arena.CopyString(value).View()
	m.SetNoCopy(k, v)
}

// SetNoCopy stores key and value as given, without allocating in the arena.
// The caller guarantees the viewed bytes stay unchanged for the lifetime of
// the map (they are usually arena-owned already).
func (m *StringMap) SetNoCopy(key, value StringView) {
	if m.m == nil {
		m.m = make(map[StringView]StringView)
	}
	// drop a previous entry first so its old key view is not retained
	delete(m.m, key)
	m.m[key] = value
}

// Has reports whether key is present.
func (m *StringMap) Has(key string) bool {
	_, ok := m.m[StringView(key)]
	return ok
}

// Get returns the value for key, or an empty view if key is absent.
func (m *StringMap) Get(key string) StringView {
	return m.m[StringView(key)]
}

// Del removes key. Removing an absent key is a no-op.
func (m *StringMap) Del(key string) {
	delete(m.m, StringView(key))
}

// Len returns the number of entries.
func (m *StringMap) Len() int {
	return len(m.m)
}

// Range calls fn for each entry in unspecified order until fn returns false.
func (m *StringMap) Range(fn func(key, value StringView) bool) {
	for k, v := range m.m {
		if !fn(k, v) {
			return
		}
	}
}

// SortedKeys returns the keys in byte order.
func (m *StringMap) SortedKeys() []StringView {
	keys := make([]StringView, 0, len(m.m))
	for k := range m.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (m *StringMap) dataSize() int {
	n := 0
	for k, v := range m.m {
		n += len(k) + len(v)
	}
	return n
}
