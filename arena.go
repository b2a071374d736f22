package eventgroup

import "unsafe"

// DefaultChunkSize is the default chunk size for new arenas (4 KiB), sized for
// one batch of log lines plus its metadata.
const DefaultChunkSize = 4 << 10

// Arena is an append-only byte allocator that owns the string data of one
// batch. It hands out ranges of large chunks and never moves or reuses a range
// once it has been issued, so every view derived from it stays valid for as
// long as the view itself is reachable.
//
// There is no Release or Reset. The Arena is dropped, together with all of its
// chunks, when the last group, event, or view referencing it is collected.
//
// An Arena is not goroutine-safe; it belongs to whichever pipeline stage
// currently owns the group built on it.
type Arena struct {
	chunks    [][]byte
	cur       []byte // unused tail of the current chunk
	chunkSize int
	total     int
}

// NewArena creates a new Arena with the specified chunk size. If chunkSize <=
// 0, DefaultChunkSize is used.
func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Arena{chunkSize: chunkSize}
}

// Copy copies b into the arena and returns the arena-owned copy.
func (a *Arena) Copy(b []byte) StringBuffer {
	if len(b) == 0 {
		return StringBuffer{}
	}
	dst := a.Alloc(len(b))
	copy(dst, b)
	return StringBuffer{s: unsafe.String(&dst[0], len(dst))}
}

// CopyString copies s into the arena and returns the arena-owned copy.
func (a *Arena) CopyString(s string) StringBuffer {
	if len(s) == 0 {
		return StringBuffer{}
	}
	dst := a.Alloc(len(s))
	copy(dst, s)
	return StringBuffer{s: unsafe.String(&dst[0], len(dst))}
}

// Alloc returns n writable bytes owned by the arena. It is meant for readers
// that fill raw input in place (e.g. a chunk read from a file) and then slice
// it into views with ViewBytes. The bytes must not be written after views
// over them have been handed out. Returns nil if n <= 0.
func (a *Arena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}

	// fast path: fits into the current chunk
	if n <= len(a.cur) {
		b := a.cur[:n:n]
		a.cur = a.cur[n:]
		a.total += n
		return b
	}

	// large requests get a dedicated chunk, keeping the tail of the current
	// chunk available for the small strings that follow
	if n > a.chunkSize/4 {
		b := make([]byte, n)
		a.chunks = append(a.chunks, b)
		a.total += n
		return b
	}

	a.grow()
	b := a.cur[:n:n]
	a.cur = a.cur[n:]
	a.total += n
	return b
}

// TotalAllocated returns the exact number of bytes ever copied or allocated
// into the arena.
func (a *Arena) TotalAllocated() int {
	return a.total
}

// NumChunks returns the number of chunks currently held by the arena.
func (a *Arena) NumChunks() int {
	return len(a.chunks)
}

// Capacity returns the total capacity (in bytes) of all chunks in the arena.
func (a *Arena) Capacity() int {
	sum := 0
	for _, c := range a.chunks {
		sum += len(c)
	}
	return sum
}

// ChunkSize returns the default chunk size used by this arena.
func (a *Arena) ChunkSize() int {
	return a.chunkSize
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() ArenaMetrics {
	m := ArenaMetrics{
		TotalAllocated: a.total,
		Capacity:       a.Capacity(),
		NumChunks:      len(a.chunks),
		ChunkSize:      a.chunkSize,
	}
	if m.Capacity > 0 {
		m.Utilization = float64(m.TotalAllocated) / float64(m.Capacity)
	}
	return m
}

// ArenaMetrics contains statistical information about an arena.
type ArenaMetrics struct {
	TotalAllocated int     // bytes handed out
	Capacity       int     // total chunk capacity in bytes
	NumChunks      int     // number of chunks
	ChunkSize      int     // default chunk size
	Utilization    float64 // ratio of allocated to total capacity (0.0-1.0)
}

// grow appends a fresh chunk and makes it current.
func (a *Arena) grow() {
	c := make([]byte, a.chunkSize)
	a.chunks = append(a.chunks, c)
	a.cur = c
}
