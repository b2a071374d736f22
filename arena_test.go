package eventgroup

import (
	"strings"
	"testing"
)

func TestArena_DefaultChunkSize(t *testing.T) {
	tests := []struct {
		name   string
		input  int
		expect int
	}{
		{"positive chunk size unchanged", 1 << 10, 1 << 10},
		{"0 chunk size coerced to default", 0, DefaultChunkSize},
		{"negative chunk size coerced to default", -1, DefaultChunkSize},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena(tt.input)
			if a.ChunkSize() != tt.expect {
				t.Errorf("failed: %s, expected: %d, got: %d", tt.name, tt.expect, a.ChunkSize())
			}
		})
	}
}

func TestArena_CopyString(t *testing.T) {
	a := NewArena(64)

	b := a.CopyString("hello")
	if b.String() != "hello" {
		t.Fatalf("expected: hello, got: %s", b.String())
	}
	if b.Len() != 5 {
		t.Fatalf("expected length 5, got: %d", b.Len())
	}
	if a.TotalAllocated() != 5 {
		t.Fatalf("expected 5 bytes allocated, got: %d", a.TotalAllocated())
	}
	if a.NumChunks() != 1 {
		t.Fatalf("expected 1 chunk, got: %d", a.NumChunks())
	}

	// the empty string allocates nothing
	if e := a.CopyString(""); e.Len() != 0 {
		t.Fatalf("expected empty buffer, got: %q", e.String())
	}
	if a.TotalAllocated() != 5 {
		t.Fatalf("expected empty copy to allocate nothing, got: %d", a.TotalAllocated())
	}
}

func TestArena_CopyIsIndependentOfSource(t *testing.T) {
	a := NewArena(0)
	src := []byte("mutable")
	b := a.Copy(src)

	copy(src, "XXXXXXX")
	if b.String() != "mutable" {
		t.Fatalf("arena copy changed with its source: %q", b.String())
	}
}

func TestArena_ViewsStableAcrossGrowth(t *testing.T) {
	a := NewArena(16)

	var bufs []StringBuffer
	for i := 0; i < 100; i++ {
		bufs = append(bufs, a.CopyString(strings.Repeat(string(rune('a'+i%26)), 3)))
	}
	if a.NumChunks() < 2 {
		t.Fatalf("expected the arena to grow past one chunk, got: %d", a.NumChunks())
	}
	for i, b := range bufs {
		want := strings.Repeat(string(rune('a'+i%26)), 3)
		if b.String() != want {
			t.Fatalf("buffer %d changed after growth: expected: %q, got: %q", i, want, b.String())
		}
	}
	if a.TotalAllocated() != 300 {
		t.Fatalf("expected 300 bytes allocated, got: %d", a.TotalAllocated())
	}
}

func TestArena_LargeAllocGetsDedicatedChunk(t *testing.T) {
	a := NewArena(64)
	a.CopyString("small")
	before := a.NumChunks()

	big := a.Alloc(1000)
	if len(big) != 1000 {
		t.Fatalf("expected 1000 bytes, got: %d", len(big))
	}
	if a.NumChunks() != before+1 {
		t.Fatalf("expected one dedicated chunk, got: %d chunks", a.NumChunks())
	}

	// the small tail is still used for small strings
	a.CopyString("tail")
	if a.NumChunks() != before+1 {
		t.Fatalf("expected small copy to reuse the current chunk, got: %d chunks", a.NumChunks())
	}
}

func TestArena_AllocNonPositive(t *testing.T) {
	a := NewArena(0)
	if b := a.Alloc(0); b != nil {
		t.Fatalf("expected nil for Alloc(0), got: %v", b)
	}
	if b := a.Alloc(-5); b != nil {
		t.Fatalf("expected nil for Alloc(-5), got: %v", b)
	}
	if a.NumChunks() != 0 {
		t.Fatalf("expected no chunks, got: %d", a.NumChunks())
	}
}

func TestArena_AllocCapped(t *testing.T) {
	a := NewArena(64)
	b := a.Alloc(4)
	if cap(b) != 4 {
		t.Fatalf("expected cap 4, so appends cannot overwrite later allocations, got: %d", cap(b))
	}
}

func TestArena_Metrics(t *testing.T) {
	a := NewArena(100)
	a.CopyString(strings.Repeat("x", 20))
	a.CopyString(strings.Repeat("y", 5))

	m := a.Metrics()
	if m.TotalAllocated != 25 {
		t.Errorf("expected TotalAllocated 25, got: %d", m.TotalAllocated)
	}
	if m.Capacity != 100 {
		t.Errorf("expected Capacity 100, got: %d", m.Capacity)
	}
	if m.NumChunks != 1 {
		t.Errorf("expected 1 chunk, got: %d", m.NumChunks)
	}
	if m.ChunkSize != 100 {
		t.Errorf("expected ChunkSize 100, got: %d", m.ChunkSize)
	}
	if m.Utilization != 0.25 {
		t.Errorf("expected Utilization 0.25, got: %f", m.Utilization)
	}

	if u := NewArena(0).Metrics().Utilization; u != 0 {
		t.Errorf("expected 0 utilization for an empty arena, got: %f", u)
	}
}
