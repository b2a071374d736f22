package eventgroup

import (
	"testing"
)

func TestEventGroup_NilArena(t *testing.T) {
	g := NewEventGroup(nil)
	if g.Arena() == nil {
		t.Fatal("expected a new arena to be created")
	}
	if g.Arena().ChunkSize() != DefaultChunkSize {
		t.Fatalf("expected default chunk size, got: %d", g.Arena().ChunkSize())
	}
}

func TestEventGroup_SwapEvents(t *testing.T) {
	g := NewEventGroup(nil)
	a := g.Arena()

	l := NewLogEvent(a)
	m := NewMetricEvent(a)
	s := NewSpanEvent(a)
	g.AddEvent(l)
	g.AddEvent(m)
	g.AddEvent(s)

	var out []Event
	g.SwapEvents(&out)

	if len(out) != 3 {
		t.Fatalf("expected 3 swapped events, got: %d", len(out))
	}
	if out[0] != Event(l) || out[1] != Event(m) || out[2] != Event(s) {
		t.Fatal("expected swapped events in insertion order")
	}
	if g.Len() != 0 || len(g.Events()) != 0 {
		t.Fatalf("expected group to be empty after swap, got: %d", g.Len())
	}

	// swapping again replaces out with the new batch only
	l2 := g.AddLogEvent()
	g.SwapEvents(&out)
	if len(out) != 1 || out[0] != Event(l2) {
		t.Fatalf("expected only the new event after the second swap, got: %d", len(out))
	}
}

func TestEventGroup_SwapEventsKeepsInflightBatch(t *testing.T) {
	g := NewEventGroup(nil)
	l1 := g.AddLogEvent()
	l2 := g.AddLogEvent()

	// a consumer reusing one buffer while the previous batch is still in use
	var buf []Event
	g.SwapEvents(&buf)
	inflight := buf

	l3 := g.AddLogEvent()
	g.SwapEvents(&buf)
	g.AddLogEvent()

	if len(inflight) != 2 || inflight[0] != Event(l1) || inflight[1] != Event(l2) {
		t.Fatalf("expected the in-flight batch to be intact, got: %v", inflight)
	}
	if len(buf) != 1 || buf[0] != Event(l3) {
		t.Fatalf("expected the second batch in buf, got: %v", buf)
	}
}

func TestEventGroup_SwapEventsWithAliasedSlice(t *testing.T) {
	g := NewEventGroup(nil)
	l1 := g.AddLogEvent()
	l2 := g.AddLogEvent()

	out := g.Events()
	g.SwapEvents(&out)

	if len(out) != 2 || out[0] != Event(l1) || out[1] != Event(l2) {
		t.Fatalf("expected both events after swapping into an aliased slice, got: %v", out)
	}
	if g.Len() != 0 {
		t.Fatalf("expected group to be empty after swap, got: %d", g.Len())
	}
}

func TestEventGroup_AddTypedEvents(t *testing.T) {
	g := NewEventGroup(nil)
	l := g.AddLogEvent()
	m := g.AddMetricEvent()
	s := g.AddSpanEvent()

	if g.Len() != 3 {
		t.Fatalf("expected 3 events, got: %d", g.Len())
	}
	for i, e := range []Event{l, m, s} {
		if g.Events()[i] != e {
			t.Fatalf("event %d out of order", i)
		}
		if e.Arena() != g.Arena() {
			t.Fatalf("event %d not built on the group arena", i)
		}
	}
}

func TestEventGroup_NoCopySetterDoesNotAllocate(t *testing.T) {
	g := NewEventGroup(nil)
	a := g.Arena()

	k := a.CopyString("key1").View()
	v := a.CopyString("value1").View()
	before := a.TotalAllocated()

	g.SetMetadataNoCopy(k, v)
	g.SetTagNoCopy(k, v)
	g.AddLogEvent().SetContentNoCopy(k, v)

	if a.TotalAllocated() != before {
		t.Fatalf("expected no arena growth, before: %d, after: %d", before, a.TotalAllocated())
	}
	if g.GetMetadata("key1") != "value1" {
		t.Fatalf("expected value1, got: %s", g.GetMetadata("key1"))
	}
}

func TestEventGroup_CopySetterIsolatesCaller(t *testing.T) {
	g := NewEventGroup(nil)

	kb := []byte("key1")
	vb := []byte("value1")
	g.SetMetadata(string(ViewBytes(kb)), string(ViewBytes(vb)))
	g.SetTag(string(ViewBytes(kb)), string(ViewBytes(vb)))

	// mutate the caller's buffers after the call
	copy(kb, "XXXX")
	copy(vb, "YYYYYY")

	if g.GetMetadata("key1") != "value1" {
		t.Fatalf("metadata changed with the caller's buffer: %q", g.GetMetadata("key1"))
	}
	if g.GetTag("key1") != "value1" {
		t.Fatalf("tag changed with the caller's buffer: %q", g.GetTag("key1"))
	}
	if g.HasMetadata("XXXX") {
		t.Fatal("metadata key changed with the caller's buffer")
	}
}

func TestEventGroup_MetadataAndTags(t *testing.T) {
	g := NewEventGroup(nil)

	g.SetMetadata("log.file.path", "/var/log/message")
	if !g.HasMetadata("log.file.path") {
		t.Fatal("expected metadata key to be present")
	}
	g.DelMetadata("log.file.path")
	if g.HasMetadata("log.file.path") || g.GetMetadata("log.file.path") != "" {
		t.Fatal("expected metadata key to be removed")
	}

	g.SetTag("app_name", "xxx")
	if !g.HasTag("app_name") || g.Tags().Len() != 1 {
		t.Fatal("expected tag to be present")
	}
	g.DelTag("app_name")
	g.DelTag("app_name")
	if g.HasTag("app_name") || g.GetTag("app_name") != "" {
		t.Fatal("expected tag to be removed")
	}
	if g.Metadata().Len() != 0 {
		t.Fatal("expected empty metadata")
	}
}

func TestEventGroup_TagsFingerprint(t *testing.T) {
	g1 := NewEventGroup(nil)
	g1.SetTag("a", "1")
	g1.SetTag("b", "2")

	g2 := NewEventGroup(nil)
	g2.SetTag("b", "2")
	g2.SetTag("a", "1")

	if g1.TagsFingerprint() != g2.TagsFingerprint() {
		t.Fatal("expected fingerprint to ignore insertion order")
	}

	g3 := NewEventGroup(nil)
	g3.SetTag("a", "12")
	if g1.TagsFingerprint() == g3.TagsFingerprint() {
		t.Fatal("expected different tags to yield different fingerprints")
	}

	// key/value boundaries are part of the fingerprint
	g4 := NewEventGroup(nil)
	g4.SetTag("ab", "")
	g5 := NewEventGroup(nil)
	g5.SetTag("a", "b")
	if g4.TagsFingerprint() == g5.TagsFingerprint() {
		t.Fatal("expected key/value boundaries to change the fingerprint")
	}
}

func TestEventGroup_DataSize(t *testing.T) {
	g := NewEventGroup(nil)
	g.SetMetadata("m", "12")
	g.SetTag("t", "3")
	g.AddLogEvent().SetContent("k", "vv")

	if got := g.DataSize(); got != len("m12")+len("t3")+len("kvv") {
		t.Fatalf("unexpected DataSize: %d", got)
	}
}
