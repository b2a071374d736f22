package eventgroup

import "unsafe"

// StringView is a non-owning (pointer, length) reference to string data. It
// may alias an Arena-owned StringBuffer, a caller's buffer (see ViewBytes), or
// a string literal.
//
// The garbage collector keeps whatever a StringView points into reachable, so
// a view can never outlive its backing storage. What the holder still has to
// guarantee is that bytes viewed through ViewBytes are not mutated while the
// view is in use.
type StringView string

// ViewBytes returns a view over b without copying.
//
// WARNING: the view shares memory with b. Do not modify b while the view, or
// any group storing it via a NoCopy setter, is still in use.
func ViewBytes(b []byte) StringView {
	if len(b) == 0 {
		return ""
	}
	return StringView(unsafe.String(&b[0], len(b)))
}

// Bytes returns the viewed data as a byte slice without copying. The returned
// slice must not be modified.
func (v StringView) Bytes() []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(string(v)), len(v))
}

// String returns the viewed data as a string without copying.
func (v StringView) String() string { return string(v) }

// Len returns the length of the view in bytes.
func (v StringView) Len() int { return len(v) }

// IsEmpty reports whether the view has zero length.
func (v StringView) IsEmpty() bool { return len(v) == 0 }

// StringBuffer is a byte range owned by an Arena. It can only be produced by
// Arena.Copy, Arena.CopyString, or the Copy helpers of the event types, and is
// never freed individually.
type StringBuffer struct {
	s string
}

// View returns a StringView over the buffer. Storing the view in a group via
// a NoCopy setter performs no further allocation.
func (b StringBuffer) View() StringView { return StringView(b.s) }

// String returns the buffer content as a string without copying.
func (b StringBuffer) String() string { return b.s }

// Len returns the size of the buffer in bytes.
func (b StringBuffer) Len() int { return len(b.s) }
