package eventgroup

// eventMode defines the Fluent protocol event/carrier mode used to put a group
// on the wire.
//   - Message mode: one [tag, time, record] message per event
//   - Forward mode: one [tag, [[time, record], ...]] message per group
//   - PackedForward mode: entries as one msgpack binary stream
//   - CompressedPackedForward mode: the packed stream, gzipped
//     ref: https://github.com/fluent/fluentd/wiki/Forward-Protocol-Specification-v1
type eventMode int

const (
	// ForwardMode indicates the Fluent Forward mode.
	ForwardMode eventMode = iota

	// MessageMode indicates the Fluent Message mode.
	MessageMode

	// PackedForwardMode indicates the Fluent PackedForward mode.
	PackedForwardMode

	// CompressedPackedForwardMode indicates the Fluent CompressedPackedForward mode.
	CompressedPackedForwardMode
)

func (m eventMode) String() string {
	switch m {
	case MessageMode:
		return "message"
	case ForwardMode:
		return "forward"
	case PackedForwardMode:
		return "packed-forward"
	case CompressedPackedForwardMode:
		return "compressed-packed-forward"
	default:
		return "unknown"
	}
}

// EncoderOptions are used to customize the Encoders and the Encoder pool.
//
// NB: The struct pointer options approach is used to be consistent with the
// options used for the Handler, which uses the struct pointer approach to be
// consistent with the `HandlerOptions` used by log/slog.
type EncoderOptions struct {
	// Mode is the Fluent event mode that applies to all of the groups
	// serialized using Encoders from one shared EncoderPool. The zero value is
	// ForwardMode, which carries a whole group in one message.
	Mode eventMode

	// NewBufferCap sets the capacity, in bytes, for newly created Encoder
	// buffers. The minimum value is 64 bytes. The default is 4KiB (1<<12).
	NewBufferCap int

	// MaxBufferCap sets the maximum buffer capacity, in bytes, beyond which an
	// Encoder will not be returned to the shared Encoder pool, to prevent rare,
	// unusually large buffers from staying resident in memory. The minimum
	// value is NewBufferCap. The default is 64KiB (1<<16).
	MaxBufferCap int

	// UseCoarseTimestamps controls whether event times are serialized as Unix
	// epoch seconds, which is useful for pre-2016 legacy systems that do not
	// support sub-second precision. The default is false, so timestamps are
	// serialized as Fluent `EventTime` values.
	UseCoarseTimestamps bool

	// RequestACKs controls whether each message carries a `chunk` option asking
	// the Fluent server to send back an explicit ACK.
	RequestACKs bool

	// OmitTags controls whether the group tags are left out of the records.
	// By default every record carries each group tag as `__tag__:<key>`.
	OmitTags bool
}

const (
	minBufferCap        = 64
	defaultNewBufferCap = 4 << 10
	defaultMaxBufferCap = 64 << 10
)

// DefaultEncoderOptions returns *EncoderOptions with all default values.
func DefaultEncoderOptions() *EncoderOptions {
	return &EncoderOptions{
		Mode:         ForwardMode,
		NewBufferCap: defaultNewBufferCap,
		MaxBufferCap: defaultMaxBufferCap,
	}
}

// resolve ensures that all options have valid values.
func (o *EncoderOptions) resolve() {
	if o.Mode < ForwardMode || o.Mode > CompressedPackedForwardMode {
		o.Mode = ForwardMode
	}
	if o.NewBufferCap == 0 {
		o.NewBufferCap = defaultNewBufferCap
	}
	o.NewBufferCap = max(o.NewBufferCap, minBufferCap)
	if o.MaxBufferCap == 0 {
		o.MaxBufferCap = defaultMaxBufferCap
	}
	o.MaxBufferCap = max(o.NewBufferCap, o.MaxBufferCap)
}
