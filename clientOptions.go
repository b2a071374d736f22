package eventgroup

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientOptions configure the connections, write queues and delivery checks
// of a Client. Pass nil to NewClient for the defaults; out-of-range values are
// replaced by their defaults rather than rejected.
type ClientOptions struct {

	// Network is the transport to the Fluent server: "tcp", "tls" or "udp".
	// The default is "tcp".
	//   ref: https://docs.fluentd.org/configuration/transport-section
	Network string

	// Port of the Fluent server, between 1024 and 65535. The default is 24224.
	Port int

	// DialTimeout bounds each dial attempt. The default is 30s.
	DialTimeout time.Duration

	// MaxEagerDialTries caps the dial attempts each worker makes inside the
	// constructor. A negative value retries until connected. It has no effect
	// with SkipEagerDial, nor on reconnects after a broken pipe, which always
	// retry until connected. The default is 10.
	MaxEagerDialTries int

	// Concurrency controls the number of workers the Client will spin up. Each
	// worker owns its own connection and its own write queue. Groups are routed
	// to a worker by their tags fingerprint, so groups sharing the same tags
	// are always written in order over the same connection. The default is 1.
	Concurrency int

	// QueueDepth sets the maximum number of encoded groups each worker can
	// buffer before writing to it is blocked. If blocked and DropIfQueueFull is
	// true, load shedding will occur, with later groups discarded until buffer
	// space increases. The default depth is 0 (synchronous writes).
	QueueDepth int

	// WriteTimeout is the deadline set on each write of an encoded group. A
	// negative value disables the deadline. The default is 10s.
	WriteTimeout time.Duration

	// MaxWriteTries is the number of attempts made to write a group after
	// timeouts, before the connection is treated as broken and redialed. The
	// default is 3.
	MaxWriteTries int

	// AckTimeout bounds the wait for the server's ACK responses when the
	// EncoderPool requests ACKs. A missing or mismatched ACK is handled like a
	// broken pipe, and the group is written again over a new connection. ACKs
	// are never awaited over udp. The default is 10 seconds.
	AckTimeout time.Duration

	// InsecureSkipVerify disables verification of the server certificate
	// over "tls".
	InsecureSkipVerify bool

	// SkipEagerDial returns the Client without connecting; workers dial when
	// their first group arrives.
	SkipEagerDial bool

	// DropIfQueueFull makes Put and Send discard a group, counting it in the
	// groups dropped metric, when its worker queue is full. By default the
	// caller blocks until the queue has room.
	DropIfQueueFull bool

	// Registerer receives the Client metrics. When nil, the metrics are still
	// collected but not registered anywhere.
	Registerer prometheus.Registerer

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const (
	defaultPort           = 24224
	defaultNetwork        = "tcp"
	defaultDialTimeout    = time.Second * 30
	defaultEagerDialTries = 10
	defaultConcurrency    = 1
	defaultWriteTimeout   = time.Second * 10
	defaultWriteTries     = 3
	defaultAckTimeout     = time.Second * 10
)

// DefaultClientOptions returns *ClientOptions with all default values.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Port:              defaultPort,
		Network:           defaultNetwork,
		DialTimeout:       defaultDialTimeout,
		MaxEagerDialTries: defaultEagerDialTries,
		Concurrency:       defaultConcurrency,
		WriteTimeout:      defaultWriteTimeout,
		MaxWriteTries:     defaultWriteTries,
		AckTimeout:        defaultAckTimeout,
	}
}

// resolve replaces out-of-range options with their defaults.
func (o *ClientOptions) resolve() {

	if o.Port < 1024 || o.Port > 65535 {
		o.Port = defaultPort
	}

	// Fluent transports are tcp, tls and udp
	if o.Network != "tcp" && o.Network != "tls" && o.Network != "udp" {
		o.Network = defaultNetwork
	}

	if o.DialTimeout < 1 {
		o.DialTimeout = defaultDialTimeout
	}

	// can be negative (infinity) or positive, but not 0
	if o.MaxEagerDialTries == 0 {
		o.MaxEagerDialTries = defaultEagerDialTries
	}

	if o.Concurrency < 1 {
		o.Concurrency = defaultConcurrency
	}

	if o.QueueDepth < 0 {
		o.QueueDepth = 0
	}

	// can be negative (infinity) or positive, but not 0
	if o.WriteTimeout == 0 {
		o.WriteTimeout = defaultWriteTimeout
	}

	if o.MaxWriteTries < 1 {
		o.MaxWriteTries = defaultWriteTries
	}

	if o.AckTimeout < 1 {
		o.AckTimeout = defaultAckTimeout
	}
}
