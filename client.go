package eventgroup

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bitdabbler/backoff"
	"github.com/vmihailenco/msgpack/v5"
)

type worker struct {
	*ClientOptions
	id      int
	tag     string
	conn    net.Conn
	dec     *msgpack.Decoder
	addr    string
	wg      *sync.WaitGroup
	sendCh  chan *Encoder
	metrics *Metrics
}

// Client is the Fluent output stage of a pipeline. It encodes each group put
// into it with Encoders from its EncoderPool, and writes them to the server.
// With multiple concurrent workers, the Client can be considered a Fluent
// client pool, as each worker maintains an independent connection to the
// server.
type Client struct {
	opts    *ClientOptions
	host    string
	pool    *EncoderPool
	workers []*worker
	wg      *sync.WaitGroup
	metrics *Metrics

	mu     sync.RWMutex
	closed bool
}

// compile-time check for Sink conformance
var _ Sink = (*Client)(nil)

// NewClient creates a new Fluent client and connects to the Fluent server
// immediately, returning an error if it is unable to establish the connection.
func NewClient(host string, pool *EncoderPool, opts *ClientOptions) (*Client, error) {
	return NewClientContext(context.Background(), host, pool, opts)
}

// NewClientContext creates a new Fluent client and connects to the Fluent
// server immediately, returning an error if it is unable to establish the
// initial connections. The Context is passed to `Connect()` can be used to
// cancel the `Connect` operation, or set a global deadline for connecting.
func NewClientContext(ctx context.Context, host string, pool *EncoderPool, opts *ClientOptions) (*Client, error) {

	c, err := newClient(host, pool, opts)
	if err != nil {
		return nil, err
	}

	if c.opts.SkipEagerDial {
		return c, nil
	}

	// eagerly establish server connections from each worker
	for i, w := range c.workers {
		if err = w.tryConnect(ctx, c.opts.MaxEagerDialTries); err != nil {
			// will drop the client, so eagerly close open conns
			for j := 0; j < i; j++ {
				c.workers[j].conn.Close()
			}
			return nil, err
		}
	}

	c.start()
	return c, nil
}

func newClient(host string, pool *EncoderPool, opts *ClientOptions) (*Client, error) {

	if len(host) == 0 {
		return nil, errors.New("valid host required")
	}

	if pool == nil {
		return nil, errors.New("valid EncoderPool required")
	}

	if opts == nil {
		opts = DefaultClientOptions()
	} else {
		opts.resolve()
	}

	c := &Client{
		opts:    opts,
		host:    host,
		pool:    pool,
		workers: make([]*worker, opts.Concurrency),
		wg:      &sync.WaitGroup{},
		metrics: NewMetrics(opts.Registerer),
	}

	c.debug("creating Client with the resolved ClientOptions: %+v", c.opts)

	// compose addr to format used by dialers
	addr := net.JoinHostPort(host, strconv.Itoa(opts.Port))

	for i := range c.workers {
		c.workers[i] = &worker{
			ClientOptions: opts,
			id:            i + 1,
			tag:           pool.Tag(),
			addr:          addr,
			wg:            c.wg,
			sendCh:        make(chan *Encoder, opts.QueueDepth),
			metrics:       c.metrics,
		}
	}

	if opts.SkipEagerDial {
		c.start()
	}

	return c, nil
}

// start spins up the worker goroutines and tracks concurrency.
func (c *Client) start() {
	c.wg.Add(len(c.workers))
	for _, w := range c.workers {
		go w.run()
	}
}

func (w *worker) tryConnect(ctx context.Context, maxAttempts int) error {
	w.debug("attempting to connect to Fluent server\n")

	b, err := backoff.New(
		backoff.WithInitialDelay(0),
		backoff.WithExponentialLimit(time.Second*20),
	)
	if err != nil {
		return err
	}

	i := 0
	for {
		i++
		err = w.connect(ctx)
		if err == nil {
			w.debug("successfully connected to Fluent server\n")
			return nil
		}

		w.debug("failed to connect to Fluent server on attempt %d: %v\n", i, err)

		if maxAttempts > 0 && i >= maxAttempts {
			break
		}
		if ctx.Err() != nil {
			break
		}

		b.Sleep()
	}

	return fmt.Errorf("failed to connect to Fluent server after %d attempts: %w", i, err)
}

func (w *worker) connect(ctx context.Context) error {

	var d net.Dialer
	ctx, cancel := context.WithTimeout(ctx, w.DialTimeout)
	defer cancel()

	w.debug("dialing Fluent server at %s over %s\n", w.addr, w.Network)

	var conn net.Conn
	var err error
	switch w.Network {
	case "tcp", "udp":
		conn, err = d.DialContext(ctx, w.Network, w.addr)
	case "tls":
		tlsDialer := tls.Dialer{
			NetDialer: &d,
			Config:    &tls.Config{InsecureSkipVerify: w.InsecureSkipVerify},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", w.addr)
	default:
		return fmt.Errorf("unsupported Fluent client transport protocol: %s", w.Network)
	}
	if err != nil {
		return fmt.Errorf("failed to dial Fluent server at %s over protocol %s: %w", w.addr, w.Network, err)
	}

	w.conn = conn
	w.dec = msgpack.NewDecoder(conn)
	return nil
}

func (w *worker) run() {

	// loop until the worker queue closes
	for enc := range w.sendCh {

	reconnectloop:
		for {
			// nil when (a) using lazy conns, (b) after broken pipe tear down
			if w.conn == nil {
				w.debug("reconnectloop: not connected to server\n")

				// ignoring this error because with 0 (infinite) retries, this
				// won't return until the conn is established and err == nil
				w.tryConnect(context.Background(), 0)
			}

			// write to the server; retry if recoverable
			err := w.write(enc)
			if err == nil {
				break reconnectloop
			}
			w.metrics.writeErrors.WithLabelValues(w.tag).Inc()
			w.reportError("failed to deliver group: %v\n", err)

			// either non-recoverable error, exhausted maxWriteTries, or no ACK
			w.debug("broken pipe detected; tearing down connection")
			if err := w.conn.Close(); err != nil {
				w.reportError("error closing broken connection: %v", err)
			}
			w.conn = nil
			w.dec = nil
		}

		w.metrics.groupsSent.WithLabelValues(w.tag).Inc()
		w.metrics.eventsSent.WithLabelValues(w.tag).Add(float64(enc.Events()))
		w.metrics.bytesSent.WithLabelValues(w.tag).Add(float64(enc.Len()))

		// successfully wrote the bytes out to the server
		enc.Free()
	}

	w.debug("closing net.Conn and returning from worker goroutine")

	// if using lazy connections and the channel is closed before any groups
	// are pushed into it, then the conn could still be nil
	if w.conn != nil {
		w.conn.Close()
	}

	w.wg.Done()
}

// write sends the encoded group, then awaits the ACK of each message when
// ACKs were requested.
func (w *worker) write(enc *Encoder) error {
	var err error
	for i := 0; i < w.MaxWriteTries; i++ {
		if w.WriteTimeout > 0 {
			w.conn.SetWriteDeadline(time.Now().Add(w.WriteTimeout))
		}

		_, err = w.conn.Write(enc.Bytes())
		if err == nil {
			break
		}

		// only consider timeouts potentially recoverable
		if ne, ok := err.(net.Error); !(ok && ne.Timeout()) {
			return fmt.Errorf("unrecoverable write error: %w", err)
		}

		w.debug("failed to Write message: attempt %d: recoverable error: %v\n", i+1, err)
	}
	if err != nil {
		return fmt.Errorf("write failed after %d attempts: %w", w.MaxWriteTries, err)
	}

	if w.Network == "udp" || len(enc.Chunks()) == 0 {
		return nil
	}
	return w.awaitACKs(enc.Chunks())
}

// ackResponse is the Fluent server response to a message carrying a chunk.
type ackResponse struct {
	Ack string `msgpack:"ack"`
}

func (w *worker) awaitACKs(chunks []string) error {
	w.conn.SetReadDeadline(time.Now().Add(w.AckTimeout))
	defer w.conn.SetReadDeadline(time.Time{})

	for _, chunk := range chunks {
		var resp ackResponse
		if err := w.dec.Decode(&resp); err != nil {
			return fmt.Errorf("failed to read ACK for chunk %s: %w", chunk, err)
		}
		if resp.Ack != chunk {
			return fmt.Errorf("ACK mismatch: got %q, expected %q", resp.Ack, chunk)
		}
	}
	return nil
}

// Put encodes g and places it into the write queue of the worker selected by
// the group's tags fingerprint. Empty groups are skipped. The group is not
// retained, so the caller may reuse it once Put returns.
func (c *Client) Put(ctx context.Context, g *EventGroup) error {
	if g.Len() == 0 {
		return nil
	}

	enc := c.pool.Get()
	if err := enc.EncodeGroup(g); err != nil {
		enc.Free()
		return err
	}
	return c.enqueue(ctx, enc)
}

// Send places an Encoder, holding a group encoded by EncodeGroup, into the
// write queue of the worker selected by its tags fingerprint. The Client
// takes ownership of enc and frees it once written or dropped.
//
// This operation is sync/blocking operation when:
//   - the queueDepth is 0, or
//   - the queue is full and DropIfQueueFull is false
//
// This operation is async/non-blocking when:
//   - queueDepth > 0, and
//   - the queue is not full, or DropIfQueueFull is true
func (c *Client) Send(enc *Encoder) error {
	return c.enqueue(context.Background(), enc)
}

func (c *Client) enqueue(ctx context.Context, enc *Encoder) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		enc.Free()
		return ErrQueueClosed
	}

	w := c.workers[enc.Fingerprint()%uint64(len(c.workers))]

	if c.opts.DropIfQueueFull {
		select {
		case w.sendCh <- enc:
		default:
			c.debug("full buffer: dropping group: worker: %d: queue depth: %d", w.id, c.opts.QueueDepth)
			c.metrics.groupsDropped.WithLabelValues(c.pool.Tag()).Inc()
			enc.Free()
		}
		return nil
	}

	// otherwise block if the queue is full
	select {
	case w.sendCh <- enc:
		return nil
	case <-ctx.Done():
		enc.Free()
		return ctx.Err()
	}
}

// Shutdown is used to support graceful shutdown. It closes the write queues,
// so any further calls to Put or Send return ErrQueueClosed. Shutdown blocks
// until the write queues are fully drained and all worker goroutines have
// stopped, or the context expires, whichever occurs first.
func (c *Client) Shutdown(ctx context.Context) error {
	doneCh := make(chan struct{})
	go func() {
		// waits for blocked senders, which the workers are still draining
		c.mu.Lock()
		if !c.closed {
			c.closed = true
			for _, w := range c.workers {
				close(w.sendCh)
			}
			c.debug("group send queues closed; writing out previously enqueued groups")
		}
		c.mu.Unlock()

		c.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-doneCh:
		c.debug("group send queues successfully drained")
		return nil
	}
}

// internal logging helpers:
func (c *Client) debug(format string, args ...any) {
	stageLog{name: "client", verbose: c.opts.Verbose}.debugf(format, args...)
}

func (w *worker) log() stageLog {
	return stageLog{name: "worker " + strconv.Itoa(w.id), verbose: w.Verbose}
}

func (w *worker) debug(format string, args ...any) {
	w.log().debugf(format, args...)
}

func (w *worker) reportError(format string, args ...any) {
	w.log().errorf(format, args...)
}
