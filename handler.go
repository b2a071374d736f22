package eventgroup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"
)

type ccKey struct{}

// ContextKey is used to extract a log value from context.Context. The value
// must be an `slog.Attr`.
//
//		Example:
//	 	ctx := context.WithValue(ctx, eventgroup.ContextKey,
//	 		slog.Group("req",
//	 			slog.String("method", r.Method),
//	 			slog.String("url", r.URL.String()),
//	 		)
//	 	)
//
// These attrs are added to the top scope of the LogEvent contents.
var ContextKey *ccKey = &ccKey{}

// groupSep joins the keys of nested groups into one content key.
const groupSep = "."

// field is an attr flattened into a LogEvent content.
type field struct {
	key, value string
}

// collector is the state shared by a Handler and every Handler derived from
// it with WithAttrs or WithGroup.
//
// Full groups are rotated out under mu into pending, and put into the Sink
// under putMu only, so logging never waits on the Sink. Groups reach the Sink
// in the order they were rotated out.
type collector struct {
	mu      sync.Mutex
	opts    *HandlerOptions
	sink    Sink
	group   *EventGroup
	pending []*EventGroup
	closed  bool

	putMu sync.Mutex

	stop chan struct{}
	wg   sync.WaitGroup
}

// Handler is an slog.Handler that collects records as LogEvents into an
// EventGroup, and puts the group into a Sink once it holds BatchSize events,
// when FlushInterval elapses, or on Flush and Shutdown.
//
//	// Example of basic usage
//	h, err := eventgroup.NewHandler(fluentHost, fluentTag, nil)
//	if err != nil {
//	   log.Fatalln(err)
//	}
//
//	logger := slog.New(h)
//	slog.SetDefault(logger)
//
//	slog.Info("unrecognized user", "user_id", user_id)
type Handler struct {
	*HandlerOptions
	c *collector

	// attrs added by WithAttrs, already flattened
	fields []field

	// prefix of the open WithGroup scopes, e.g. "req.headers."
	prefix string
}

// NewHandler creates a Handler over a Client that uses an EncoderPool with
// default options, and default client options except Concurrency is set to 2
// and The QueueDepth is set to 16, for asynchronous sending.
//
// For complete control over the Sink, use the `NewHandlerCustom` constructor.
func NewHandler(host, tag string, opts *HandlerOptions) (*Handler, error) {

	// get the encoder pool with default encoding options
	p, err := NewEncoderPool(tag, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create eventgroup.NewEncoderPool: %w", err)
	}

	// customize the client as noted
	c, err := NewClient(host, p, &ClientOptions{
		Concurrency: 2,
		QueueDepth:  16,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eventgroup.NewClient: %w", err)
	}

	return NewHandlerCustom(c, opts), nil
}

// NewHandlerCustom creates a Handler that flushes its groups into sink, which
// is fully customizable by the caller.
func NewHandlerCustom(sink Sink, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = DefaultHandlerOptions()
	} else {
		opts.resolve()
	}

	c := &collector{
		opts: opts,
		sink: sink,
		stop: make(chan struct{}),
	}
	c.group = c.newGroup()

	if opts.FlushInterval > 0 {
		c.wg.Add(1)
		go c.flushLoop()
	}

	return &Handler{HandlerOptions: opts, c: c}
}

func (c *collector) newGroup() *EventGroup {
	g := NewEventGroup(NewArena(c.opts.ArenaChunkSize))
	for k, v := range c.opts.Tags {
		g.SetTag(k, v)
	}
	return g
}

func (c *collector) flushLoop() {
	defer c.wg.Done()

	t := time.NewTicker(c.opts.FlushInterval)
	defer t.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			if err := c.flush(context.Background()); err != nil {
				c.log().errorf("failed to flush event group on interval: %v", err)
			}
		}
	}
}

// flush hands the current group to the sink, if it holds any events.
func (c *collector) flush(ctx context.Context) error {
	c.mu.Lock()
	c.rotateLocked()
	c.mu.Unlock()
	return c.drain(ctx)
}

// rotateLocked queues the current group for the sink, if it holds any events.
func (c *collector) rotateLocked() {
	if c.group.Len() == 0 {
		return
	}
	c.pending = append(c.pending, c.group)
	c.group = c.newGroup()
}

// drain puts every pending group into the sink, including groups rotated out
// by other goroutines while it runs.
func (c *collector) drain(ctx context.Context) error {
	c.putMu.Lock()
	defer c.putMu.Unlock()

	var errs []error
	for {
		c.mu.Lock()
		batch := c.pending
		c.pending = nil
		c.mu.Unlock()

		if len(batch) == 0 {
			return errors.Join(errs...)
		}
		for _, g := range batch {
			c.log().debugf("flushing event group: %d events", g.Len())
			if err := c.sink.Put(ctx, g); err != nil {
				errs = append(errs, err)
			}
		}
	}
}

// Flush puts the events collected so far into the Sink as one group.
func (h *Handler) Flush(ctx context.Context) error {
	return h.c.flush(ctx)
}

// Shutdown flushes the events collected so far, then shuts down the Sink.
// You MUST NOT call any other Handler methods after calling Shutdown. This
// method will block until the Sink is fully drained, or ctx ends.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := h.c
	c.log().debugf("shutting down the logging stack")

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	c.rotateLocked()
	c.mu.Unlock()

	err := c.drain(ctx)
	c.wg.Wait()
	return errors.Join(err, c.sink.Shutdown(ctx))
}

func (c *collector) log() stageLog {
	return stageLog{name: "handler", verbose: c.opts.Verbose}
}

// Enabled reports whether the handler handles records at the given level. The
// handler ignores records whose level is lower.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

// Handle adds the Record to the current group as a LogEvent. It will only be
// called when Enabled returns true.
//
// The contents are, in order: the level, the source (if AddSource is set),
// the message, attrs from the context, attrs added by WithAttrs, and the
// record attrs. Attrs nested in groups are flattened, with the group keys
// joined by ".". The attr rules of log/slog apply:
//   - If r.Time is the zero time, time.Now() is used instead.
//   - If r.PC is zero, the source is omitted.
//   - Attr's values are resolved.
//   - If an Attr's key and value are both the zero value, it is ignored.
//   - If a group's key is empty, the group's Attrs are inlined.
//   - If a group has no Attrs (even if it has a non-empty key), it is ignored.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {

	// rule: ignore record time if zero
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	// flatten outside the lock
	fields := make([]field, 0, 3+len(h.fields)+r.NumAttrs())
	fields = append(fields, field{slog.LevelKey, r.Level.String()})

	// rule: ignore source if no program counter
	if h.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fields = append(fields, field{slog.SourceKey, f.File + ":" + strconv.Itoa(f.Line)})
	}

	fields = append(fields, field{slog.MessageKey, r.Message})

	// slog.Attrs passed in via the ctx go to the top scope
	if ctxAttr, ok := ctx.Value(ContextKey).(slog.Attr); ok {
		fields = h.appendAttr(fields, "", ctxAttr)
	}

	fields = append(fields, h.fields...)
	r.Attrs(func(attr slog.Attr) bool {
		fields = h.appendAttr(fields, h.prefix, attr)
		return true // continue iterating
	})

	c := h.c
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrQueueClosed
	}

	ev := c.group.AddLogEvent()
	ev.SetTimestamp(t.Unix(), uint32(t.Nanosecond()))
	for _, f := range fields {
		ev.SetContent(f.key, f.value)
	}

	full := c.group.Len() >= c.opts.BatchSize
	if full {
		c.rotateLocked()
	}
	c.mu.Unlock()

	if full {
		return c.drain(ctx)
	}
	return nil
}

// appendAttr flattens attr into fields, prefixing its key.
func (h *Handler) appendAttr(fields []field, prefix string, attr slog.Attr) []field {

	// rule: must first resolve, and then ignore if empty
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return fields
	}

	k, v := attr.Key, attr.Value

	if v.Kind() != slog.KindGroup {
		// rule: ignore non-group attrs with empty keys
		if len(k) == 0 {
			return fields
		}
		return append(fields, field{prefix + k, h.formatValue(v)})
	}

	// rule: inline attrs if key is empty; empty groups add nothing either way
	if len(k) > 0 {
		prefix += k + groupSep
	}
	for _, a := range v.Group() {
		fields = h.appendAttr(fields, prefix, a)
	}
	return fields
}

func (h *Handler) formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().Format(h.TimeFormat)
	case slog.KindAny:
		switch a := v.Any().(type) {
		case error:
			return a.Error()
		case fmt.Stringer:
			return a.String()
		case []byte:
			return string(a)
		}
		s, err := jsonConfig.MarshalToString(v.Any())
		if err != nil {
			return fmt.Sprintf("%+v", v.Any())
		}
		return s
	default:
		// bool, duration, numbers
		return v.String()
	}
}

// WithAttrs returns a new Handler whose attributes consist of both the
// receiver's attributes and the arguments. The new Handler shares the
// receiver's current group and Sink.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {

	// rule: skip if no attrs
	if len(attrs) == 0 {
		return h
	}

	// full slice expression so appends never write into the receiver's array
	fields := h.fields[:len(h.fields):len(h.fields)]
	for _, a := range attrs {
		fields = h.appendAttr(fields, h.prefix, a)
	}

	// if none added, keep the receiver
	if len(fields) == len(h.fields) {
		return h
	}

	h2 := *h
	h2.fields = fields
	return &h2
}

// WithGroup returns a new Handler with the given group appended to the
// receiver's existing groups. Keys of attrs added later are prefixed with the
// group names, joined by ".".
//
//	logger.WithGroup("s").LogAttrs(level, msg, slog.Int("a", 1), slog.Int("b", 2))
//
//	behaves like
//
//	logger.LogAttrs(level, msg, slog.Group("s", slog.Int("a", 1), slog.Int("b", 2)))
//
// If the name is empty, WithGroup returns the receiver, which results in the
// nested attributes being inlined into the parent scope.
func (h *Handler) WithGroup(name string) slog.Handler {

	// rule: ignore if name is empty (true for any attr)
	if len(name) == 0 {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + groupSep
	return &h2
}
