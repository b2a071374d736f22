package eventgroup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// TestEntry is one [time, record] pair decoded from any Fluent event mode.
type TestEntry struct {
	Time   time.Time
	Record map[string]any
}

// TestMessage is one Fluent message, with its entries unpacked.
type TestMessage struct {
	Tag     string
	Entries []TestEntry
	Option  map[string]any
}

// DecodeMsgpack deserializes a Fluent message in any of the event modes.
//
//	Message:                 [tag, time, record, option?]
//	Forward:                 [tag, [[time, record], ...], option?]
//	(Compressed)PackedForward: [tag, bin, option?]
func (m *TestMessage) DecodeMsgpack(dec *msgpack.Decoder) error {

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return fmt.Errorf("failed to decode outer message array length: %w", err)
	}

	// decode the tag
	if m.Tag, err = dec.DecodeString(); err != nil {
		return fmt.Errorf("failed to decode tag field: %v", err)
	}

	code, err := dec.PeekCode()
	if err != nil {
		return fmt.Errorf("failed to read type code for the second field: %v", err)
	}

	var packed []byte
	switch {
	case msgpcode.IsFixedArray(code) || code == msgpcode.Array16 || code == msgpcode.Array32:
		// forward mode
		nEntries, err := dec.DecodeArrayLen()
		if err != nil {
			return fmt.Errorf("failed to decode entries length: %v", err)
		}
		for i := 0; i < nEntries; i++ {
			e, err := decodeTestEntry(dec)
			if err != nil {
				return err
			}
			m.Entries = append(m.Entries, e)
		}

	case code == msgpcode.Bin8 || code == msgpcode.Bin16 || code == msgpcode.Bin32:
		// packed forward modes; entries are decoded once the option is known
		if packed, err = dec.DecodeBytes(); err != nil {
			return fmt.Errorf("failed to decode packed entries: %v", err)
		}

	default:
		// message mode
		t, err := decodeTestTime(dec)
		if err != nil {
			return err
		}
		rec, err := dec.DecodeMap()
		if err != nil {
			return fmt.Errorf("failed to decode the record field: %v", err)
		}
		m.Entries = append(m.Entries, TestEntry{Time: t, Record: rec})
		n-- // the time and record take up one more field
	}

	if n == 3 {
		// decode the option field
		if m.Option, err = dec.DecodeMap(); err != nil {
			return fmt.Errorf("failed to decode the option field: %v", err)
		}
	}

	if packed == nil {
		return nil
	}

	if m.Option["compressed"] == "gzip" {
		zr, err := gzip.NewReader(bytes.NewReader(packed))
		if err != nil {
			return fmt.Errorf("failed to open compressed entries: %v", err)
		}
		if packed, err = io.ReadAll(zr); err != nil {
			return fmt.Errorf("failed to decompress entries: %v", err)
		}
	}

	pd := msgpack.NewDecoder(bytes.NewReader(packed))
	for {
		e, err := decodeTestEntry(pd)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		m.Entries = append(m.Entries, e)
	}
}

func decodeTestEntry(dec *msgpack.Decoder) (TestEntry, error) {
	var e TestEntry
	if _, err := dec.DecodeArrayLen(); err != nil {
		return e, fmt.Errorf("failed to decode entry array length: %w", err)
	}
	t, err := decodeTestTime(dec)
	if err != nil {
		return e, err
	}
	rec, err := dec.DecodeMap()
	if err != nil {
		return e, fmt.Errorf("failed to decode the record field: %v", err)
	}
	return TestEntry{Time: t, Record: rec}, nil
}

func decodeTestTime(dec *msgpack.Decoder) (time.Time, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read type code for the time field: %v", err)
	}
	if code == msgpcode.FixExt8 {
		var et EventTime
		if err := dec.Decode(&et); err != nil {
			return time.Time{}, fmt.Errorf("failed to decode the time field: %v", err)
		}
		return et.Time(), nil
	}
	unix, err := dec.DecodeInt64()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode the time field: %v", err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

type testServer struct {
	listener  net.Listener
	messageCh chan *TestMessage
	port      int
	*testServerOptions
}

const testHost = "127.0.0.1"
const testTag = "test-tag"

type testServerOptions struct {
	verbose bool

	// skipACKs makes the server ignore ACK requests
	skipACKs bool
}

func newTestServer(opts *testServerOptions) (*testServer, error) {
	if opts == nil {
		opts = &testServerOptions{}
	}

	s := &testServer{
		messageCh:         make(chan *TestMessage, 128),
		testServerOptions: opts,
	}

	// use port 0 to assign dynamically
	l, err := net.Listen("tcp", net.JoinHostPort(testHost, "0"))
	if err != nil {
		return nil, fmt.Errorf("failed to start test server listener: %v", err)
	}
	s.listener = l

	_, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return nil, fmt.Errorf("bad listener addr: %v", err)
	}
	if s.port, err = strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("invalid port value: '%s': %v", port, err)
	}

	// start the server loop
	go func() {
		s.debug("starting listener")
		for {
			conn, err := l.Accept()
			if err != nil {
				s.debug("listener closed: %v", err)
				return
			}
			s.debug("new client connected")
			go s.handle(conn)
		}
	}()

	return s, nil
}

func (s *testServer) Shutdown() {
	s.listener.Close()
}

func (s *testServer) handle(conn net.Conn) {
	d := msgpack.NewDecoder(conn)
	e := msgpack.NewEncoder(conn)

	for {
		m := new(TestMessage)
		if err := d.Decode(m); err != nil {
			s.debug("failed to decode Fluent message: %v\n", err)
			break
		}
		if chunk, ok := m.Option["chunk"]; ok && !s.skipACKs {
			if err := e.Encode(map[string]any{"ack": chunk}); err != nil {
				s.debug("failed to send ACK: %v\n", err)
				break
			}
		}
		s.messageCh <- m
	}

	s.debug("closing connection")
	conn.Close()
}

func (s *testServer) receive(timeout time.Duration) (*TestMessage, error) {
	select {
	case m := <-s.messageCh:
		return m, nil
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for a message")
	}
}

func (s *testServer) debug(format string, args ...any) {
	if !s.verbose {
		return
	}
	InternalLogger().Printf("testServer: "+format, args...)
}

// testSink is a Sink that records the groups put into it rather than send
// them anywhere.
type testSink struct {
	mu       sync.Mutex
	groups   []*EventGroup
	shutdown bool
}

func (s *testSink) Put(_ context.Context, g *EventGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, g)
	return nil
}

func (s *testSink) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	return nil
}

func (s *testSink) received() []*EventGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*EventGroup(nil), s.groups...)
}

// logs returns the contents of every LogEvent received so far, in order.
func (s *testSink) logs() []map[string]string {
	var res []map[string]string
	for _, g := range s.received() {
		for _, ev := range g.Events() {
			le := MustAs[*LogEvent](ev)
			m := make(map[string]string, le.Len())
			for _, c := range le.Contents() {
				m[string(c.Key)] = string(c.Value)
			}
			res = append(res, m)
		}
	}
	return res
}
