package conduit

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dialConduit connects to a conduit address the way the external process
// would, resolving the scheme back to a network dial.
func dialConduit(t *testing.T, addr string) net.Conn {
	t.Helper()

	var conn net.Conn
	var err error
	switch {
	case strings.HasPrefix(addr, "unix://"):
		conn, err = net.Dial("unix", strings.TrimPrefix(addr, "unix://"))
	case strings.HasPrefix(addr, "tcp://"):
		conn, err = net.Dial("tcp", strings.TrimPrefix(addr, "tcp://"))
	default:
		t.Fatalf("unexpected conduit address: %s", addr)
	}
	if err != nil {
		t.Fatalf("failed to dial conduit %s: %v", addr, err)
	}
	return conn
}

func waitDone(t *testing.T, c *Conduit) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for conduit to finish")
	}
}

// recordingSink captures written bytes and counts Close calls.
type recordingSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closes int
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *recordingSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *recordingSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// failingSink errors on every write and records how many were attempted.
type failingSink struct {
	mu     sync.Mutex
	writes int
	closes int
}

func (s *failingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return 0, errors.New("sink rejected write")
}

func (s *failingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func TestSourceConduitDeliversReader(t *testing.T) {
	c, err := NewSource(strings.NewReader("stream payload"), testLogger())
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer c.Close()

	conn := dialConduit(t, c.Addr())
	defer conn.Close()

	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("failed to read from conduit: %v", err)
	}
	if string(data) != "stream payload" {
		t.Errorf("expected %q, got %q", "stream payload", string(data))
	}
	waitDone(t, c)
}

func TestSourceConduitReadErrorTerminatesEarly(t *testing.T) {
	r := io.MultiReader(strings.NewReader("partial"), errReader{})
	c, err := NewSource(r, testLogger())
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer c.Close()

	conn := dialConduit(t, c.Addr())
	defer conn.Close()

	// The connection must end rather than hang once the reader errors.
	data, _ := io.ReadAll(conn)
	if string(data) != "partial" {
		t.Errorf("expected %q before termination, got %q", "partial", string(data))
	}
	waitDone(t, c)
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("upstream failed") }

func TestSinkConduitFanOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	c, err := NewSink([]io.WriteCloser{a, b}, testLogger())
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer c.Close()

	conn := dialConduit(t, c.Addr())
	if _, err := conn.Write([]byte("chunk-a")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := conn.Write([]byte("chunk-b")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	conn.Close()
	waitDone(t, c)

	for name, sink := range map[string]*recordingSink{"first": a, "second": b} {
		if got := sink.String(); got != "chunk-achunk-b" {
			t.Errorf("%s sink got %q, want %q", name, got, "chunk-achunk-b")
		}
		if n := sink.closeCount(); n != 1 {
			t.Errorf("%s sink closed %d times, want exactly once", name, n)
		}
	}
}

func TestSinkConduitSkipsFailedSink(t *testing.T) {
	bad := &failingSink{}
	good := &recordingSink{}
	c, err := NewSink([]io.WriteCloser{bad, good}, testLogger())
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer c.Close()

	conn := dialConduit(t, c.Addr())
	if _, err := conn.Write([]byte("payload")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	conn.Close()
	waitDone(t, c)

	if got := good.String(); got != "payload" {
		t.Errorf("healthy sink got %q, want %q", got, "payload")
	}
	bad.mu.Lock()
	writes, closes := bad.writes, bad.closes
	bad.mu.Unlock()
	if writes != 1 {
		t.Errorf("failed sink saw %d writes, want 1 (no retries)", writes)
	}
	if closes != 1 {
		t.Errorf("failed sink closed %d times, want exactly once", closes)
	}
}

func TestSinkClosedWithoutConnection(t *testing.T) {
	sink := &recordingSink{}
	c, err := NewSink([]io.WriteCloser{sink}, testLogger())
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	// Simulates the launch-failure path: the owner closes the conduit
	// before the external process ever connected.
	c.Close()
	waitDone(t, c)

	if n := sink.closeCount(); n != 1 {
		t.Errorf("sink closed %d times, want exactly once", n)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	c, err := NewSink([]io.WriteCloser{sink}, testLogger())
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	c.Close()
	c.Close()
	waitDone(t, c)

	if n := sink.closeCount(); n != 1 {
		t.Errorf("sink closed %d times after double close, want exactly once", n)
	}
}

func TestOneShotAccept(t *testing.T) {
	c, err := NewSource(strings.NewReader("once"), testLogger())
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer c.Close()

	conn := dialConduit(t, c.Addr())
	if _, err := io.ReadAll(conn); err != nil {
		t.Fatalf("first connection failed: %v", err)
	}
	conn.Close()
	waitDone(t, c)

	addr := strings.TrimPrefix(c.Addr(), "unix://")
	addr = strings.TrimPrefix(addr, "tcp://")
	network := "unix"
	if strings.HasPrefix(c.Addr(), "tcp://") {
		network = "tcp"
	}
	if second, err := net.Dial(network, addr); err == nil {
		second.Close()
		t.Error("expected second connection to be refused after one-shot accept")
	}
}

func TestAddressesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		c, err := NewSource(strings.NewReader(""), testLogger())
		if err != nil {
			t.Fatalf("NewSource failed: %v", err)
		}
		if seen[c.Addr()] {
			t.Errorf("duplicate conduit address generated: %s", c.Addr())
		}
		seen[c.Addr()] = true
		c.Close()
	}
}

func TestCloseMidConnectionDrainsSink(t *testing.T) {
	sink := &recordingSink{}
	c, err := NewSink([]io.WriteCloser{sink}, testLogger())
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	conn := dialConduit(t, c.Addr())

	if _, err := conn.Write([]byte("A")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	// Wait until the first chunk has landed so Close races only the tail.
	deadline := time.Now().Add(5 * time.Second)
	for sink.String() != "A" {
		if time.Now().After(deadline) {
			t.Fatalf("first chunk never delivered, sink has %q", sink.String())
		}
		time.Sleep(time.Millisecond)
	}

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	if _, err := conn.Write([]byte("B")); err != nil {
		t.Fatalf("late write failed: %v", err)
	}
	conn.Close()

	waitDone(t, c)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Close to return")
	}

	if got := sink.String(); got != "AB" {
		t.Errorf("bytes written before end-of-data were dropped: got %q, want %q", got, "AB")
	}
	if sink.closeCount() != 1 {
		t.Errorf("expected exactly one sink close, got %d", sink.closeCount())
	}
}
