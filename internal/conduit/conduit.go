// Package conduit provides ephemeral local rendezvous endpoints that bridge
// in-process byte streams to an external process that only understands
// path-like or URL-like arguments. Each conduit binds a listener immediately,
// accepts exactly one connection, and then stops listening.
package conduit

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/smazurov/ffdrive/internal/logging"
)

// bindAttempts bounds how many fresh addresses are tried when a bind fails.
const bindAttempts = 3

// drainTimeout bounds how long Close waits for an in-flight sink transfer
// to reach end-of-data before the sinks are closed underneath it.
const drainTimeout = 5 * time.Second

// Direction says which way bytes flow relative to the external process.
type Direction int

const (
	// DirSource means the process reads from the conduit.
	DirSource Direction = iota
	// DirSink means the process writes to the conduit.
	DirSink
)

func (d Direction) String() string {
	if d == DirSource {
		return "source"
	}
	return "sink"
}

// Conduit is one allocated endpoint. It listens from the moment it is
// created and serves at most one connection.
type Conduit struct {
	addr     string
	dir      Direction
	listener net.Listener

	reader io.Reader        // set for DirSource
	sinks  []io.WriteCloser // set for DirSink

	logger logging.Logger

	done      chan struct{}
	closeOnce sync.Once
	sinkOnce  sync.Once
}

// NewSource allocates a conduit the external process will read from. Bytes
// are copied from r to the first (and only) accepted connection.
func NewSource(r io.Reader, logger logging.Logger) (*Conduit, error) {
	c, err := newConduit(DirSource, logger)
	if err != nil {
		return nil, err
	}
	c.reader = r
	go c.serve()
	return c, nil
}

// NewSink allocates a conduit the external process will write to. Every
// received chunk is written to all sinks in order; on end-of-data all sinks
// are closed exactly once.
func NewSink(sinks []io.WriteCloser, logger logging.Logger) (*Conduit, error) {
	c, err := newConduit(DirSink, logger)
	if err != nil {
		return nil, err
	}
	c.sinks = sinks
	go c.serve()
	return c, nil
}

func newConduit(dir Direction, logger logging.Logger) (*Conduit, error) {
	if logger == nil {
		logger = logging.GetLogger("conduit")
	}

	var lastErr error
	for i := 0; i < bindAttempts; i++ {
		listener, addr, err := bindListener()
		if err != nil {
			lastErr = err
			logger.Warn("Conduit bind failed, retrying with fresh address",
				"direction", dir.String(), "attempt", i+1, "error", err)
			continue
		}
		return &Conduit{
			addr:     addr,
			dir:      dir,
			listener: listener,
			logger:   logger,
			done:     make(chan struct{}),
		}, nil
	}
	return nil, fmt.Errorf("failed to bind conduit listener after %d attempts: %w", bindAttempts, lastErr)
}

// Addr returns the address the external process should open. The process
// dereferences it as if it were a file.
func (c *Conduit) Addr() string {
	return c.addr
}

// Direction reports which way bytes flow through the conduit.
func (c *Conduit) Direction() Direction {
	return c.dir
}

// Done is closed once the conduit has finished serving its single
// connection, or once Close is called before a connection arrived.
func (c *Conduit) Done() <-chan struct{} {
	return c.done
}

// serve accepts the single connection and bridges it. The listener is
// closed right after the accept so no further connections are possible.
func (c *Conduit) serve() {
	defer close(c.done)

	conn, err := c.listener.Accept()
	// One connection per conduit. Closing the listener here refuses any
	// later dial attempt instead of queueing it.
	c.listener.Close()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			c.logger.Error("Conduit accept failed", "address", c.addr, "error", err)
		}
		if c.dir == DirSink {
			c.closeSinks()
		}
		return
	}
	defer conn.Close()

	c.logger.Debug("Conduit connected", "address", c.addr, "direction", c.dir.String())

	switch c.dir {
	case DirSource:
		c.bridgeSource(conn)
	case DirSink:
		c.bridgeSink(conn)
	}
}

// bridgeSource copies the in-process reader to the connection. A read error
// terminates the connection early so the process does not wait forever.
func (c *Conduit) bridgeSource(conn net.Conn) {
	if _, err := io.Copy(conn, c.reader); err != nil {
		c.logger.Warn("Conduit source transfer ended early", "address", c.addr, "error", err)
	}
}

// bridgeSink fans received chunks out to every sink in order. A sink that
// errors is remembered and skipped for the rest of the transfer, never
// retried. End-of-data closes all sinks through closeSinks.
func (c *Conduit) bridgeSink(conn net.Conn) {
	defer c.closeSinks()

	failed := make([]bool, len(c.sinks))
	buf := make([]byte, 32*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for i, w := range c.sinks {
				if failed[i] {
					continue
				}
				if _, werr := w.Write(chunk); werr != nil {
					failed[i] = true
					c.logger.Warn("Conduit sink write failed, skipping sink",
						"address", c.addr, "sink", i, "error", werr)
				}
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("Conduit sink transfer ended early", "address", c.addr, "error", err)
			}
			return
		}
	}
}

// closeSinks closes every registered sink exactly once, even when the
// conduit is closed and the connection finishes concurrently.
func (c *Conduit) closeSinks() {
	c.sinkOnce.Do(func() {
		for i, w := range c.sinks {
			if err := w.Close(); err != nil {
				c.logger.Warn("Conduit sink close failed", "address", c.addr, "sink", i, "error", err)
			}
		}
	})
}

// Close shuts the conduit down. It is idempotent. The listener is closed
// first, which unblocks a pending accept; for sink conduits Close then
// waits, bounded by drainTimeout, for an in-flight transfer to deliver its
// remaining chunks before the sinks are closed. Bytes the peer already
// wrote are never cut off by a racing Close.
func (c *Conduit) Close() error {
	c.closeOnce.Do(func() {
		c.listener.Close()
		if c.dir == DirSink {
			select {
			case <-c.done:
			case <-time.After(drainTimeout):
				c.logger.Warn("Conduit close timed out waiting for sink drain", "address", c.addr)
			}
			c.closeSinks()
		}
	})
	return nil
}
