package mindroidplugin

import (
	"net"
	"sync"
)

// wireConnection serializes writes to a TCP connection through a buffered
// channel, mirroring the Reader/Writer thread pair in Mindroid.cpp: reads
// happen directly on the caller's goroutine, writes are queued and drained
// by a single dedicated goroutine so concurrent senders never interleave
// frames on the wire.
type wireConnection struct {
	conn      net.Conn
	writeCh   chan *frame
	done      chan struct{}
	closeOnce sync.Once
}

func newWireConnection(conn net.Conn, queueSize int) *wireConnection {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &wireConnection{
		conn:    conn,
		writeCh: make(chan *frame, queueSize),
		done:    make(chan struct{}),
	}
}

func (c *wireConnection) writeLoop() {
	for {
		select {
		case f := <-c.writeCh:
			if err := writeFrame(c.conn, f); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// send enqueues f for writing. It silently drops the frame once the
// connection is closing, matching the original's best-effort shutdown
// writes.
func (c *wireConnection) send(f *frame) {
	select {
	case c.writeCh <- f:
	case <-c.done:
	}
}

func (c *wireConnection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
