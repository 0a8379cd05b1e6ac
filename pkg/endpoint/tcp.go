package endpoint

import "net"

// StreamEndpoint wraps a plain byte stream — the MD or DHU TCP connection.
type StreamEndpoint struct {
	conn net.Conn
}

// NewStreamEndpoint wraps an already-accepted/dialed connection. Callers
// are responsible for TCP-specific tuning (TCP_NODELAY) before wrapping.
func NewStreamEndpoint(conn net.Conn) *StreamEndpoint {
	return &StreamEndpoint{conn: conn}
}

func (e *StreamEndpoint) Read(buf []byte) (int, error)  { return e.conn.Read(buf) }
func (e *StreamEndpoint) Write(buf []byte) (int, error) { return e.conn.Write(buf) }
func (e *StreamEndpoint) Close() error                  { return e.conn.Close() }
