package endpoint

import (
	"errors"
	"io"
	"sync/atomic"
)

// ErrWrongDirection is returned when a read is attempted on a write-only
// half, or a write on a read-only half.
var ErrWrongDirection = errors.New("endpoint: operation not supported by this half")

// sharedHandle is the underlying connection behind a SplitEndpoint pair. It
// closes only once both the read-half and the write-half have released
// their reference — Go's garbage collector gives no last-reference-drop
// hook for an *os.File, so the reference count is explicit.
type sharedHandle struct {
	rw    io.ReadWriteCloser
	count atomic.Int32
}

func (h *sharedHandle) release() error {
	if h.count.Add(-1) == 0 {
		return h.rw.Close()
	}
	return nil
}

// NewSplitEndpoint wraps rw and returns independent read-half and
// write-half Endpoints. Neither half shares mutable state with the other;
// the underlying handle is only closed once both have been Closed.
func NewSplitEndpoint(rw io.ReadWriteCloser) (read, write *SplitEndpoint) {
	shared := &sharedHandle{rw: rw}
	shared.count.Store(2)
	return &SplitEndpoint{shared: shared, readable: true},
		&SplitEndpoint{shared: shared, readable: false}
}

// SplitEndpoint is one half (read or write) of a shared underlying handle.
type SplitEndpoint struct {
	shared   *sharedHandle
	readable bool
}

func (e *SplitEndpoint) Read(buf []byte) (int, error) {
	if !e.readable {
		return 0, ErrWrongDirection
	}
	return e.shared.rw.Read(buf)
}

func (e *SplitEndpoint) Write(buf []byte) (int, error) {
	if e.readable {
		return 0, ErrWrongDirection
	}
	return e.shared.rw.Write(buf)
}

// Close releases this half's reference. The shared handle closes once both
// halves have called Close.
func (e *SplitEndpoint) Close() error {
	return e.shared.release()
}
