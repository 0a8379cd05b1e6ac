// Package endpoint provides a uniform Read/Write capability over the three
// concrete I/O surfaces the bridge proxies between: the USB accessory
// character device, a TCP socket, and a split read/write pair over one
// shared handle. Every Endpoint is safe to Close from whichever
// goroutine is the last to finish with it.
package endpoint

import "io"

// Endpoint is the capability the frame reader and proxy worker read
// from and write to. A single Endpoint value is held by exactly one reader
// goroutine and one writer goroutine for the lifetime of a session;
// both release their reference on session teardown.
type Endpoint interface {
	io.Reader
	io.Writer

	// Close releases this holder's reference to the endpoint.
	// FileEndpoint and StreamEndpoint close the underlying handle on the
	// first call; a SplitEndpoint pair closes it only once both halves
	// have called Close.
	Close() error
}
