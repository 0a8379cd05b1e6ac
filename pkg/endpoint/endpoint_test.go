package endpoint

import (
	"io"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileEndpointReadWriteAtZero(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "usb-accessory")
	require.NoError(t, err)
	defer f.Close()

	ep := NewFileEndpoint(f)
	n, err := ep.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = ep.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestStreamEndpointRoundTrip(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	a := NewStreamEndpoint(c1)
	b := NewStreamEndpoint(c2)

	go func() {
		_, _ = a.Write([]byte("ping"))
	}()

	buf := make([]byte, 4)
	n, err := io.ReadFull(b, buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "ping", string(buf))
}

func TestSplitEndpointClosesOnceBothHalvesRelease(t *testing.T) {
	underlying := &closeCounter{}
	read, write := NewSplitEndpoint(underlying)

	_, err := read.Write([]byte("x"))
	require.ErrorIs(t, err, ErrWrongDirection)

	_, err = write.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrWrongDirection)

	require.NoError(t, read.Close())
	require.Equal(t, 0, underlying.closes)

	require.NoError(t, write.Close())
	require.Equal(t, 1, underlying.closes)
}

type closeCounter struct {
	closes int
}

func (c *closeCounter) Read(p []byte) (int, error)  { return 0, io.EOF }
func (c *closeCounter) Write(p []byte) (int, error) { return len(p), nil }
func (c *closeCounter) Close() error {
	c.closes++
	return nil
}
