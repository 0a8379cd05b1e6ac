package proxy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aawireless/aawg-bridge/pkg/frame"
)

func TestWorkerPassThroughIsByteExact(t *testing.T) {
	in := make(chan frame.Packet, 1)
	in <- frame.Packet{Channel: 1, Flags: 0, Body: []byte("hello")}
	close(in)

	var dst bytes.Buffer
	w := NewWorker(PhoneToCar, &dst, in, nil)
	require.NoError(t, w.Run())

	want := (frame.Packet{Channel: 1, Flags: 0, Body: []byte("hello")}).Encode()
	require.Equal(t, want, dst.Bytes())
	require.Equal(t, uint64(len(want)), w.BytesWritten.Load())
}

func TestWorkerFilterCanDropPacket(t *testing.T) {
	in := make(chan frame.Packet, 1)
	in <- frame.Packet{Channel: 2, Body: []byte("drop me")}
	close(in)

	var dst bytes.Buffer
	drop := FilterFunc(func(dir Direction, pkt frame.Packet) (*frame.Packet, error) {
		return nil, nil
	})
	w := NewWorker(CarToPhone, &dst, in, drop)
	require.NoError(t, w.Run())
	require.Equal(t, 0, dst.Len())
	require.Equal(t, uint64(0), w.BytesWritten.Load())
}

func TestWorkerFilterCanRewritePacket(t *testing.T) {
	in := make(chan frame.Packet, 1)
	in <- frame.Packet{Channel: 3, Body: []byte("original")}
	close(in)

	var dst bytes.Buffer
	rewrite := FilterFunc(func(dir Direction, pkt frame.Packet) (*frame.Packet, error) {
		pkt.Body = []byte("rewritten")
		return &pkt, nil
	})
	w := NewWorker(PhoneToCar, &dst, in, rewrite)
	require.NoError(t, w.Run())

	want := (frame.Packet{Channel: 3, Body: []byte("rewritten")}).Encode()
	require.Equal(t, want, dst.Bytes())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, bytes.ErrTooLarge }

func TestWorkerStopsOnWriteError(t *testing.T) {
	in := make(chan frame.Packet, 1)
	in <- frame.Packet{Channel: 1, Body: []byte("x")}
	close(in)

	w := NewWorker(PhoneToCar, failingWriter{}, in, nil)
	require.Error(t, w.Run())
}
