package frame

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReaderEmitsFirstFragmentFrame(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 16)
	wire := []byte{0x01, 0x02, 0x00, 0x10, 0x00, 0x00, 0x01, 0x00}
	wire = append(wire, body...)

	r := NewReader(bytes.NewReader(wire))
	errc := make(chan error, 1)
	go func() { errc <- r.Run() }()

	pkt := <-r.Packets
	require.Equal(t, byte(0x01), pkt.Channel)
	require.Equal(t, byte(0x02), pkt.Flags)
	require.True(t, pkt.IsFirstFragment())
	require.Equal(t, uint32(0x100), pkt.TotalLen)
	require.Equal(t, body, pkt.Body)
	require.Equal(t, wire, pkt.Encode())

	require.NoError(t, <-errc)
}

func TestReaderEmitsShortHeaderFrame(t *testing.T) {
	wire := []byte{0x03, 0x00, 0x00, 0x03, 'h', 'i', '!'}

	r := NewReader(bytes.NewReader(wire))
	errc := make(chan error, 1)
	go func() { errc <- r.Run() }()

	pkt := <-r.Packets
	require.False(t, pkt.IsFirstFragment())
	require.Equal(t, []byte("hi!"), pkt.Body)
	require.Equal(t, wire, pkt.Encode())
	require.NoError(t, <-errc)
}

func TestReaderCleanEOFClosesChannel(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	require.NoError(t, r.Run())
	_, ok := <-r.Packets
	require.False(t, ok)
}

func TestReaderOversizeFrameFails(t *testing.T) {
	header := []byte{0x01, 0x00, 0xFF, 0xFF}
	r := NewReader(bytes.NewReader(header))
	r.buf = make([]byte, 8)
	err := r.Run()
	require.ErrorIs(t, err, ErrFrameOversize)
}

func TestReaderShortStreamFailsUnexpectedEOF(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01, 0x00}))
	err := r.Run()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// TestReaderStopUnblocksParkedSend reproduces the teardown scenario where a
// Reader has filled Packets and its consumer has already exited: Stop must
// unblock the goroutine parked sending on Packets so Run returns instead of
// blocking forever.
func TestReaderStopUnblocksParkedSend(t *testing.T) {
	wire := []byte{0x05, 0x00, 0x00, 0x01, 'x'}
	repeated := bytes.Repeat(wire, ChannelCapacity+1)

	r := NewReader(bytes.NewReader(repeated))
	errc := make(chan error, 1)
	go func() { errc <- r.Run() }()

	// Fill the channel but never drain it, leaving Run parked on the send
	// for the one frame that doesn't fit.
	time.Sleep(20 * time.Millisecond)

	r.Stop()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
