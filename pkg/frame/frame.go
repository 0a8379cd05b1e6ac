// Package frame reads projection-protocol frames off an endpoint.Endpoint
// and publishes them on a bounded channel for a proxy worker to drain.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// BufferLen is the fixed size of the owned read buffer. A frame whose
	// total header+body length would exceed it is malformed.
	BufferLen = 16 * 1024

	// HeaderLen is the short header length: channel, flags, len (BE u16).
	HeaderLen = 4

	// ExtendedHeaderLen is the header length when the FIRST fragment flag
	// is set: HeaderLen plus a 4-byte total_len.
	ExtendedHeaderLen = 8

	// FrameTypeMask isolates the 2-bit frame-type field in flags.
	FrameTypeMask = 0b0011
	// FrameTypeFirst marks the first fragment of a multi-fragment payload.
	FrameTypeFirst = 0b0010

	// ChannelCapacity is the bounded size of the outbound Packet channel.
	ChannelCapacity = 10
)

// ErrFrameOversize is returned when a frame's declared length would not
// fit the fixed read buffer.
var ErrFrameOversize = errors.New("frame: header+body exceeds buffer length")

// Packet is one projection-protocol frame, preserved header-and-body-intact
// so a proxy worker can re-serialize it byte-for-byte.
type Packet struct {
	Channel byte
	Flags   byte
	// TotalLen is only meaningful when Flags&FrameTypeMask == FrameTypeFirst;
	// it is the declared total payload length across fragments.
	TotalLen uint32
	Body     []byte
}

// IsFirstFragment reports whether p carries the extended 8-byte header.
func (p Packet) IsFirstFragment() bool {
	return p.Flags&FrameTypeMask == FrameTypeFirst
}

// Encode re-serializes p to wire form, byte-identical to what a Reader
// would have consumed to produce it.
func (p Packet) Encode() []byte {
	if p.IsFirstFragment() {
		buf := make([]byte, ExtendedHeaderLen+len(p.Body))
		buf[0] = p.Channel
		buf[1] = p.Flags
		binary.BigEndian.PutUint16(buf[2:4], uint16(len(p.Body)))
		binary.BigEndian.PutUint32(buf[4:8], p.TotalLen)
		copy(buf[8:], p.Body)
		return buf
	}
	buf := make([]byte, HeaderLen+len(p.Body))
	buf[0] = p.Channel
	buf[1] = p.Flags
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(p.Body)))
	copy(buf[4:], p.Body)
	return buf
}

// Reader continuously reads frames from an io.Reader and publishes them on
// Packets. Close Packets is the caller's signal that the reader goroutine
// has exited; Reader itself closes it on EOF.
type Reader struct {
	src     io.Reader
	Packets chan Packet
	buf     []byte

	stop     chan struct{}
	stopOnce sync.Once
}

// NewReader allocates the owned 16 KiB buffer and the bounded output
// channel, and returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:     src,
		Packets: make(chan Packet, ChannelCapacity),
		buf:     make([]byte, BufferLen),
		stop:    make(chan struct{}),
	}
}

// Stop unblocks a Run goroutine that is parked sending a decoded Packet on
// Packets because its consumer has already exited. A caller that tears a
// session down after its first task finishes must call Stop on every other
// Reader it owns, or a Reader blocked on that send — not on its underlying
// Read, which closing the endpoint already unblocks — never returns. Safe
// to call more than once or concurrently with Run.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Run reads frames until EOF, a malformed frame, or an I/O error, closing
// Packets on any exit path. A zero-length read is treated as a clean EOF.
func (r *Reader) Run() error {
	defer close(r.Packets)

	header := make([]byte, ExtendedHeaderLen)
	for {
		n, err := io.ReadFull(r.src, header[:HeaderLen])
		if n == 0 && errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame: read header: %w", unexpectedEOF(err))
		}

		channel := header[0]
		flags := header[1]
		bodyLen := int(binary.BigEndian.Uint16(header[2:4]))

		var totalLen uint32
		headerLen := HeaderLen
		if flags&FrameTypeMask == FrameTypeFirst {
			if _, err := io.ReadFull(r.src, header[HeaderLen:ExtendedHeaderLen]); err != nil {
				return fmt.Errorf("frame: read extended header: %w", unexpectedEOF(err))
			}
			totalLen = binary.BigEndian.Uint32(header[4:8])
			headerLen = ExtendedHeaderLen
		}

		if headerLen+bodyLen > len(r.buf) {
			return ErrFrameOversize
		}

		body := make([]byte, bodyLen)
		if bodyLen > 0 {
			if _, err := io.ReadFull(r.src, body); err != nil {
				return fmt.Errorf("frame: read body: %w", unexpectedEOF(err))
			}
		}

		select {
		case r.Packets <- Packet{Channel: channel, Flags: flags, TotalLen: totalLen, Body: body}:
		case <-r.stop:
			return nil
		}
	}
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
