package btproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	// HeaderLength is the size in bytes of the fixed wire header: a 2-byte
	// big-endian body length followed by a 2-byte big-endian MessageID.
	HeaderLength = 4

	// MaxBodyLength is the largest body Send will accept; the length field
	// is a 16-bit unsigned wire integer.
	MaxBodyLength = 65535

	// Stages is the total number of handshake stages.
	Stages = 5
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("btproto: failed to build CBOR encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("btproto: failed to build CBOR decoder mode: %v", err))
	}
}

// Marshal encodes v (one of the Body structs) into its wire representation.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a body previously produced by Marshal into v.
func Unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// ProtocolMismatchError reports that a received frame's MessageID did not
// match what the handshake stage expected.
type ProtocolMismatchError struct {
	Got      MessageID
	Expected MessageID
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("handshake protocol mismatch: got %s, expected %s", e.Got, e.Expected)
}

// ErrPhoneWifiJoinFailed is returned by Recv when a WifiConnectStatus frame
// reports a nonzero status byte.
var ErrPhoneWifiJoinFailed = errors.New("phone failed to join the broadcast wifi network")

// Send prepends the 4-byte header to body and writes the frame in one
// call. body is already serialized: CBOR-marshaled by the caller via
// Marshal, or raw bytes. Returns the number of bytes written.
func Send(w io.Writer, stage int, id MessageID, body []byte) (int, error) {
	if len(body) > MaxBodyLength {
		return 0, fmt.Errorf("btproto: body of %d bytes exceeds max %d", len(body), MaxBodyLength)
	}

	frame := make([]byte, HeaderLength+len(body))
	binary.BigEndian.PutUint16(frame[0:2], uint16(len(body)))
	binary.BigEndian.PutUint16(frame[2:4], uint16(id))
	copy(frame[HeaderLength:], body)

	n, err := w.Write(frame)
	if err != nil {
		return n, fmt.Errorf("btproto: stage %d/%d: write %s frame: %w", stage, Stages, id, err)
	}
	return n, nil
}

// Recv reads exactly one frame: the 4-byte header, then its body. It fails
// with a *ProtocolMismatchError if the frame's id does not match expected,
// and with ErrPhoneWifiJoinFailed if expected is WifiConnectStatus and the
// body's second byte is nonzero. Recv does not enforce a deadline; any
// read timeout has to be set on r by the caller. elapsed is the time
// since started, returned for the caller's stage-transition log line.
func Recv(r io.Reader, stage int, expected MessageID, started time.Time) (n int, body []byte, elapsed time.Duration, err error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, time.Since(started), fmt.Errorf("btproto: stage %d/%d: read header: %w", stage, Stages, unexpectedEOF(err))
	}

	length := binary.BigEndian.Uint16(header[0:2])
	id := MessageID(binary.BigEndian.Uint16(header[2:4]))
	elapsed = time.Since(started)

	if id != expected {
		return 0, nil, elapsed, &ProtocolMismatchError{Got: id, Expected: expected}
	}

	body = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, nil, elapsed, fmt.Errorf("btproto: stage %d/%d: read body: %w", stage, Stages, unexpectedEOF(err))
		}
	}

	if expected == WifiConnectStatus && len(body) >= 2 && body[1] != 0 {
		return HeaderLength + len(body), body, elapsed, ErrPhoneWifiJoinFailed
	}

	return HeaderLength + len(body), body, elapsed, nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
