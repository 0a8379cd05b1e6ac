// Package btproto implements the length-prefixed Bluetooth handshake wire
// protocol used to bootstrap the wireless session: a short request/response
// exchange carried over RFCOMM before any TCP traffic flows.
package btproto

// MessageID identifies the payload carried by a handshake frame.
type MessageID uint16

// Handshake message identifiers, in wire order.
const (
	WifiStartRequest    MessageID = 1
	WifiInfoRequest     MessageID = 2
	WifiInfoResponse    MessageID = 3
	WifiVersionRequest  MessageID = 4
	WifiVersionResponse MessageID = 5
	WifiConnectStatus   MessageID = 6
	WifiStartResponse   MessageID = 7
)

func (id MessageID) String() string {
	switch id {
	case WifiStartRequest:
		return "WifiStartRequest"
	case WifiInfoRequest:
		return "WifiInfoRequest"
	case WifiInfoResponse:
		return "WifiInfoResponse"
	case WifiVersionRequest:
		return "WifiVersionRequest"
	case WifiVersionResponse:
		return "WifiVersionResponse"
	case WifiConnectStatus:
		return "WifiConnectStatus"
	case WifiStartResponse:
		return "WifiStartResponse"
	default:
		return "Unknown"
	}
}

// SecurityMode mirrors the projection protocol's AP security enum.
type SecurityMode int32

const (
	SecurityModeWPA2Personal SecurityMode = 2
)

// AccessPointType mirrors the projection protocol's AP type enum.
type AccessPointType int32

const (
	AccessPointTypeDynamic AccessPointType = 0
)

// WifiStartRequestBody carries the host's IP and TCP port for the phone to
// dial once it has joined the broadcast Wi-Fi network.
type WifiStartRequestBody struct {
	IPAddress string `cbor:"1,keyasint"`
	Port      int32  `cbor:"2,keyasint"`
}

// WifiInfoRequestBody is an opaque request from the phone; it carries no
// fields this bridge inspects.
type WifiInfoRequestBody struct{}

// WifiInfoResponseBody carries the Wi-Fi network the phone should join.
type WifiInfoResponseBody struct {
	SSID            string          `cbor:"1,keyasint"`
	Key             string          `cbor:"2,keyasint"`
	BSSID           string          `cbor:"3,keyasint"`
	SecurityMode    SecurityMode    `cbor:"4,keyasint"`
	AccessPointType AccessPointType `cbor:"5,keyasint"`
}

// WifiVersionRequestBody is unused by this bridge but kept for completeness
// of the MessageID space; the handshake driver never sends or expects it.
type WifiVersionRequestBody struct{}

// WifiVersionResponseBody is unused by this bridge; see WifiVersionRequestBody.
type WifiVersionResponseBody struct {
	MajorVersion int32 `cbor:"1,keyasint"`
	MinorVersion int32 `cbor:"2,keyasint"`
}

// WifiStartResponseBody is an opaque acknowledgement from the phone.
type WifiStartResponseBody struct{}

// WifiConnectStatusBody reports whether the phone successfully joined the
// broadcast Wi-Fi network. The bridge never decodes this struct: Recv reads
// the raw second byte of the wire body as the status, and byte[0] is
// assumed (not validated) to be a leading protobuf-style field tag.
type WifiConnectStatusBody struct {
	Tag    int32 `cbor:"1,keyasint"`
	Status int32 `cbor:"2,keyasint"`
}
