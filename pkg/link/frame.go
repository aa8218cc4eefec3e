package link

import "fmt"

// ProtocolID identifies which sub-protocol a frame's payload belongs to.
type ProtocolID byte

const (
	STDIO ProtocolID = 0x00
	CAT   ProtocolID = 0x01
	FMP   ProtocolID = 0x02
	DAT   ProtocolID = 0x03
)

func (p ProtocolID) String() string {
	switch p {
	case STDIO:
		return "STDIO"
	case CAT:
		return "CAT"
	case FMP:
		return "FMP"
	case DAT:
		return "DAT"
	default:
		return fmt.Sprintf("ProtocolID(0x%02x)", byte(p))
	}
}

// Frame is one link-layer unit: a protocol ID and its payload. On the wire
// it is serialized as ProtoID ‖ Data ‖ CRC16 (little-endian), then
// SLIP-framed.
type Frame struct {
	Proto ProtocolID
	Data  []byte
}
