// Package cat implements rtxlink's Computer-Aided Transceiver channel: a
// synchronous GET/SET/DATA/ACK exchange used for small queries and mode
// transitions.
package cat

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/OpenRTX/rtxlink-go/pkg/errno"
	"github.com/OpenRTX/rtxlink-go/pkg/link"
	"github.com/OpenRTX/rtxlink-go/pkg/rtxerr"
)

// Opcode is the CAT message's leading byte.
type Opcode byte

const (
	OpGet  Opcode = 0x47 // 'G'
	OpSet  Opcode = 0x53 // 'S'
	OpData Opcode = 0x44 // 'D'
	OpAck  Opcode = 0x41 // 'A'
)

// ID is a 16-bit, big-endian parameter identifier.
type ID uint16

const (
	IDInfo         ID = 0x494E // "IN"
	IDFreqRX       ID = 0x5246 // "RF"
	IDFreqTX       ID = 0x5446 // "TF"
	IDFileTransfer ID = 0x4654 // "FT"
)

// Kind selects which frequency a Freq/SetFreq call addresses.
type Kind int

const (
	RX Kind = iota
	TX
)

func (k Kind) id() ID {
	if k == TX {
		return IDFreqTX
	}
	return IDFreqRX
}

// Channel is the CAT sub-protocol bound to one link.
type Channel struct {
	link *link.Link
}

// New returns a CAT channel operating over l.
func New(l *link.Link) *Channel {
	return &Channel{link: l}
}

// Get issues a GET for id and returns its payload. A DATA reply's payload
// is returned directly; an ACK with status 0 yields an empty payload; an
// ACK with non-zero status surfaces as a PeerError.
func (c *Channel) Get(id ID) ([]byte, error) {
	h := c.link.Acquire()
	defer h.Release()
	h.SetTimeout(link.ReplyTimeout)
	defer h.SetTimeout(link.InteractiveTimeout)

	req := []byte{byte(OpGet), byte(id >> 8), byte(id)}
	if err := h.Send(link.Frame{Proto: link.CAT, Data: req}); err != nil {
		return nil, err
	}

	for {
		f, err := h.Receive()
		if err != nil {
			return nil, err
		}
		if f.Proto != link.CAT {
			continue
		}
		if len(f.Data) < 1 {
			return nil, &rtxerr.ProtocolError{Msg: "empty CAT reply"}
		}
		switch Opcode(f.Data[0]) {
		case OpData:
			return f.Data[1:], nil
		case OpAck:
			if len(f.Data) < 2 {
				return nil, &rtxerr.ProtocolError{Msg: "ACK missing status byte"}
			}
			status := errno.FromByte(f.Data[1])
			if status != errno.OK {
				return nil, &rtxerr.PeerError{Code: status}
			}
			return nil, nil
		default:
			return nil, &rtxerr.ProtocolError{Msg: fmt.Sprintf("unexpected CAT opcode 0x%02x", f.Data[0])}
		}
	}
}

// Set issues a SET for id with payload and expects an ACK.
func (c *Channel) Set(id ID, payload []byte) error {
	h := c.link.Acquire()
	defer h.Release()
	h.SetTimeout(link.ReplyTimeout)
	defer h.SetTimeout(link.InteractiveTimeout)

	req := make([]byte, 0, 3+len(payload))
	req = append(req, byte(OpSet), byte(id>>8), byte(id))
	req = append(req, payload...)
	if err := h.Send(link.Frame{Proto: link.CAT, Data: req}); err != nil {
		return err
	}

	for {
		f, err := h.Receive()
		if err != nil {
			return err
		}
		if f.Proto != link.CAT {
			continue
		}
		if len(f.Data) < 2 || Opcode(f.Data[0]) != OpAck {
			return &rtxerr.ProtocolError{Msg: "expected CAT ACK"}
		}
		status := errno.FromByte(f.Data[1])
		if status != errno.OK {
			return &rtxerr.PeerError{Code: status}
		}
		return nil
	}
}

// Info returns the radio's device name, the UTF-8 decode of an INFO reply.
func (c *Channel) Info() (string, error) {
	payload, err := c.Get(IDInfo)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// Freq returns kind's frequency in megahertz, decoded from a little-endian
// u32 Hz wire value.
func (c *Channel) Freq(kind Kind) (float64, error) {
	payload, err := c.Get(kind.id())
	if err != nil {
		return 0, err
	}
	if len(payload) < 4 {
		return 0, &rtxerr.ProtocolError{Msg: "FREQ reply shorter than 4 bytes"}
	}
	hz := binary.LittleEndian.Uint32(payload)
	return float64(hz) / 1e6, nil
}

// SetFreq sets kind's frequency to megahertz, converting to Hz. Frequencies
// that land on an exact Hz value round-trip exactly; math.Round (rather
// than truncation) is used so float64 representation error in MHz*1e6
// doesn't shave a Hz off an otherwise-exact value.
func (c *Channel) SetFreq(kind Kind, megahertz float64) error {
	hz := uint32(math.Round(megahertz * 1e6))
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, hz)
	return c.Set(kind.id(), payload)
}

// EnterFileTransferMode asks the radio to switch into FMP mode.
func (c *Channel) EnterFileTransferMode() error {
	return c.Set(IDFileTransfer, nil)
}
