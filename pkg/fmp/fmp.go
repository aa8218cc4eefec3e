// Package fmp implements rtxlink's File Management Protocol channel: a
// typed opcode table over length-prefixed parameters, used to enumerate
// memory regions and initiate dump/flash handshakes.
package fmp

import (
	"fmt"

	"github.com/OpenRTX/rtxlink-go/pkg/errno"
	"github.com/OpenRTX/rtxlink-go/pkg/link"
	"github.com/OpenRTX/rtxlink-go/pkg/rtxerr"
)

// Opcode identifies an FMP command or response.
type Opcode byte

const (
	OpACK     Opcode = 0x00
	OpMemInfo Opcode = 0x01
	OpDump    Opcode = 0x02
	OpFlash   Opcode = 0x03
	OpRead    Opcode = 0x04
	OpWrite   Opcode = 0x05
	OpList    Opcode = 0x06
	OpMove    Opcode = 0x07
	OpCopy    Opcode = 0x08
	OpMkdir   Opcode = 0x09
	OpRm      Opcode = 0x0A
	OpReset   Opcode = 0xFF
)

// Channel is the FMP sub-protocol bound to one link.
type Channel struct {
	link *link.Link
}

// New returns an FMP channel operating over l.
func New(l *link.Link) *Channel {
	return &Channel{link: l}
}

// SendCmd acquires the link, builds [opcode, len(params), (paramLen,
// paramBytes)*], sends it, and releases.
func (c *Channel) SendCmd(opcode Opcode, params [][]byte) error {
	h := c.link.Acquire()
	defer h.Release()
	return sendCmd(h, opcode, params)
}

func sendCmd(h *link.Handle, opcode Opcode, params [][]byte) error {
	if len(params) > 0xff {
		return &rtxerr.ProtocolError{Msg: fmt.Sprintf("too many FMP params: %d", len(params))}
	}
	body := []byte{byte(opcode), byte(len(params))}
	for _, p := range params {
		if len(p) > 0xff {
			return &rtxerr.ProtocolError{Msg: fmt.Sprintf("FMP param too long: %d bytes", len(p))}
		}
		body = append(body, byte(len(p)))
		body = append(body, p...)
	}
	return h.Send(link.Frame{Proto: link.FMP, Data: body})
}

// WaitReply acquires the link, drains non-FMP frames, parses a response of
// the form [opcode, status, paramCount, paramLen_0..paramLen_{n-1},
// param_0 ‖ … ‖ param_{n-1}], and releases. A mismatched opcode is a
// ProtocolError. A non-zero status is reported as a PeerError but the
// parameter table is still parsed and returned alongside it.
func (c *Channel) WaitReply(expected Opcode) ([][]byte, error) {
	h := c.link.Acquire()
	defer h.Release()
	return waitReply(h, expected)
}

func waitReply(h *link.Handle, expected Opcode) ([][]byte, error) {
	h.SetTimeout(link.ReplyTimeout)
	defer h.SetTimeout(link.InteractiveTimeout)

	var f link.Frame
	for {
		var err error
		f, err = h.Receive()
		if err != nil {
			return nil, err
		}
		if f.Proto == link.FMP {
			break
		}
	}

	if len(f.Data) < 3 {
		return nil, &rtxerr.ProtocolError{Msg: "FMP reply too short"}
	}
	if Opcode(f.Data[0]) != expected {
		return nil, &rtxerr.ProtocolError{Msg: fmt.Sprintf("expected FMP opcode 0x%02x, got 0x%02x", expected, f.Data[0])}
	}

	status := errno.FromByte(f.Data[1])
	paramCount := int(f.Data[2])
	rest := f.Data[3:]

	if len(rest) < paramCount {
		return nil, &rtxerr.ProtocolError{Msg: "FMP reply param-length vector truncated"}
	}
	lens := rest[:paramCount]
	body := rest[paramCount:]

	params := make([][]byte, paramCount)
	offset := 0
	for i, l := range lens {
		n := int(l)
		if offset+n > len(body) {
			return nil, &rtxerr.ProtocolError{Msg: "FMP reply param body shorter than declared lengths"}
		}
		params[i] = body[offset : offset+n]
		offset += n
	}

	if status != errno.OK {
		return params, &rtxerr.PeerError{Code: status}
	}
	return params, nil
}
