package fmp

import (
	"bytes"
	"encoding/binary"

	"github.com/OpenRTX/rtxlink-go/pkg/rtxerr"
)

// MemInfoSize is the fixed wire layout of one MemInfo record: 4 bytes of
// little-endian size, 1 flags byte, 27 bytes of NUL-padded name.
const MemInfoSize = 4 + 1 + 27

// MemInfo describes one memory region, identified by its positional index
// in the MEMINFO response. It is immutable once decoded.
type MemInfo struct {
	Size  uint32
	Flags uint8
	Name  string
}

// decodeMemInfo reads one fixed-layout MemInfo record by explicit
// field offsets rather than reinterpreting the bytes in place — spec.md
// §9's recommended strategy, and a deliberate departure from
// original_source/src/fmp.rs's `data.align_to::<MemInfo>()`.
func decodeMemInfo(raw []byte) (MemInfo, error) {
	if len(raw) != MemInfoSize {
		return MemInfo{}, &rtxerr.ProtocolError{Msg: "MemInfo record is not 32 bytes"}
	}
	size := binary.LittleEndian.Uint32(raw[0:4])
	flags := raw[4]
	name := bytes.TrimRight(raw[5:32], "\x00 ")
	return MemInfo{Size: size, Flags: flags, Name: string(name)}, nil
}

// MemInfo issues a MEMINFO request and decodes each returned parameter as
// one MemInfo record.
func (c *Channel) MemInfo() ([]MemInfo, error) {
	if err := c.SendCmd(OpMemInfo, nil); err != nil {
		return nil, err
	}
	params, err := c.WaitReply(OpMemInfo)
	if err != nil {
		return nil, err
	}
	out := make([]MemInfo, len(params))
	for i, p := range params {
		mi, err := decodeMemInfo(p)
		if err != nil {
			return nil, err
		}
		out[i] = mi
	}
	return out, nil
}
