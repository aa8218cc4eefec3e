// Package dat implements rtxlink's Data Transfer channel: a block-numbered,
// stop-and-wait bulk transfer used after an FMP DUMP/FLASH handshake to
// move a whole memory image.
package dat

import (
	"fmt"
	"os"

	"github.com/OpenRTX/rtxlink-go/pkg/errno"
	"github.com/OpenRTX/rtxlink-go/pkg/link"
	"github.com/OpenRTX/rtxlink-go/pkg/rtxerr"
)

// BlockSize is the total DAT frame size including the two-byte block
// header; PayloadSize is what's left for data.
const (
	BlockSize   = 1024
	PayloadSize = BlockSize - 2
)

const ack byte = 0x06

// Progress reports how many of Total bytes have moved so far. Progress
// updates are lossy: if the consumer isn't ready to receive, the update is
// dropped rather than blocking the transfer.
type Progress struct {
	Done, Total int
}

func report(ch chan<- Progress, done, total int) {
	if ch == nil {
		return
	}
	select {
	case ch <- Progress{Done: done, Total: total}:
	default:
	}
}

// Channel is the DAT sub-protocol bound to one link.
type Channel struct {
	link *link.Link
}

// New returns a DAT channel operating over l.
func New(l *link.Link) *Channel {
	return &Channel{link: l}
}

func sendAck(h *link.Handle) error {
	return h.Send(link.Frame{Proto: link.DAT, Data: []byte{ack}})
}

// Receive creates (or truncates) path and receives exactly size bytes into
// it via the DAT protocol's block-numbered ACK loop. A bad block number,
// a framing error, or an I/O error aborts the transfer without rewinding
// the partially written file.
func (c *Channel) Receive(path string, size int, progress chan<- Progress) error {
	h := c.link.Acquire()
	defer h.Release()
	h.SetTimeout(link.ReplyTimeout)
	defer h.SetTimeout(link.InteractiveTimeout)

	f, err := os.Create(path)
	if err != nil {
		return &rtxerr.IoError{Op: "create " + path, Err: err}
	}
	defer f.Close()

	if err := sendAck(h); err != nil {
		return err
	}

	received := 0
	prevBlock := 0 // block numbering starts at 1, so (prevBlock+1)&0xff is the first expected block
	for received != size {
		var frame link.Frame
		for {
			frame, err = h.Receive()
			if err != nil {
				return err
			}
			if frame.Proto == link.DAT {
				break
			}
		}

		if len(frame.Data) < 2 {
			return &rtxerr.ProtocolError{Msg: "DAT block shorter than its 2-byte header"}
		}
		blockNo := int(frame.Data[0])
		invBlockNo := int(frame.Data[1])
		if (blockNo+invBlockNo)&0xff != 0xff {
			return &rtxerr.ProtocolError{Msg: fmt.Sprintf("DAT block %d: inverse %d does not complement it", blockNo, invBlockNo)}
		}
		if blockNo != (prevBlock+1)&0xff {
			return &rtxerr.ProtocolError{Msg: fmt.Sprintf("DAT block out of sequence: expected %d, got %d", (prevBlock+1)&0xff, blockNo)}
		}
		prevBlock = blockNo

		payload := frame.Data[2:]
		if _, err := f.Write(payload); err != nil {
			return &rtxerr.IoError{Op: "write " + path, Err: err}
		}
		received += len(payload)
		report(progress, received, size)

		if err := sendAck(h); err != nil {
			return err
		}
	}
	return nil
}

// Send reads exactly size bytes from path and transmits them via the DAT
// protocol's block-numbered ACK loop. Each block is sent and its ACK
// awaited within a single link acquisition, closing the race window
// spec.md §9 flags in the split acquire-per-block/re-acquire-for-ack
// approach.
func (c *Channel) Send(path string, size int, progress chan<- Progress) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &rtxerr.IoError{Op: "read " + path, Err: err}
	}
	if len(data) != size {
		return &rtxerr.SizeMismatch{Want: size, Got: len(data)}
	}

	blocks := (size + PayloadSize - 1) / PayloadSize
	if blocks == 0 {
		blocks = 1 // an empty memory still exchanges one empty final block
	}

	sent := 0
	for i := 1; i <= blocks; i++ {
		start := (i - 1) * PayloadSize
		end := start + PayloadSize
		if end > size {
			end = size
		}
		chunk := data[start:end]

		blockNo := byte(i)
		frameData := make([]byte, 0, 2+len(chunk))
		frameData = append(frameData, blockNo, 255-blockNo)
		frameData = append(frameData, chunk...)

		if err := c.sendBlockAndAwaitAck(frameData); err != nil {
			return err
		}
		sent += len(chunk)
		report(progress, sent, size)
	}
	return nil
}

func (c *Channel) sendBlockAndAwaitAck(frameData []byte) error {
	h := c.link.Acquire()
	defer h.Release()

	if err := h.Send(link.Frame{Proto: link.DAT, Data: frameData}); err != nil {
		return err
	}

	h.SetTimeout(link.ReplyTimeout)
	defer h.SetTimeout(link.InteractiveTimeout)

	for {
		frame, err := h.Receive()
		if err != nil {
			return err
		}
		if frame.Proto != link.DAT {
			continue
		}
		if len(frame.Data) < 1 {
			return &rtxerr.ProtocolError{Msg: "empty DAT ACK"}
		}
		if frame.Data[0] == ack {
			return nil
		}
		return &rtxerr.PeerError{Code: errno.FromByte(frame.Data[0])}
	}
}
