// Package link owns the serial port shared by rtxlink's sub-protocols: it
// wraps/unwraps frames, computes and checks the CRC16, and hands out
// scoped exclusive access to callers.
package link

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/OpenRTX/rtxlink-go/pkg/crc"
	"github.com/OpenRTX/rtxlink-go/pkg/rtxerr"
	"github.com/OpenRTX/rtxlink-go/pkg/slip"
)

// InteractiveTimeout and ReplyTimeout are the two read-timeout granularities
// spec.md §4.2 calls for: a short poll while nothing specific is expected,
// and a longer one while a caller is blocked waiting on a reply.
const (
	InteractiveTimeout = 10 * time.Millisecond
	ReplyTimeout       = 2 * time.Second
)

var logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

// SetLogger overrides the package logger, which by default writes
// link-layer tracing to stderr.
func SetLogger(l *log.Logger) { logger = l }

// Link owns one serial port for the life of the process. It is created
// once by the entry point and passed down into the sub-protocol channels;
// it is never a global.
type Link struct {
	mu      sync.Mutex
	port    Port
	dec     *slip.Decoder
	readBuf []byte
	pending [][]byte
	held    bool
}

// Open opens path as the rtxlink serial device, using opener (OpenBugST by
// default) with the interactive read timeout.
func Open(path string, opener Opener) (*Link, error) {
	if opener == nil {
		opener = OpenBugST
	}
	port, err := opener(path, InteractiveTimeout)
	if err != nil {
		return nil, &rtxerr.IoError{Op: "open " + path, Err: err}
	}
	return &Link{
		port:    port,
		dec:     slip.NewDecoder(),
		readBuf: make([]byte, 512),
	}, nil
}

// Close releases the underlying serial port. It must only be called once,
// after every Handle has been released.
func (l *Link) Close() error {
	return l.port.Close()
}

// Handle is a scoped exclusive-possession token returned by Acquire. Every
// code path that acquires a Link must release it, on both success and
// failure.
type Handle struct {
	link     *Link
	released bool
}

// Acquire blocks until the caller has exclusive possession of the link and
// returns a Handle bound to it.
func (l *Link) Acquire() *Handle {
	l.mu.Lock()
	l.held = true
	return &Handle{link: l}
}

// Release gives up exclusive possession. Releasing a Handle twice is a
// programming error and panics, mirroring the single-release discipline
// the teacher enforces around its port mutex and read-loop WaitGroup.
func (h *Handle) Release() {
	if h.released {
		panic("rtxlink: link.Handle released twice")
	}
	h.released = true
	h.link.held = false
	h.link.mu.Unlock()
}

// SetTimeout adjusts the port's read timeout, when the underlying driver
// supports it. Used to switch between InteractiveTimeout and ReplyTimeout
// around a blocking receive.
func (h *Handle) SetTimeout(d time.Duration) error {
	ts, ok := h.link.port.(TimeoutSetter)
	if !ok {
		return nil
	}
	return ts.SetReadTimeout(d)
}

// Send builds ProtoID ‖ data ‖ CRC16(LE), SLIP-encodes it, and writes it in
// full.
func (h *Handle) Send(f Frame) error {
	body := make([]byte, 0, 1+len(f.Data)+2)
	body = append(body, byte(f.Proto))
	body = append(body, f.Data...)
	sum := crc.Checksum(body)
	body = append(body, byte(sum&0xff), byte(sum>>8))

	encoded := slip.Encode(body)
	n, err := h.link.port.Write(encoded)
	if err != nil {
		return &rtxerr.IoError{Op: "write", Err: err}
	}
	if n != len(encoded) {
		return &rtxerr.IoError{Op: "write", Err: fmt.Errorf("short write: %d of %d bytes", n, len(encoded))}
	}
	logger.Printf("link: tx %s %d bytes", f.Proto, len(f.Data))
	return nil
}

// Receive reads from the port until one complete, CRC-valid frame is
// available and returns it. Frames of any protocol ID are returned; the
// caller is responsible for filtering to the protocol it expects, since
// STDIO frames may interleave asynchronously (spec.md §4.2/§9).
func (h *Handle) Receive() (Frame, error) {
	l := h.link
	for {
		if len(l.pending) > 0 {
			pkt := l.pending[0]
			l.pending = l.pending[1:]
			return parsePacket(pkt)
		}

		n, err := l.port.Read(l.readBuf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return Frame{}, &rtxerr.IoError{Op: "read", Err: err}
		}
		if n == 0 {
			continue
		}

		frames, ferr := l.dec.Feed(l.readBuf[:n])
		l.pending = append(l.pending, frames...)
		if ferr != nil {
			return Frame{}, &rtxerr.FramingError{Err: ferr}
		}
	}
}

func parsePacket(pkt []byte) (Frame, error) {
	if len(pkt) < 3 {
		return Frame{}, &rtxerr.ProtocolError{Msg: fmt.Sprintf("frame too short: %d bytes", len(pkt))}
	}
	if residue := crc.Checksum(pkt); residue != 0 {
		return Frame{}, &rtxerr.CrcError{Residue: residue}
	}
	proto := ProtocolID(pkt[0])
	switch proto {
	case STDIO, CAT, FMP, DAT:
	default:
		return Frame{}, &rtxerr.ProtocolError{Msg: fmt.Sprintf("unknown protocol ID 0x%02x", pkt[0])}
	}
	data := pkt[1 : len(pkt)-2]
	out := make([]byte, len(data))
	copy(out, data)
	return Frame{Proto: proto, Data: out}, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
