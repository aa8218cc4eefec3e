package link

import (
	"fmt"
	"time"

	tarmserial "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Port is the minimal serial-port surface the link layer needs. Both
// go.bug.st/serial and github.com/tarm/serial satisfy it (the latter via
// the tarmPort adapter below), matching the two serial stacks the teacher
// carries.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// TimeoutSetter is implemented by drivers that support adjusting the read
// timeout after opening, notably go.bug.st/serial. Drivers that only take a
// timeout at open time (tarm/serial) simply don't implement it, and
// Handle.SetTimeout becomes a no-op for them.
type TimeoutSetter interface {
	SetReadTimeout(d time.Duration) error
}

// Opener opens a named serial device as a Port configured for rtxlink's
// fixed 115200-8N1 wire format, with the given initial read timeout.
type Opener func(path string, timeout time.Duration) (Port, error)

// OpenBugST opens path with go.bug.st/serial, the teacher's primary serial
// dependency.
func OpenBugST(path string, timeout time.Duration) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	port, err := bugst.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	return port, nil
}

// OpenTarm opens path with github.com/tarm/serial, the fallback driver the
// teacher's usock.go actually imports. tarm/serial only accepts a read
// timeout at open time; the returned port does not implement
// TimeoutSetter, so Handle.SetTimeout is a no-op on it.
func OpenTarm(path string, timeout time.Duration) (Port, error) {
	cfg := &tarmserial.Config{
		Name:        path,
		Baud:        115200,
		Size:        8,
		Parity:      tarmserial.ParityNone,
		StopBits:    tarmserial.Stop1,
		ReadTimeout: timeout,
	}
	port, err := tarmserial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return port, nil
}
