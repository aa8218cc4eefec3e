package link

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenRTX/rtxlink-go/pkg/crc"
	"github.com/OpenRTX/rtxlink-go/pkg/rtxerr"
	"github.com/OpenRTX/rtxlink-go/pkg/slip"
)

// timeoutErr stands in for the Timeout()-aware errors go.bug.st/serial and
// net.Conn return on a read deadline, exercising isTimeout's Timeout() check.
type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

// loopPort is an in-memory Port: writes append to tx (inspectable by the
// test), and rx is whatever the test pushes for the next Read to return.
type loopPort struct {
	mu sync.Mutex
	tx []byte
	rx []byte
}

func (p *loopPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tx = append(p.tx, b...)
	return len(b), nil
}

func (p *loopPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return 0, timeoutErr{}
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

func (p *loopPort) Close() error { return nil }

func (p *loopPort) push(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = append(p.rx, b...)
}

func encodeFrame(proto ProtocolID, data []byte) []byte {
	body := append([]byte{byte(proto)}, data...)
	sum := crc.Checksum(body)
	body = append(body, byte(sum&0xff), byte(sum>>8))
	return slip.Encode(body)
}

func newTestLink(t *testing.T) (*Link, *loopPort) {
	t.Helper()
	port := &loopPort{}
	l, err := Open("fake", func(string, time.Duration) (Port, error) { return port, nil })
	require.NoError(t, err)
	return l, port
}

func TestSendEncodesFrame(t *testing.T) {
	l, port := newTestLink(t)
	h := l.Acquire()
	defer h.Release()

	require.NoError(t, h.Send(Frame{Proto: CAT, Data: []byte{0x47}}))
	assert.Equal(t, encodeFrame(CAT, []byte{0x47}), port.tx)
}

func TestReceiveDecodesFrame(t *testing.T) {
	l, port := newTestLink(t)
	port.push(encodeFrame(DAT, []byte{0x01, 0xFE, 'h', 'i'}))

	h := l.Acquire()
	defer h.Release()

	f, err := h.Receive()
	require.NoError(t, err)
	assert.Equal(t, DAT, f.Proto)
	assert.Equal(t, []byte{0x01, 0xFE, 'h', 'i'}, f.Data)
}

func TestReceiveQueuesMultipleFramesFromOneRead(t *testing.T) {
	l, port := newTestLink(t)
	port.push(append(encodeFrame(CAT, []byte{1}), encodeFrame(CAT, []byte{2})...))

	h := l.Acquire()
	defer h.Release()

	f1, err := h.Receive()
	require.NoError(t, err)
	f2, err := h.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, f1.Data)
	assert.Equal(t, []byte{2}, f2.Data)
}

func TestReceiveDetectsCrcError(t *testing.T) {
	l, port := newTestLink(t)

	body := []byte{byte(CAT), 1, 2, 3}
	sum := crc.Checksum(body)
	body = append(body, byte(sum&0xff), byte(sum>>8))
	body[1] ^= 0xff // corrupt a payload byte before framing, so escaping stays well-formed
	port.push(slip.Encode(body))

	h := l.Acquire()
	defer h.Release()

	_, err := h.Receive()
	require.Error(t, err)
	var crcErr *rtxerr.CrcError
	assert.ErrorAs(t, err, &crcErr)
}

func TestReceiveRejectsUnknownProtocolID(t *testing.T) {
	l, port := newTestLink(t)
	body := []byte{0x7F, 'x'}
	sum := crc.Checksum(body)
	body = append(body, byte(sum&0xff), byte(sum>>8))
	port.push(slip.Encode(body))

	h := l.Acquire()
	defer h.Release()

	_, err := h.Receive()
	require.Error(t, err)
	var protoErr *rtxerr.ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}

func TestDoubleReleasePanics(t *testing.T) {
	l, _ := newTestLink(t)
	h := l.Acquire()
	h.Release()
	assert.Panics(t, func() { h.Release() })
}

func TestAcquireBlocksUntilReleased(t *testing.T) {
	l, _ := newTestLink(t)
	h := l.Acquire()

	acquired := make(chan struct{})
	go func() {
		h2 := l.Acquire()
		close(acquired)
		h2.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned before first Release")
	case <-time.After(20 * time.Millisecond):
	}

	h.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never unblocked")
	}
}
