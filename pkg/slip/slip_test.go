package slip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, END, 0x03, ESC, 0x04}
	encoded := Encode(payload)

	assert.Equal(t, byte(END), encoded[0])
	assert.Equal(t, byte(END), encoded[len(encoded)-1])

	d := NewDecoder()
	frames, err := d.Feed(encoded)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, payload, frames[0])
}

func TestDecodeAcrossMultipleFeeds(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	encoded := Encode(payload)

	d := NewDecoder()
	var frames [][]byte
	for _, b := range encoded {
		f, err := d.Feed([]byte{b})
		require.NoError(t, err)
		frames = append(frames, f...)
	}
	require.Len(t, frames, 1)
	assert.Equal(t, payload, frames[0])
}

func TestDecodeMultiplePacketsInOneChunk(t *testing.T) {
	a := Encode([]byte{1, 2, 3})
	b := Encode([]byte{4, 5})

	d := NewDecoder()
	frames, err := d.Feed(append(append([]byte{}, a...), b...))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte{1, 2, 3}, frames[0])
	assert.Equal(t, []byte{4, 5}, frames[1])
}

func TestDecodeIgnoresEmptyPacket(t *testing.T) {
	// Back-to-back END bytes (a common idle-line artifact) must not yield
	// a bogus zero-length frame.
	d := NewDecoder()
	frames, err := d.Feed([]byte{END, END, END})
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestDecodeResyncsAfterIllegalEscape(t *testing.T) {
	good := Encode([]byte{1, 2, 3})

	d := NewDecoder()
	// A lone ESC followed by neither ESCEnd nor ESCEsc is illegal.
	garbage := []byte{END, ESC, 0x00, END}
	frames, err := d.Feed(garbage)
	require.Error(t, err)
	assert.Empty(t, frames)

	// The decoder must still be able to decode the next well-formed packet.
	frames, err = d.Feed(good)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{1, 2, 3}, frames[0])
}

func TestDecodeRejectsEscFollowedByEsc(t *testing.T) {
	d := NewDecoder()
	frames, err := d.Feed([]byte{END, ESC, ESC, END})
	require.Error(t, err)
	assert.Empty(t, frames)
}

func TestDecodeRejectsEscFollowedByEnd(t *testing.T) {
	d := NewDecoder()
	frames, err := d.Feed([]byte{END, ESC, END})
	require.Error(t, err)
	assert.Empty(t, frames)
}

func TestEncodeEscapesInBandEnd(t *testing.T) {
	encoded := Encode([]byte{END})
	assert.Equal(t, []byte{END, ESC, ESCEnd, END}, encoded)
}

func TestEncodeEscapesEsc(t *testing.T) {
	encoded := Encode([]byte{ESC})
	assert.Equal(t, []byte{END, ESC, ESCEsc, END}, encoded)
}
