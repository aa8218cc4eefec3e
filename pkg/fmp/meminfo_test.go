package fmp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMemInfo(size uint32, flags uint8, name string) []byte {
	raw := make([]byte, MemInfoSize)
	binary.LittleEndian.PutUint32(raw[0:4], size)
	raw[4] = flags
	copy(raw[5:32], name)
	return raw
}

func TestDecodeMemInfo(t *testing.T) {
	raw := rawMemInfo(0x00040000, 0x01, "FLASH")
	mi, err := decodeMemInfo(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 0x00040000, mi.Size)
	assert.EqualValues(t, 0x01, mi.Flags)
	assert.Equal(t, "FLASH", mi.Name)
}

func TestDecodeMemInfoNameFillsField(t *testing.T) {
	raw := rawMemInfo(1024, 0, "CALIBRATION_DATA_REGION_001")
	mi, err := decodeMemInfo(raw)
	require.NoError(t, err)
	assert.Equal(t, "CALIBRATION_DATA_REGION_001", mi.Name)
}

func TestDecodeMemInfoRejectsWrongSize(t *testing.T) {
	_, err := decodeMemInfo(make([]byte, MemInfoSize-1))
	assert.Error(t, err)
}
