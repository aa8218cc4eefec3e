// Package crc computes the CRC16/AUG-CCITT checksum rtxlink appends to
// every link-layer frame.
//
// The polynomial (0x1021, bit-reflected to 0x8408 for table-driven LSB-first
// processing), initial value (0x1D0F), and the absence of a final XOR are
// fixed by the peer firmware and are not configurable. The table and the
// running update loop follow the same shape as the teacher's CRC16/ARC
// implementation (a reflected 256-entry table walked with
// `crc = (crc >> 8) ^ table[(crc^b)&0xff]`) — only the polynomial and seed
// differ, which is what makes appending the checksum little-endian collapse
// the residue to zero on receive.
package crc

// Init is the seed a fresh running CRC must start from.
const Init uint16 = 0x1D0F

// reflectedPoly is 0x1021 (CCITT) with its bits reversed, so the same
// LSB-first table walk used for CRC16/ARC also realises AUG-CCITT.
const reflectedPoly uint16 = 0x8408

var table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ reflectedPoly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
}

// Update folds data into a running CRC16/AUG-CCITT accumulator. Callers
// seed the first call with Init.
func Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		idx := uint16(crc^uint16(b)) & 0xff
		crc = (crc >> 8) ^ table[idx]
	}
	return crc
}

// Checksum computes the CRC16/AUG-CCITT of data starting from Init.
func Checksum(data []byte) uint16 {
	return Update(Init, data)
}
