// Package errno defines the status codes shared by the CAT, FMP, and DAT
// channels of rtxlink.
package errno

import "fmt"

// Errno is the closed set of status codes a radio can return in a CAT ACK,
// a DAT ACK, or an FMP response's status byte.
type Errno uint8

const (
	OK       Errno = 0
	E2BIG    Errno = 7
	EBADR    Errno = 53
	EBADRQC  Errno = 56
	EGENERIC Errno = 255
)

// FromByte maps a wire status byte to an Errno, folding any value outside
// the closed set into EGENERIC.
func FromByte(b byte) Errno {
	switch Errno(b) {
	case OK, E2BIG, EBADR, EBADRQC:
		return Errno(b)
	default:
		return EGENERIC
	}
}

func (e Errno) String() string {
	switch e {
	case OK:
		return "OK"
	case E2BIG:
		return "E2BIG"
	case EBADR:
		return "EBADR"
	case EBADRQC:
		return "EBADRQC"
	case EGENERIC:
		return "EGENERIC"
	default:
		return fmt.Sprintf("Errno(%d)", uint8(e))
	}
}
