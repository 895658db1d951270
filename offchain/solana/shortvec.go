package solana

import "errors"

var errShortVec = errors.New("malformed compact-u16 length")

// encodeShortVecLen writes n as a compact-u16: seven bits per byte, low
// group first, high bit set on every byte but the last.
func encodeShortVecLen(n int) []byte {
	if n < 0 {
		panic("encodeShortVecLen: negative length")
	}
	var out []byte
	for v := uint(n); ; v >>= 7 {
		if v < 0x80 {
			return append(out, byte(v))
		}
		out = append(out, byte(v)|0x80)
	}
}

// decodeShortVecLen reads a compact-u16 from the front of b and returns the
// value and the bytes consumed.
func decodeShortVecLen(b []byte) (int, int, error) {
	var n int
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errShortVec
		}
		n |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return n, i + 1, nil
		}
	}
	return 0, 0, errShortVec
}
