package wdc2

import "fmt"

// bitReader reads little-endian bit runs from a record block. offset is the
// byte where the current record starts and position the number of bits
// consumed since then, so moving to another record only rebases offset.
type bitReader struct {
	data     []byte
	offset   int
	position int
}

func (r *bitReader) rebase(offset, position int) {
	r.offset = offset
	r.position = position
}

// readBits reads n (0..64) bits and advances the cursor. A zero-width read
// yields 0 and consumes nothing.
func (r *bitReader) readBits(n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("%w: invalid bit width %d", ErrFormat, n)
	}
	start := r.offset*8 + r.position
	if start < 0 || start+n > len(r.data)*8 {
		return 0, fmt.Errorf("%w: read %d bits at bit %d of %d byte block", ErrBounds, n, start, len(r.data))
	}

	var v uint64
	for got := 0; got < n; {
		bit := start + got
		shift := bit & 7
		take := min(8-shift, n-got)
		b := uint64(r.data[bit>>3]>>shift) & (1<<take - 1)
		v |= b << got
		got += take
	}
	r.position += n
	return v, nil
}

// readCString reads bytes until a zero byte and skips the terminator.
func (r *bitReader) readCString() (string, error) {
	var buf []byte
	for {
		b, err := r.readBits(8)
		if err != nil {
			return "", fmt.Errorf("%w: unterminated string", err)
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, byte(b))
	}
}

// bytePos is the absolute byte index of the cursor within data.
func (r *bitReader) bytePos() int {
	return r.offset + r.position>>3
}

func signExtend(v uint64, width int) uint64 {
	if width <= 0 || width >= 64 {
		return v
	}
	shift := 64 - width
	return uint64(int64(v<<shift) >> shift)
}
