package wdc2

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// stream is a sequential little-endian reader over the whole file. Offsets
// are absolute from the start of the file, which is what the string table
// and the section headers are keyed by.
type stream struct {
	data []byte
	off  int
}

func (s *stream) seek(off int) error {
	if off < 0 || off > len(s.data) {
		return fmt.Errorf("%w: seek to %d in %d byte file", ErrBounds, off, len(s.data))
	}
	s.off = off
	return nil
}

// readN returns the next n bytes without copying them.
func (s *stream) readN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: invalid read length %d", ErrFormat, n)
	}
	if n > len(s.data)-s.off {
		return nil, fmt.Errorf("%w: read %d bytes at offset %d, file is %d bytes", ErrBounds, n, s.off, len(s.data))
	}
	b := s.data[s.off : s.off+n]
	s.off += n
	return b, nil
}

func (s *stream) readU16() (uint16, error) {
	b, err := s.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *stream) readU32() (uint32, error) {
	b, err := s.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// readCString reads up to and including a zero byte.
func (s *stream) readCString() (string, error) {
	i := bytes.IndexByte(s.data[s.off:], 0)
	if i < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrBounds, s.off)
	}
	str := string(s.data[s.off : s.off+i])
	s.off += i + 1
	return str, nil
}

func (s *stream) readI32s(n int) ([]int32, error) {
	b, err := s.readN(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
