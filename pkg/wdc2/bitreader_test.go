package wdc2

import (
	"errors"
	"testing"
)

func TestReadBitsAcrossBytes(t *testing.T) {
	t.Parallel()

	r := &bitReader{data: []byte{0b1010_1100, 0b0000_0011, 0xFF, 0x00}}
	tests := []struct {
		width int
		want  uint64
	}{
		{2, 0b00},
		{3, 0b011},
		{5, 0b11101},
		{0, 0},
		{6, 0},
		{8, 0xFF},
	}
	for i, tt := range tests {
		got, err := r.readBits(tt.width)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got != tt.want {
			t.Fatalf("read %d (%d bits): got %#b want %#b", i, tt.width, got, tt.want)
		}
	}
	if r.position != 24 {
		t.Fatalf("position: got %d want 24", r.position)
	}
}

func TestReadBits64(t *testing.T) {
	t.Parallel()

	data := []byte{0xFF, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x88, 0x00}
	r := &bitReader{data: data, offset: 1}
	got, err := r.readBits(64)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 0x8807060504030201 {
		t.Fatalf("got %#x", got)
	}

	r.rebase(0, 4)
	got, err = r.readBits(64)
	if err != nil {
		t.Fatalf("unaligned read: %v", err)
	}
	if got != 0x807060504030201F {
		t.Fatalf("unaligned: got %#x", got)
	}
}

func TestReadBitsOverrun(t *testing.T) {
	t.Parallel()

	r := &bitReader{data: []byte{1, 2}}
	if _, err := r.readBits(17); !errors.Is(err, ErrBounds) {
		t.Fatalf("expected ErrBounds, got %v", err)
	}
	if r.position != 0 {
		t.Fatalf("failed read moved the cursor to %d", r.position)
	}
	if _, err := r.readBits(65); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected format error for 65 bits, got %v", err)
	}
	if _, err := r.readBits(16); err != nil {
		t.Fatalf("exact read: %v", err)
	}
	if _, err := r.readBits(1); !errors.Is(err, ErrBounds) {
		t.Fatalf("expected ErrBounds at end, got %v", err)
	}
}

func TestBitReaderCString(t *testing.T) {
	t.Parallel()

	r := &bitReader{data: []byte("ab\x00cd")}
	s, err := r.readCString()
	if err != nil || s != "ab" {
		t.Fatalf("got %q, %v", s, err)
	}
	if r.bytePos() != 3 {
		t.Fatalf("terminator not consumed, at byte %d", r.bytePos())
	}
	if _, err := r.readCString(); !errors.Is(err, ErrBounds) {
		t.Fatalf("expected ErrBounds for unterminated string, got %v", err)
	}
}

func TestSignExtend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v     uint64
		width int
		want  int64
	}{
		{0x3FF, 10, -1},
		{0x200, 10, -512},
		{0x1FF, 10, 511},
		{0xFFFF_FFFF, 32, -1},
		{5, 64, 5},
		{1, 1, -1},
	}
	for _, tt := range tests {
		if got := int64(signExtend(tt.v, tt.width)); got != tt.want {
			t.Fatalf("signExtend(%#x, %d): got %d want %d", tt.v, tt.width, got, tt.want)
		}
	}
}

func TestStreamBounds(t *testing.T) {
	t.Parallel()

	s := &stream{data: []byte{1, 0, 0, 0, 2}}
	v, err := s.readU32()
	if err != nil || v != 1 {
		t.Fatalf("readU32: %d, %v", v, err)
	}
	if _, err := s.readU16(); !errors.Is(err, ErrBounds) {
		t.Fatalf("expected ErrBounds, got %v", err)
	}
	if s.off != 4 {
		t.Fatalf("failed read moved the stream to %d", s.off)
	}
	if err := s.seek(6); !errors.Is(err, ErrBounds) {
		t.Fatalf("seek past end: %v", err)
	}
	if _, err := s.readI32s(-1); !errors.Is(err, ErrFormat) {
		t.Fatalf("negative count: %v", err)
	}
}
