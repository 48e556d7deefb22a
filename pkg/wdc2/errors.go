package wdc2

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is the root of every structural decode failure.
	ErrFormat = errors.New("wdc2: format error")
	// ErrBounds is the root of every out-of-range read.
	ErrBounds = errors.New("wdc2: out of bounds")

	ErrInvalidMagic        = fmt.Errorf("%w: file is corrupted", ErrFormat)
	ErrUnsupportedSections = fmt.Errorf("%w: more than one section", ErrFormat)
	ErrSparseOffset        = fmt.Errorf("%w: sparse table offset mismatch", ErrFormat)
	ErrPalletArraySize     = fmt.Errorf("%w: array size does not match struct layout", ErrFormat)
	ErrUnsupportedType     = fmt.Errorf("%w: unsupported value type", ErrFormat)
	ErrFieldOrder          = fmt.Errorf("%w: sparse fields must be read in order", ErrFormat)
	ErrDuplicateID         = fmt.Errorf("%w: duplicate record id", ErrFormat)
)
