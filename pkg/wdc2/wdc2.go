// Package wdc2 decodes WDC2 client database tables.
//
// A WDC2 file is a column-oriented record table: every column is bit-packed
// with one of six compression strategies, strings live either in a shared
// string table or inline in sparse records, and a copy table lets several
// ids share one physical record. The whole file is parsed when a Table is
// constructed; fields are decoded lazily from each Row.
package wdc2

import "fmt"

// Magic is the file signature, "WDC2" read as a little-endian uint32.
const Magic uint32 = 0x32434457

const (
	headerSize        = 72
	sectionHeaderSize = 36
	fieldMetaSize     = 4
	columnMetaSize    = 24
	sparseEntrySize   = 6

	// minFileSize is the fixed header plus exactly one section header.
	minFileSize = headerSize + sectionHeaderSize

	// recordPadding zero bytes are appended to the record block so the last
	// field of the last record can be read past the declared record size.
	recordPadding = 8
)

// Flags is the table flag word from the header.
type Flags uint16

const (
	// FlagSparse marks variable-size records addressed by the sparse table,
	// with strings stored inline.
	FlagSparse Flags = 1 << 0
	// FlagSecondaryIndex is informational.
	FlagSecondaryIndex Flags = 1 << 1
	// FlagIndexMap is informational; the index data block size is authoritative.
	FlagIndexMap Flags = 1 << 2
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// CompressionType selects how a column is packed.
type CompressionType uint32

const (
	CompressionNone            CompressionType = 0
	CompressionImmediate       CompressionType = 1
	CompressionCommon          CompressionType = 2
	CompressionPallet          CompressionType = 3
	CompressionPalletArray     CompressionType = 4
	CompressionSignedImmediate CompressionType = 5
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionImmediate:
		return "immediate"
	case CompressionCommon:
		return "common"
	case CompressionPallet:
		return "pallet"
	case CompressionPalletArray:
		return "pallet_array"
	case CompressionSignedImmediate:
		return "signed_immediate"
	default:
		return fmt.Sprintf("compression(%d)", uint32(c))
	}
}
