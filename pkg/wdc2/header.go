package wdc2

import (
	"encoding/binary"
	"math"
)

// Header is the fixed 72-byte table header.
type Header struct {
	Magic             uint32
	RecordCount       int32
	FieldCount        int32
	RecordSize        int32
	StringTableSize   int32
	TableHash         uint32
	LayoutHash        uint32
	MinID             int32
	MaxID             int32
	Locale            int32
	Flags             Flags
	IDFieldIndex      uint16
	TotalFieldCount   int32
	PackedDataOffset  int32
	LookupColumnCount int32
	ColumnMetaSize    int32
	CommonDataSize    int32
	PalletDataSize    int32
	SectionCount      int32
}

// SectionHeader locates one section's payload. All offsets are absolute.
type SectionHeader struct {
	TactKeyLookup        uint64
	FileOffset           int32
	NumRecords           int32
	StringTableSize      int32
	CopyTableSize        int32
	SparseTableOffset    int32
	IndexDataSize        int32
	ParentLookupDataSize int32
}

// FieldMeta is the per-field descriptor. Bits counts the high bits of a
// 32-bit value the field does not use; it is negative for 64-bit fields.
type FieldMeta struct {
	Bits   int16
	Offset int16
}

// Width is the number of bits one element of the field occupies when the
// column is uncompressed, or 0 when the header does not say.
func (m FieldMeta) Width() int {
	return 32 - int(m.Bits)
}

// ColumnMeta is the physical layout of one column. The three union words
// are only meaningful through the accessor matching Compression.
type ColumnMeta struct {
	RecordOffset       uint16 // bits from the start of the record
	Size               uint16 // bits
	AdditionalDataSize uint32 // bytes of pallet or common data
	Compression        CompressionType
	union              [3]uint32
}

// BitWidth is the packed width for Immediate, SignedImmediate, Pallet and
// PalletArray columns. None columns fall back to it when the field meta
// declares no width.
func (c ColumnMeta) BitWidth() int {
	switch c.Compression {
	case CompressionImmediate, CompressionSignedImmediate, CompressionPallet, CompressionPalletArray, CompressionNone:
		return int(c.union[1])
	}
	return 0
}

// BitOffset is the offset of the column within packed data.
func (c ColumnMeta) BitOffset() int {
	switch c.Compression {
	case CompressionImmediate, CompressionSignedImmediate, CompressionPallet, CompressionPalletArray:
		return int(c.union[0])
	}
	return 0
}

// Cardinality is the element count of a PalletArray column.
func (c ColumnMeta) Cardinality() int {
	if c.Compression != CompressionPalletArray {
		return 0
	}
	return int(c.union[2])
}

// ImmediateFlags carries the Immediate flag word (bit 0 = signed).
func (c ColumnMeta) ImmediateFlags() uint32 {
	switch c.Compression {
	case CompressionImmediate, CompressionSignedImmediate:
		return c.union[2]
	}
	return 0
}

// DefaultValue is the value of a Common column for ids missing from its map.
func (c ColumnMeta) DefaultValue() Value32 {
	if c.Compression != CompressionCommon {
		return 0
	}
	return Value32(c.union[0])
}

// Value32 is a 4-byte cell from a pallet or common table.
type Value32 uint32

// Int32 reinterprets the cell as a signed integer.
func (v Value32) Int32() int32 { return int32(v) }

// Float32 reinterprets the cell as an IEEE-754 float.
func (v Value32) Float32() float32 { return math.Float32frombits(uint32(v)) }

// SparseEntry locates one variable-size record.
type SparseEntry struct {
	Offset uint32
	Size   uint16
}

// CopyEntry makes NewID an alias of the record stored under SourceID.
type CopyEntry struct {
	NewID    int32
	SourceID int32
}

// ReferenceEntry attaches a parent id to the record at Index.
type ReferenceEntry struct {
	ID    int32
	Index int32
}

// ReferenceData is the parent lookup block.
type ReferenceData struct {
	NumRecords int32
	MinID      int32
	MaxID      int32
	Entries    []ReferenceEntry
}

func decodeHeader(b []byte) (Header, bool) {
	if len(b) < headerSize {
		return Header{}, false
	}
	le := binary.LittleEndian
	return Header{
		Magic:             le.Uint32(b[0:4]),
		RecordCount:       int32(le.Uint32(b[4:8])),
		FieldCount:        int32(le.Uint32(b[8:12])),
		RecordSize:        int32(le.Uint32(b[12:16])),
		StringTableSize:   int32(le.Uint32(b[16:20])),
		TableHash:         le.Uint32(b[20:24]),
		LayoutHash:        le.Uint32(b[24:28]),
		MinID:             int32(le.Uint32(b[28:32])),
		MaxID:             int32(le.Uint32(b[32:36])),
		Locale:            int32(le.Uint32(b[36:40])),
		Flags:             Flags(le.Uint16(b[40:42])),
		IDFieldIndex:      le.Uint16(b[42:44]),
		TotalFieldCount:   int32(le.Uint32(b[44:48])),
		PackedDataOffset:  int32(le.Uint32(b[48:52])),
		LookupColumnCount: int32(le.Uint32(b[52:56])),
		ColumnMetaSize:    int32(le.Uint32(b[56:60])),
		CommonDataSize:    int32(le.Uint32(b[60:64])),
		PalletDataSize:    int32(le.Uint32(b[64:68])),
		SectionCount:      int32(le.Uint32(b[68:72])),
	}, true
}

func decodeSectionHeader(b []byte) (SectionHeader, bool) {
	if len(b) < sectionHeaderSize {
		return SectionHeader{}, false
	}
	le := binary.LittleEndian
	return SectionHeader{
		TactKeyLookup:        le.Uint64(b[0:8]),
		FileOffset:           int32(le.Uint32(b[8:12])),
		NumRecords:           int32(le.Uint32(b[12:16])),
		StringTableSize:      int32(le.Uint32(b[16:20])),
		CopyTableSize:        int32(le.Uint32(b[20:24])),
		SparseTableOffset:    int32(le.Uint32(b[24:28])),
		IndexDataSize:        int32(le.Uint32(b[28:32])),
		ParentLookupDataSize: int32(le.Uint32(b[32:36])),
	}, true
}

func decodeFieldMeta(b []byte) FieldMeta {
	return FieldMeta{
		Bits:   int16(binary.LittleEndian.Uint16(b[0:2])),
		Offset: int16(binary.LittleEndian.Uint16(b[2:4])),
	}
}

func decodeColumnMeta(b []byte) ColumnMeta {
	le := binary.LittleEndian
	return ColumnMeta{
		RecordOffset:       le.Uint16(b[0:2]),
		Size:               le.Uint16(b[2:4]),
		AdditionalDataSize: le.Uint32(b[4:8]),
		Compression:        CompressionType(le.Uint32(b[8:12])),
		union:              [3]uint32{le.Uint32(b[12:16]), le.Uint32(b[16:20]), le.Uint32(b[20:24])},
	}
}
