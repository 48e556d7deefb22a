package wdc2

import (
	"encoding/binary"
	"fmt"
)

// catalog holds the per-column metadata and side tables. It is built once
// before any record is decoded and never mutated afterwards.
type catalog struct {
	fields  []FieldMeta
	columns []ColumnMeta
	pallet  [][]Value32
	common  []map[int32]Value32
}

// readCatalog parses everything from the magic up to the first section
// payload: header, section headers, field and column meta, pallet and
// common blocks.
func readCatalog(s *stream) (Header, []SectionHeader, *catalog, error) {
	if len(s.data) < minFileSize {
		return Header{}, nil, nil, fmt.Errorf("%w: %d byte file is shorter than the header", ErrInvalidMagic, len(s.data))
	}
	raw, err := s.readN(headerSize)
	if err != nil {
		return Header{}, nil, nil, err
	}
	hdr, ok := decodeHeader(raw)
	if !ok || hdr.Magic != Magic {
		return Header{}, nil, nil, ErrInvalidMagic
	}
	if hdr.SectionCount > 1 {
		return Header{}, nil, nil, fmt.Errorf("%w: section count %d", ErrUnsupportedSections, hdr.SectionCount)
	}
	if hdr.SectionCount < 0 || hdr.FieldCount < 0 || hdr.RecordCount < 0 || hdr.RecordSize < 0 {
		return Header{}, nil, nil, fmt.Errorf("%w: negative count in header", ErrFormat)
	}

	sections := make([]SectionHeader, hdr.SectionCount)
	for i := range sections {
		b, err := s.readN(sectionHeaderSize)
		if err != nil {
			return Header{}, nil, nil, err
		}
		sections[i], _ = decodeSectionHeader(b)
	}

	n := int(hdr.FieldCount)
	if need, left := n*(fieldMetaSize+columnMetaSize), len(s.data)-s.off; need > left {
		return Header{}, nil, nil, fmt.Errorf("%w: %d fields need %d bytes of meta, %d left", ErrBounds, n, need, left)
	}
	cat := &catalog{
		fields:  make([]FieldMeta, n),
		columns: make([]ColumnMeta, n),
		pallet:  make([][]Value32, n),
		common:  make([]map[int32]Value32, n),
	}

	b, err := s.readN(n * fieldMetaSize)
	if err != nil {
		return Header{}, nil, nil, fmt.Errorf("field meta: %w", err)
	}
	for i := range cat.fields {
		cat.fields[i] = decodeFieldMeta(b[i*fieldMetaSize:])
	}

	b, err = s.readN(n * columnMetaSize)
	if err != nil {
		return Header{}, nil, nil, fmt.Errorf("column meta: %w", err)
	}
	for i := range cat.columns {
		cat.columns[i] = decodeColumnMeta(b[i*columnMetaSize:])
	}

	for i, col := range cat.columns {
		if col.Compression != CompressionPallet && col.Compression != CompressionPalletArray {
			continue
		}
		count := int(col.AdditionalDataSize / 4)
		b, err := s.readN(count * 4)
		if err != nil {
			return Header{}, nil, nil, fmt.Errorf("pallet data for column %d: %w", i, err)
		}
		vals := make([]Value32, count)
		for j := range vals {
			vals[j] = Value32(binary.LittleEndian.Uint32(b[j*4:]))
		}
		cat.pallet[i] = vals
	}

	for i, col := range cat.columns {
		if col.Compression != CompressionCommon {
			continue
		}
		count := int(col.AdditionalDataSize / 8)
		b, err := s.readN(count * 8)
		if err != nil {
			return Header{}, nil, nil, fmt.Errorf("common data for column %d: %w", i, err)
		}
		values := make(map[int32]Value32, count)
		for j := 0; j < count; j++ {
			e := b[j*8:]
			values[int32(binary.LittleEndian.Uint32(e[0:4]))] = Value32(binary.LittleEndian.Uint32(e[4:8]))
		}
		cat.common[i] = values
	}

	return hdr, sections, cat, nil
}
