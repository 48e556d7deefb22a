// Package wdc2test lays out synthetic WDC2 files for tests.
//
// A Table describes columns and per-record values; Bytes packs them the way
// the decoder expects, computing record offsets, string offsets and the
// section layout. It only writes what tests need and does no validation.
package wdc2test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/samcharles93/db2kit/pkg/wdc2"
)

// Column describes one column.
type Column struct {
	Compression wdc2.CompressionType
	// Width is the packed width of one element, or of the pallet index.
	Width int
	// Count is the number of inline elements for None/Immediate columns.
	Count int
	// Cardinality is the array length of a PalletArray column.
	Cardinality int
	Pallet      []uint32
	Common      []CommonValue
	Default     uint32
	// NoneFallback writes a field meta declaring no width, so the decoder
	// must use the column's explicit bit width.
	NoneFallback bool
}

// CommonValue is one id override of a Common column.
type CommonValue struct {
	ID    int32
	Value uint32
}

// Absent in SparseEntries writes an entry with zero offset and size.
const Absent = -1

// Table describes a whole file. Records hold one value per column: an
// integer or float32 for scalars, []uint64 / []int64 for arrays, a string
// or []string for string columns, the pallet index for pallet columns and
// nil for Common columns.
type Table struct {
	Flags      wdc2.Flags
	IDField    int
	TableHash  uint32
	LayoutHash uint32
	Locale     int32
	MinID      int32
	MaxID      int32

	Columns []Column
	Records [][]any

	// SparseEntries lists the record written for each sparse table entry;
	// nil writes one entry per record.
	SparseEntries []int
	IndexData     []int32
	Copies        []wdc2.CopyEntry
	Refs          []wdc2.ReferenceEntry

	// SectionCount overrides the number of sections declared (default 1).
	SectionCount int
	// SparseOffsetDelta is added to the declared sparse table offset.
	SparseOffsetDelta int
}

type column struct {
	Column
	bitOff int
	bits   int
}

func (c Column) count() int {
	if c.Count <= 0 {
		return 1
	}
	return c.Count
}

func (t *Table) layout() ([]column, int) {
	cols := make([]column, len(t.Columns))
	off := 0
	for i, c := range t.Columns {
		cols[i] = column{Column: c, bitOff: off}
		switch c.Compression {
		case wdc2.CompressionNone, wdc2.CompressionImmediate, wdc2.CompressionSignedImmediate:
			cols[i].bits = c.Width * c.count()
		case wdc2.CompressionPallet, wdc2.CompressionPalletArray:
			cols[i].bits = c.Width
		}
		off += cols[i].bits
	}
	return cols, (off + 7) / 8
}

// RecordSize is the fixed record size of a non-sparse layout.
func (t *Table) RecordSize() int {
	_, size := t.layout()
	return size
}

// Bytes lays out the file.
func (t *Table) Bytes() ([]byte, error) {
	cols, recordSize := t.layout()
	sparse := t.Flags.Has(wdc2.FlagSparse)
	sections := t.SectionCount
	if sections == 0 {
		sections = 1
	}

	var pallet, common []byte
	for _, c := range cols {
		if c.Compression == wdc2.CompressionPallet || c.Compression == wdc2.CompressionPalletArray {
			for _, v := range c.Pallet {
				pallet = binary.LittleEndian.AppendUint32(pallet, v)
			}
		}
	}
	for _, c := range cols {
		if c.Compression == wdc2.CompressionCommon {
			for _, cv := range c.Common {
				common = binary.LittleEndian.AppendUint32(common, uint32(cv.ID))
				common = binary.LittleEndian.AppendUint32(common, cv.Value)
			}
		}
	}

	n := len(cols)
	fileOffset := 72 + 36*sections + 4*n + 24*n + len(pallet) + len(common)

	var payload, stringBlock []byte
	var sparseOffset int
	var minID, maxID = t.MinID, t.MaxID
	if !sparse {
		records, strs, err := t.packFixed(cols, recordSize, fileOffset)
		if err != nil {
			return nil, err
		}
		stringBlock = strs
		payload = append(records, strs...)
	} else {
		blobs := make([][]byte, len(t.Records))
		offsets := make([]int, len(t.Records))
		pos := fileOffset
		for i, rec := range t.Records {
			b, err := packSparse(cols, rec)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			blobs[i], offsets[i] = b, pos
			payload = append(payload, b...)
			pos += len(b)
		}
		sparseOffset = pos + t.SparseOffsetDelta

		entries := t.SparseEntries
		if entries == nil {
			for i := range t.Records {
				entries = append(entries, i)
			}
		}
		if minID == 0 && maxID == 0 {
			minID = 1
		}
		maxID = minID + int32(len(entries)) - 1
		for _, rec := range entries {
			var off uint32
			var size uint16
			if rec != Absent {
				off, size = uint32(offsets[rec]), uint16(len(blobs[rec]))
			}
			payload = binary.LittleEndian.AppendUint32(payload, off)
			payload = binary.LittleEndian.AppendUint16(payload, size)
		}
	}

	for _, id := range t.IndexData {
		payload = binary.LittleEndian.AppendUint32(payload, uint32(id))
	}
	for _, c := range t.Copies {
		payload = binary.LittleEndian.AppendUint32(payload, uint32(c.NewID))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(c.SourceID))
	}
	parentSize := 0
	if len(t.Refs) > 0 {
		parentSize = 12 + 8*len(t.Refs)
		lo, hi := t.Refs[0].ID, t.Refs[0].ID
		for _, r := range t.Refs {
			lo, hi = min(lo, r.ID), max(hi, r.ID)
		}
		payload = binary.LittleEndian.AppendUint32(payload, uint32(len(t.Refs)))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(lo))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(hi))
		for _, r := range t.Refs {
			payload = binary.LittleEndian.AppendUint32(payload, uint32(r.ID))
			payload = binary.LittleEndian.AppendUint32(payload, uint32(r.Index))
		}
	}

	le := binary.LittleEndian
	out := make([]byte, 0, fileOffset+len(payload))
	out = le.AppendUint32(out, wdc2.Magic)
	out = le.AppendUint32(out, uint32(len(t.Records)))
	out = le.AppendUint32(out, uint32(n))
	out = le.AppendUint32(out, uint32(recordSize))
	out = le.AppendUint32(out, uint32(len(stringBlock)))
	out = le.AppendUint32(out, t.TableHash)
	out = le.AppendUint32(out, t.LayoutHash)
	out = le.AppendUint32(out, uint32(minID))
	out = le.AppendUint32(out, uint32(maxID))
	out = le.AppendUint32(out, uint32(t.Locale))
	out = le.AppendUint16(out, uint16(t.Flags))
	out = le.AppendUint16(out, uint16(t.IDField))
	out = le.AppendUint32(out, uint32(n))
	out = le.AppendUint32(out, 0)
	out = le.AppendUint32(out, 0)
	out = le.AppendUint32(out, uint32(24*n))
	out = le.AppendUint32(out, uint32(len(common)))
	out = le.AppendUint32(out, uint32(len(pallet)))
	out = le.AppendUint32(out, uint32(sections))

	for s := 0; s < sections; s++ {
		out = le.AppendUint64(out, 0)
		out = le.AppendUint32(out, uint32(fileOffset))
		out = le.AppendUint32(out, uint32(len(t.Records)))
		out = le.AppendUint32(out, uint32(len(stringBlock)))
		out = le.AppendUint32(out, uint32(8*len(t.Copies)))
		out = le.AppendUint32(out, uint32(sparseOffset))
		out = le.AppendUint32(out, uint32(4*len(t.IndexData)))
		out = le.AppendUint32(out, uint32(parentSize))
	}

	for _, c := range cols {
		bits := int16(32 - c.Width)
		if c.Compression == wdc2.CompressionCommon {
			bits = 0
		}
		if c.NoneFallback {
			bits = 32
		}
		out = le.AppendUint16(out, uint16(bits))
		out = le.AppendUint16(out, 0)
	}
	for _, c := range cols {
		out = le.AppendUint16(out, uint16(c.bitOff))
		out = le.AppendUint16(out, uint16(c.bits))
		extra := 4 * len(c.Pallet)
		if c.Compression == wdc2.CompressionCommon {
			extra = 8 * len(c.Common)
		}
		out = le.AppendUint32(out, uint32(extra))
		out = le.AppendUint32(out, uint32(c.Compression))
		var u [3]uint32
		switch c.Compression {
		case wdc2.CompressionNone:
			if c.NoneFallback {
				u[1] = uint32(c.Width)
			}
		case wdc2.CompressionImmediate:
			u = [3]uint32{uint32(c.bitOff), uint32(c.Width), 0}
		case wdc2.CompressionSignedImmediate:
			u = [3]uint32{uint32(c.bitOff), uint32(c.Width), 1}
		case wdc2.CompressionPallet:
			u = [3]uint32{uint32(c.bitOff), uint32(c.Width), 0}
		case wdc2.CompressionPalletArray:
			u = [3]uint32{uint32(c.bitOff), uint32(c.Width), uint32(c.Cardinality)}
		case wdc2.CompressionCommon:
			u[0] = c.Default
		}
		for _, w := range u {
			out = le.AppendUint32(out, w)
		}
	}
	out = append(out, pallet...)
	out = append(out, common...)
	if len(out) != fileOffset {
		return nil, fmt.Errorf("wdc2test: header is %d bytes, expected %d", len(out), fileOffset)
	}
	return append(out, payload...), nil
}

// WriteFile lays out the file and writes it to path.
func (t *Table) WriteFile(path string) error {
	b, err := t.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// MustBytes is Bytes for fixtures that cannot fail.
func (t *Table) MustBytes() []byte {
	b, err := t.Bytes()
	if err != nil {
		panic(err)
	}
	return b
}

func (t *Table) packFixed(cols []column, recordSize, fileOffset int) ([]byte, []byte, error) {
	records := make([]byte, recordSize*len(t.Records))
	stringBase := fileOffset + len(records)
	var strs []byte
	stringAt := make(map[string]int)
	intern := func(s string) int {
		if off, ok := stringAt[s]; ok {
			return off
		}
		off := stringBase + len(strs)
		strs = append(strs, s...)
		strs = append(strs, 0)
		stringAt[s] = off
		return off
	}

	for i, rec := range t.Records {
		buf := records[i*recordSize : (i+1)*recordSize]
		for c, col := range cols {
			if c >= len(rec) || rec[c] == nil || col.bits == 0 {
				continue
			}
			switch v := rec[c].(type) {
			case string:
				field := fileOffset + i*recordSize + col.bitOff/8
				putBits(buf, col.bitOff, col.Width, uint64(uint32(intern(v)-field)))
			case []string:
				for k, s := range v {
					bit := col.bitOff + k*col.Width
					field := fileOffset + i*recordSize + bit/8
					putBits(buf, bit, col.Width, uint64(uint32(intern(s)-field)))
				}
			default:
				vals, err := elements(v)
				if err != nil {
					return nil, nil, fmt.Errorf("record %d column %d: %w", i, c, err)
				}
				for k, e := range vals {
					putBits(buf, col.bitOff+k*col.Width, col.Width, e)
				}
			}
		}
	}
	return records, strs, nil
}

func packSparse(cols []column, rec []any) ([]byte, error) {
	var buf []byte
	pos := 0
	write := func(width int, v uint64) {
		for len(buf)*8 < pos+width {
			buf = append(buf, 0)
		}
		putBits(buf, pos, width, v)
		pos += width
	}
	writeString := func(s string) {
		for _, b := range []byte(s) {
			write(8, uint64(b))
		}
		write(8, 0)
	}
	for c, col := range cols {
		if col.Compression == wdc2.CompressionCommon || c >= len(rec) {
			continue
		}
		switch v := rec[c].(type) {
		case string:
			writeString(v)
		case []string:
			for _, s := range v {
				writeString(s)
			}
		default:
			vals, err := elements(v)
			if err != nil {
				return nil, err
			}
			for _, e := range vals {
				write(col.Width, e)
			}
		}
	}
	return buf, nil
}

func putBits(buf []byte, bitOff, width int, v uint64) {
	for k := 0; k < width; k++ {
		if v>>k&1 == 1 {
			bit := bitOff + k
			buf[bit>>3] |= 1 << (bit & 7)
		}
	}
}

func elements(v any) ([]uint64, error) {
	switch x := v.(type) {
	case []uint64:
		return x, nil
	case []int64:
		out := make([]uint64, len(x))
		for i, e := range x {
			out[i] = uint64(e)
		}
		return out, nil
	case []float32:
		out := make([]uint64, len(x))
		for i, e := range x {
			out[i] = uint64(math.Float32bits(e))
		}
		return out, nil
	}
	e, err := scalar(v)
	if err != nil {
		return nil, err
	}
	return []uint64{e}, nil
}

func scalar(v any) (uint64, error) {
	switch x := v.(type) {
	case int:
		return uint64(x), nil
	case int8:
		return uint64(x), nil
	case int16:
		return uint64(x), nil
	case int32:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case float32:
		return uint64(math.Float32bits(x)), nil
	}
	return 0, fmt.Errorf("wdc2test: unsupported value %T", v)
}
