package wdc2

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Table is a fully parsed WDC2 file. All side tables are materialized during
// Parse and the Table is read-only afterwards; only Row cursors move.
type Table struct {
	header  Header
	section SectionHeader
	cat     *catalog

	records     []byte // record bytes (sparse block in sparse mode), zero padded
	recordsBase int    // absolute file offset of records[0]
	strings     map[int]string

	sparse    []SparseEntry
	indexData []int32
	copies    []CopyEntry
	refs      *ReferenceData

	rows []Row
	byID map[int32]int
	ids  []int32
}

// Parse decodes a complete WDC2 file held in memory. The returned Table
// does not retain data.
func Parse(data []byte) (*Table, error) {
	s := &stream{data: data}
	hdr, sections, cat, err := readCatalog(s)
	if err != nil {
		return nil, err
	}

	t := &Table{
		header:  hdr,
		cat:     cat,
		strings: make(map[int]string),
		byID:    make(map[int32]int),
	}
	for _, sec := range sections {
		t.section = sec
		if err := t.readSection(s, sec); err != nil {
			return nil, err
		}
		if err := t.buildRows(); err != nil {
			return nil, err
		}
		if err := t.applyCopies(); err != nil {
			return nil, err
		}
	}

	t.ids = make([]int32, 0, len(t.byID))
	for id := range t.byID {
		t.ids = append(t.ids, id)
	}
	slices.Sort(t.ids)
	return t, nil
}

func (t *Table) readSection(s *stream, sec SectionHeader) error {
	if err := s.seek(int(sec.FileOffset)); err != nil {
		return fmt.Errorf("section payload: %w", err)
	}

	if !t.header.Flags.Has(FlagSparse) {
		size := int64(sec.NumRecords) * int64(t.header.RecordSize)
		if sec.NumRecords < 0 || size > int64(len(s.data)) {
			return fmt.Errorf("%w: %d records of %d bytes do not fit the file", ErrBounds, sec.NumRecords, t.header.RecordSize)
		}
		blk, err := s.readN(int(size))
		if err != nil {
			return fmt.Errorf("record data: %w", err)
		}
		t.setRecords(blk, int(sec.FileOffset))
		if err := t.readStrings(s, int(sec.StringTableSize)); err != nil {
			return err
		}
	} else {
		if err := t.readSparse(s, sec); err != nil {
			return err
		}
	}

	if sec.IndexDataSize < 0 || sec.CopyTableSize < 0 {
		return fmt.Errorf("%w: negative block size in section header", ErrFormat)
	}
	idx, err := s.readI32s(int(sec.IndexDataSize / 4))
	if err != nil {
		return fmt.Errorf("index data: %w", err)
	}
	t.indexData = idx

	pairs, err := s.readI32s(int(sec.CopyTableSize/8) * 2)
	if err != nil {
		return fmt.Errorf("copy table: %w", err)
	}
	t.copies = make([]CopyEntry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		t.copies = append(t.copies, CopyEntry{NewID: pairs[i], SourceID: pairs[i+1]})
	}

	if sec.ParentLookupDataSize > 0 {
		head, err := s.readI32s(3)
		if err != nil {
			return fmt.Errorf("parent lookup: %w", err)
		}
		if head[0] < 0 {
			return fmt.Errorf("%w: parent lookup with %d records", ErrFormat, head[0])
		}
		ents, err := s.readI32s(int(head[0]) * 2)
		if err != nil {
			return fmt.Errorf("parent lookup: %w", err)
		}
		ref := &ReferenceData{NumRecords: head[0], MinID: head[1], MaxID: head[2]}
		ref.Entries = make([]ReferenceEntry, head[0])
		for i := range ref.Entries {
			ref.Entries[i] = ReferenceEntry{ID: ents[2*i], Index: ents[2*i+1]}
		}
		t.refs = ref
	}
	return nil
}

func (t *Table) setRecords(blk []byte, base int) {
	t.records = make([]byte, len(blk)+recordPadding)
	copy(t.records, blk)
	t.recordsBase = base
}

// readStrings scans the string block; every string is keyed by the absolute
// offset it starts at.
func (t *Table) readStrings(s *stream, size int) error {
	for consumed := 0; consumed < size; {
		start := s.off
		str, err := s.readCString()
		if err != nil {
			return fmt.Errorf("string table: %w", err)
		}
		t.strings[start] = str
		consumed += s.off - start
	}
	return nil
}

func (t *Table) readSparse(s *stream, sec SectionHeader) error {
	if sec.SparseTableOffset < sec.FileOffset {
		return fmt.Errorf("%w: sparse table at %d before section at %d", ErrSparseOffset, sec.SparseTableOffset, sec.FileOffset)
	}
	blk, err := s.readN(int(sec.SparseTableOffset - sec.FileOffset))
	if err != nil {
		return fmt.Errorf("sparse data: %w", err)
	}
	if s.off != int(sec.SparseTableOffset) {
		return fmt.Errorf("%w: at %d, expected %d", ErrSparseOffset, s.off, sec.SparseTableOffset)
	}
	t.setRecords(blk, int(sec.FileOffset))

	count := int64(t.header.MaxID) - int64(t.header.MinID) + 1
	if count < 0 {
		count = 0
	}
	raw, err := s.readN(int(count) * sparseEntrySize)
	if err != nil {
		return fmt.Errorf("sparse table: %w", err)
	}
	t.sparse = filterSparse(raw, int(count), sec.CopyTableSize == 0)
	return nil
}

// filterSparse drops absent entries and, when dedup is set, every entry
// whose offset was already seen.
func filterSparse(raw []byte, count int, dedup bool) []SparseEntry {
	seen := make(map[uint32]struct{})
	var out []SparseEntry
	for i := 0; i < count; i++ {
		b := raw[i*sparseEntrySize:]
		e := SparseEntry{
			Offset: binary.LittleEndian.Uint32(b[0:4]),
			Size:   binary.LittleEndian.Uint16(b[4:6]),
		}
		if e.Offset == 0 || e.Size == 0 {
			continue
		}
		if _, dup := seen[e.Offset]; dup && dedup {
			continue
		}
		seen[e.Offset] = struct{}{}
		out = append(out, e)
	}
	return out
}

func (t *Table) buildRows() error {
	sparse := t.header.Flags.Has(FlagSparse)
	slots := int(t.header.RecordCount)
	if sparse {
		slots = len(t.sparse)
	} else if slots > int(t.section.NumRecords) {
		return fmt.Errorf("%w: header declares %d records, section holds %d", ErrFormat, slots, t.section.NumRecords)
	}
	if len(t.indexData) > 0 && len(t.indexData) < slots {
		return fmt.Errorf("%w: index data has %d entries for %d records", ErrFormat, len(t.indexData), slots)
	}

	var refs map[int32]int32
	if t.refs != nil {
		refs = make(map[int32]int32, len(t.refs.Entries))
		// Keyed by the entry's record index, not its position in the block.
		for _, e := range t.refs.Entries {
			refs[e.Index] = e.ID
		}
	}

	// Zero-size records decode to duplicate ids, so the arena never needs
	// more slots than record bytes.
	t.rows = slices.Grow(t.rows, min(slots, len(t.records))+len(t.copies))
	for i := 0; i < slots; i++ {
		row := Row{table: t, index: i}
		if sparse {
			e := t.sparse[i]
			rel := int(e.Offset) - t.recordsBase
			if rel < 0 || rel+int(e.Size) > len(t.records)-recordPadding {
				return fmt.Errorf("%w: sparse record %d at %d+%d outside section", ErrBounds, i, e.Offset, e.Size)
			}
			row.base, row.size = rel, int(e.Size)
		} else {
			row.base, row.size = i*int(t.header.RecordSize), int(t.header.RecordSize)
		}
		row.cur = bitReader{data: t.records, offset: row.base}
		if id, ok := refs[int32(i)]; ok {
			row.ref, row.hasRef = id, true
		}

		if len(t.indexData) > 0 {
			row.id = t.indexData[i]
		} else {
			id, err := row.decodeID()
			if err != nil {
				return fmt.Errorf("record %d id: %w", i, err)
			}
			row.id = id
		}
		row.physID = row.id

		if err := t.insert(row); err != nil {
			return err
		}
	}
	return nil
}

// applyCopies clones source rows under their new ids. Clones are value
// copies; their cursors are independent of the source row.
func (t *Table) applyCopies() error {
	for _, c := range t.copies {
		slot, ok := t.byID[c.SourceID]
		if !ok {
			return fmt.Errorf("%w: copy table source %d for id %d does not exist", ErrFormat, c.SourceID, c.NewID)
		}
		clone := t.rows[slot]
		clone.id = c.NewID
		if err := t.insert(clone); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) insert(row Row) error {
	if _, dup := t.byID[row.id]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateID, row.id)
	}
	t.byID[row.id] = len(t.rows)
	t.rows = append(t.rows, row)
	return nil
}

// Header returns the parsed file header.
func (t *Table) Header() Header { return t.header }

// Section returns the header of the single data section, or the zero value
// for a table without sections.
func (t *Table) Section() SectionHeader { return t.section }

// RecordCount is the number of physical records declared by the header.
// Sparse tables build one row per surviving sparse entry instead, so Len
// minus the copies can differ from it.
func (t *Table) RecordCount() int { return int(t.header.RecordCount) }

// FieldCount is the number of declared fields.
func (t *Table) FieldCount() int { return int(t.header.FieldCount) }

// Flags returns the table flags.
func (t *Table) Flags() Flags { return t.header.Flags }

// Len is the number of logical rows, copies included.
func (t *Table) Len() int { return len(t.rows) }

// IDs returns all logical ids in ascending order. The slice is shared.
func (t *Table) IDs() []int32 { return t.ids }

// Row returns the row stored under id. The returned Row's cursor is not safe
// for concurrent use; Clone it per goroutine.
func (t *Table) Row(id int32) (*Row, bool) {
	slot, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return &t.rows[slot], true
}

// Columns returns a copy of the column meta data.
func (t *Table) Columns() []ColumnMeta { return slices.Clone(t.cat.columns) }

// FieldMeta returns a copy of the field meta data.
func (t *Table) FieldMeta() []FieldMeta { return slices.Clone(t.cat.fields) }

// PalletLen is the number of pallet values loaded for column i.
func (t *Table) PalletLen(i int) int { return len(t.cat.pallet[i]) }

// CommonLen is the number of common overrides loaded for column i.
func (t *Table) CommonLen(i int) int { return len(t.cat.common[i]) }

// CopyTable returns the copy entries in file order.
func (t *Table) CopyTable() []CopyEntry { return slices.Clone(t.copies) }

// SparseEntries returns the sparse entries that survived filtering.
func (t *Table) SparseEntries() []SparseEntry { return slices.Clone(t.sparse) }

// References returns the parent lookup block, or nil.
func (t *Table) References() *ReferenceData { return t.refs }

// StringCount is the number of entries in the string table.
func (t *Table) StringCount() int { return len(t.strings) }
