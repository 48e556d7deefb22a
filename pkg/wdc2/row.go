package wdc2

import "fmt"

// FieldSpec describes how one field is read: which column, as what type,
// and whether it is a fixed-size array (ArraySize > 0).
type FieldSpec struct {
	Name      string
	Index     int
	Type      Type
	ArraySize int
}

// IsArray reports whether the spec reads an array.
func (s FieldSpec) IsArray() bool { return s.ArraySize > 0 }

// FieldValue is one decoded field: Value for scalars, Values for arrays.
type FieldValue struct {
	FieldSpec
	Value  Value
	Values []Value
}

// Row is a view over one physical record. Fields are decoded on request
// through the row's own bit cursor.
//
// In sparse tables columns carry no usable offsets, so fields are decoded in
// one forward pass: reading field 0 starts a pass and every other field must
// be the next one in index order. Read does this for a whole spec list.
type Row struct {
	table  *Table
	index  int   // physical slot
	id     int32 // logical id
	physID int32 // id of the physical record; copies keep the source's
	base   int   // byte offset of the record in table.records
	size   int   // declared record size in bytes
	ref    int32
	hasRef bool

	cur  bitReader
	next int
}

// ID is the row's logical id.
func (r *Row) ID() int32 { return r.id }

// Index is the physical record slot the row reads from.
func (r *Row) Index() int { return r.index }

// Size is the record size in bytes.
func (r *Row) Size() int { return r.size }

// Reference returns the parent id from the parent lookup block.
func (r *Row) Reference() (int32, bool) { return r.ref, r.hasRef }

// Clone returns a copy with its own cursor over the same record bytes.
func (r *Row) Clone() *Row {
	c := *r
	return &c
}

func (r *Row) sparse() bool {
	return r.table.header.Flags.Has(FlagSparse)
}

// decodeID reads the id field at its declared column offset, in either mode,
// and leaves the cursor at the start of the record.
func (r *Row) decodeID() (int32, error) {
	idx := int(r.table.header.IDFieldIndex)
	if idx >= len(r.table.cat.columns) {
		return 0, fmt.Errorf("%w: id field %d out of %d fields", ErrFormat, idx, len(r.table.cat.columns))
	}
	r.cur.rebase(r.base, int(r.table.cat.columns[idx].RecordOffset))
	defer r.cur.rebase(r.base, 0)
	v, err := r.table.cat.decodeScalar(idx, 0, &r.cur, TypeInt32)
	if err != nil {
		return 0, err
	}
	return v.Int32(), nil
}

// seek positions the cursor for field i.
func (r *Row) seek(i int) error {
	if !r.sparse() {
		r.cur.rebase(r.base, int(r.table.cat.columns[i].RecordOffset))
		return nil
	}
	if i == 0 {
		r.cur.rebase(r.base, 0)
		r.next = 0
	}
	if i != r.next {
		return fmt.Errorf("%w: requested field %d, next is %d", ErrFieldOrder, i, r.next)
	}
	r.next++
	return nil
}

// Field decodes field i as a scalar of type t. Indexes past the declared
// field count yield the row's parent id, or 0, without touching the cursor.
func (r *Row) Field(i int, t Type) (Value, error) {
	if !t.valid() {
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	if i < 0 {
		return Value{}, fmt.Errorf("%w: field index %d", ErrBounds, i)
	}
	if i >= len(r.table.cat.columns) {
		return Coerce(t, int64(r.ref)), nil
	}
	if err := r.seek(i); err != nil {
		return Value{}, err
	}
	if t == TypeString {
		return r.readString(i)
	}
	return r.table.cat.decodeScalar(i, r.physID, &r.cur, t)
}

// Array decodes field i as n elements of type t.
func (r *Row) Array(i int, t Type, n int) ([]Value, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %s[]", ErrUnsupportedType, t)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %s[%d]", ErrUnsupportedType, t, n)
	}
	if i < 0 || i >= len(r.table.cat.columns) {
		return nil, fmt.Errorf("%w: %s[] for field %d of %d", ErrUnsupportedType, t, i, len(r.table.cat.columns))
	}
	if err := r.seek(i); err != nil {
		return nil, err
	}
	if t != TypeString {
		return r.table.cat.decodeArray(i, &r.cur, t, n)
	}
	out := make([]Value, n)
	for k := range out {
		v, err := r.readString(i)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// readString reads one string element of column i at the cursor. Sparse
// records inline their strings; otherwise the column holds an offset
// relative to the field's own position in the file.
func (r *Row) readString(i int) (Value, error) {
	if r.sparse() {
		s, err := r.cur.readCString()
		if err != nil {
			return Value{}, err
		}
		return stringValue(s), nil
	}
	pos := r.table.recordsBase + r.cur.bytePos()
	off, err := r.table.cat.decodeScalar(i, r.physID, &r.cur, TypeInt32)
	if err != nil {
		return Value{}, err
	}
	key := pos + int(off.Int32())
	s, ok := r.table.strings[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: no string at offset %d (field %d of record %d)", ErrBounds, key, i, r.index)
	}
	return stringValue(s), nil
}

// Read decodes specs in order as one pass over the record. In sparse tables
// specs must start at field 0 and cover every field up to the last one
// requested; the cursor is padded to the record size afterwards.
func (r *Row) Read(specs []FieldSpec) ([]FieldValue, error) {
	if r.sparse() {
		r.cur.rebase(r.base, 0)
		r.next = 0
	}
	out := make([]FieldValue, len(specs))
	for k, spec := range specs {
		out[k].FieldSpec = spec
		var err error
		if spec.IsArray() {
			out[k].Values, err = r.Array(spec.Index, spec.Type, spec.ArraySize)
		} else {
			out[k].Value, err = r.Field(spec.Index, spec.Type)
		}
		if err != nil {
			name := spec.Name
			if name == "" {
				name = fmt.Sprintf("#%d", spec.Index)
			}
			return nil, fmt.Errorf("id %d field %s: %w", r.id, name, err)
		}
	}
	if r.sparse() && r.cur.position < r.size*8 {
		r.cur.position = r.size * 8
	}
	return out, nil
}
