package wdc2

import (
	"fmt"
)

// Schema maps rows onto values of T. Fields are registered once, in the
// order they are decoded, each with a setter that stores the decoded value.
//
//	type Item struct {
//		ID   int32
//		Name string
//		Ints [2]int32
//	}
//
//	s := wdc2.NewSchema[Item]().
//		Scalar(0, wdc2.TypeInt32, func(it *Item, v wdc2.Value) { it.ID = v.Int32() }).
//		Scalar(1, wdc2.TypeString, func(it *Item, v wdc2.Value) { it.Name = v.Str() }).
//		Array(2, wdc2.TypeInt32, 2, func(it *Item, vs []wdc2.Value) { ... })
type Schema[T any] struct {
	specs   []FieldSpec
	setters []func(*T, FieldValue)
}

// NewSchema returns an empty schema.
func NewSchema[T any]() *Schema[T] {
	return &Schema[T]{}
}

// Scalar registers a scalar field.
func (s *Schema[T]) Scalar(index int, t Type, set func(*T, Value)) *Schema[T] {
	s.specs = append(s.specs, FieldSpec{Index: index, Type: t})
	s.setters = append(s.setters, func(dst *T, fv FieldValue) { set(dst, fv.Value) })
	return s
}

// Array registers a fixed-size array field.
func (s *Schema[T]) Array(index int, t Type, n int, set func(*T, []Value)) *Schema[T] {
	s.specs = append(s.specs, FieldSpec{Index: index, Type: t, ArraySize: n})
	s.setters = append(s.setters, func(dst *T, fv FieldValue) { set(dst, fv.Values) })
	return s
}

// Specs returns the registered field specs in decode order.
func (s *Schema[T]) Specs() []FieldSpec {
	out := make([]FieldSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Bind checks the schema against a table's layout, so that mismatches are
// reported once instead of on every row.
func (s *Schema[T]) Bind(t *Table) error {
	return ValidateSpecs(t, s.specs)
}

// Decode reads one row into a new T.
func (s *Schema[T]) Decode(row *Row) (T, error) {
	var out T
	vals, err := row.Read(s.specs)
	if err != nil {
		return out, err
	}
	for i, fv := range vals {
		s.setters[i](&out, fv)
	}
	return out, nil
}

// DecodeAll binds the schema and decodes every row of t, keyed by id.
func DecodeAll[T any](t *Table, s *Schema[T]) (map[int32]T, error) {
	if err := s.Bind(t); err != nil {
		return nil, err
	}
	out := make(map[int32]T, t.Len())
	for _, id := range t.IDs() {
		row, _ := t.Row(id)
		v, err := s.Decode(row)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

// ValidateSpecs checks specs against the table: supported types, pallet
// array cardinality and, for sparse tables, contiguous ascending indexes
// starting at 0.
func ValidateSpecs(t *Table, specs []FieldSpec) error {
	cols := t.cat.columns
	sparse := t.Flags().Has(FlagSparse)
	for k, spec := range specs {
		if !spec.Type.valid() {
			return fmt.Errorf("%w: %s for field %d", ErrUnsupportedType, spec.Type, spec.Index)
		}
		if spec.Index < 0 {
			return fmt.Errorf("%w: field index %d", ErrFormat, spec.Index)
		}
		if sparse && spec.Index < len(cols) && spec.Index != k {
			return fmt.Errorf("%w: spec %d reads field %d", ErrFieldOrder, k, spec.Index)
		}
		if spec.Index >= len(cols) {
			if spec.IsArray() {
				return fmt.Errorf("%w: %s[] for field %d of %d", ErrUnsupportedType, spec.Type, spec.Index, len(cols))
			}
			continue
		}
		col := cols[spec.Index]
		switch col.Compression {
		case CompressionPalletArray:
			if spec.ArraySize != col.Cardinality() {
				return fmt.Errorf("%w: field %d has cardinality %d, spec reads %d", ErrPalletArraySize, spec.Index, col.Cardinality(), spec.ArraySize)
			}
		case CompressionPallet, CompressionCommon:
			if spec.IsArray() {
				return fmt.Errorf("%w: field %d (%s) is scalar", ErrFormat, spec.Index, col.Compression)
			}
		}
	}
	return nil
}

// InferSpecs derives one spec per column from the column meta alone. Element
// widths of 64 bits decode as int64, everything else as int32; strings cannot
// be told apart from integers and are never inferred. Sparse tables store
// strings inline, so inferred specs only read them correctly when no column
// is a string; otherwise every later field in the pass is misaligned.
func (t *Table) InferSpecs() []FieldSpec {
	specs := make([]FieldSpec, len(t.cat.columns))
	for i, col := range t.cat.columns {
		width := 0
		switch col.Compression {
		case CompressionNone:
			width = noneWidth(t.cat.fields[i], col)
		case CompressionImmediate, CompressionSignedImmediate:
			width = col.BitWidth()
		}
		spec := FieldSpec{Name: fmt.Sprintf("field_%d", i), Index: i, Type: TypeInt32}
		if width > 32 {
			spec.Type = TypeInt64
		}
		switch {
		case col.Compression == CompressionPalletArray:
			spec.ArraySize = col.Cardinality()
		case width > 0 && int(col.Size) > width:
			spec.ArraySize = int(col.Size) / width
		}
		specs[i] = spec
	}
	return specs
}
