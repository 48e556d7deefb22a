package wdc2_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/samcharles93/db2kit/internal/wdc2test"
	"github.com/samcharles93/db2kit/pkg/wdc2"
)

// mixedTable uses every compression strategy in one fixed-size layout.
func mixedTable() *wdc2test.Table {
	return &wdc2test.Table{
		LayoutHash: 0xA1B2C3D4,
		Columns: []wdc2test.Column{
			{Compression: wdc2.CompressionNone, Width: 32},
			{Compression: wdc2.CompressionImmediate, Width: 12},
			{Compression: wdc2.CompressionSignedImmediate, Width: 10},
			{Compression: wdc2.CompressionPallet, Width: 2, Pallet: []uint32{7, 8, 9, 10}},
			{Compression: wdc2.CompressionPalletArray, Width: 1, Cardinality: 3, Pallet: []uint32{1, 2, 3, 4, 5, 6}},
			{Compression: wdc2.CompressionCommon, Default: 5, Common: []wdc2test.CommonValue{{ID: 2, Value: 77}}},
			{Compression: wdc2.CompressionNone, Width: 32},
			{Compression: wdc2.CompressionNone, Width: 16, Count: 3},
			{Compression: wdc2.CompressionNone, Width: 32},
		},
		Records: [][]any{
			{1, 3000, -300, 2, 1, nil, float32(1.5), []uint64{1, 2, 65535}, "alpha"},
			{2, 4095, 511, 0, 0, nil, float32(-2.25), []uint64{4, 5, 6}, "beta"},
		},
	}
}

func mustParse(t *testing.T, b *wdc2test.Table) *wdc2.Table {
	t.Helper()
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	tbl, err := wdc2.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tbl
}

func mustRow(t *testing.T, tbl *wdc2.Table, id int32) *wdc2.Row {
	t.Helper()
	row, ok := tbl.Row(id)
	if !ok {
		t.Fatalf("missing row %d (ids %v)", id, tbl.IDs())
	}
	return row
}

func TestSingleFieldRoundTrip(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, &wdc2test.Table{
		Columns: []wdc2test.Column{{Compression: wdc2.CompressionNone, Width: 32}},
		Records: [][]any{{42}},
	})
	row := mustRow(t, tbl, 42)
	v, err := row.Field(0, wdc2.TypeInt32)
	if err != nil {
		t.Fatalf("field 0: %v", err)
	}
	if v.Int32() != 42 {
		t.Fatalf("field 0: got %d want 42", v.Int32())
	}
}

func TestRecordCountMatchesIDs(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, mixedTable())
	if tbl.RecordCount() != len(tbl.IDs()) {
		t.Fatalf("record count %d, ids %v", tbl.RecordCount(), tbl.IDs())
	}
	if tbl.FieldCount() != 9 {
		t.Fatalf("field count: got %d want 9", tbl.FieldCount())
	}
	for _, id := range tbl.IDs() {
		v, err := mustRow(t, tbl, id).Field(0, wdc2.TypeInt32)
		if err != nil {
			t.Fatalf("id field of %d: %v", id, err)
		}
		if v.Int32() != id {
			t.Fatalf("row keyed %d decodes id %d", id, v.Int32())
		}
	}
	if got := tbl.Header().LayoutHash; got != 0xA1B2C3D4 {
		t.Fatalf("layout hash: got %#x", got)
	}
}

func TestCompressionStrategies(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, mixedTable())
	tests := []struct {
		name  string
		id    int32
		field int
		typ   wdc2.Type
		want  string
	}{
		{"immediate", 1, 1, wdc2.TypeInt32, "3000"},
		{"immediate max", 2, 1, wdc2.TypeUint16, "4095"},
		{"signed immediate", 1, 2, wdc2.TypeInt32, "-300"},
		{"signed immediate int64", 1, 2, wdc2.TypeInt64, "-300"},
		{"signed immediate int16", 1, 2, wdc2.TypeInt16, "-300"},
		{"signed immediate positive", 2, 2, wdc2.TypeInt32, "511"},
		{"pallet", 1, 3, wdc2.TypeInt32, "9"},
		{"pallet first", 2, 3, wdc2.TypeUint8, "7"},
		{"common default", 1, 5, wdc2.TypeInt32, "5"},
		{"common override", 2, 5, wdc2.TypeInt32, "77"},
		{"float", 1, 6, wdc2.TypeFloat32, "1.5"},
		{"negative float", 2, 6, wdc2.TypeFloat32, "-2.25"},
		{"string", 1, 8, wdc2.TypeString, "alpha"},
		{"string second", 2, 8, wdc2.TypeString, "beta"},
	}
	for _, tt := range tests {
		v, err := mustRow(t, tbl, tt.id).Field(tt.field, tt.typ)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if v.Type() != tt.typ {
			t.Fatalf("%s: type %s, want %s", tt.name, v.Type(), tt.typ)
		}
		if v.String() != tt.want {
			t.Fatalf("%s: got %s want %s", tt.name, v, tt.want)
		}
	}
}

func TestArrays(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, mixedTable())
	row := mustRow(t, tbl, 1)

	pal, err := row.Array(4, wdc2.TypeInt32, 3)
	if err != nil {
		t.Fatalf("pallet array: %v", err)
	}
	if got := int32s(pal); !slices.Equal(got, []int32{4, 5, 6}) {
		t.Fatalf("pallet array: got %v", got)
	}

	inline, err := row.Array(7, wdc2.TypeInt16, 3)
	if err != nil {
		t.Fatalf("inline array: %v", err)
	}
	if got := int32s(inline); !slices.Equal(got, []int32{1, 2, -1}) {
		t.Fatalf("inline array as int16: got %v", got)
	}

	u, err := row.Array(7, wdc2.TypeUint16, 3)
	if err != nil {
		t.Fatalf("inline array: %v", err)
	}
	if u[2].Uint64() != 65535 {
		t.Fatalf("inline array as uint16: got %d", u[2].Uint64())
	}

	pal, err = mustRow(t, tbl, 2).Array(4, wdc2.TypeUint32, 3)
	if err != nil {
		t.Fatalf("pallet array: %v", err)
	}
	if got := int32s(pal); !slices.Equal(got, []int32{1, 2, 3}) {
		t.Fatalf("pallet array row 2: got %v", got)
	}
}

func TestPalletArraySizeMismatch(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, mixedTable())
	_, err := mustRow(t, tbl, 1).Array(4, wdc2.TypeInt32, 2)
	if !errors.Is(err, wdc2.ErrPalletArraySize) {
		t.Fatalf("expected ErrPalletArraySize, got %v", err)
	}
	if !errors.Is(err, wdc2.ErrFormat) {
		t.Fatalf("expected a format error, got %v", err)
	}

	s := wdc2.NewSchema[[]int32]().Array(4, wdc2.TypeInt32, 4, func(dst *[]int32, vs []wdc2.Value) {})
	if err := s.Bind(tbl); !errors.Is(err, wdc2.ErrPalletArraySize) {
		t.Fatalf("bind: expected ErrPalletArraySize, got %v", err)
	}
}

func TestCommonConsumesNoBits(t *testing.T) {
	t.Parallel()

	// In a sparse record the Common column sits between two inline fields;
	// the field after it only decodes correctly if no bits were consumed.
	tbl := mustParse(t, sparseTable())
	row := mustRow(t, tbl, 10)
	vals, err := row.Read(sparseSpecs())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if vals[2].Value.Int32() != 9 {
		t.Fatalf("common default: got %d want 9", vals[2].Value.Int32())
	}
	if vals[3].Value.Uint64() != 100 {
		t.Fatalf("field after common: got %d want 100", vals[3].Value.Uint64())
	}
}

func TestCopyTableRowsMatchSource(t *testing.T) {
	t.Parallel()

	b := mixedTable()
	b.Copies = []wdc2.CopyEntry{{NewID: 100, SourceID: 1}, {NewID: 200, SourceID: 2}, {NewID: 300, SourceID: 100}}
	tbl := mustParse(t, b)

	if tbl.Len() != 5 {
		t.Fatalf("expected 5 logical rows, got %d", tbl.Len())
	}
	if !slices.Equal(tbl.IDs(), []int32{1, 2, 100, 200, 300}) {
		t.Fatalf("ids: %v", tbl.IDs())
	}
	specs := []wdc2.FieldSpec{
		{Index: 0, Type: wdc2.TypeInt32},
		{Index: 1, Type: wdc2.TypeInt32},
		{Index: 2, Type: wdc2.TypeInt32},
		{Index: 3, Type: wdc2.TypeInt32},
		{Index: 4, Type: wdc2.TypeInt32, ArraySize: 3},
		{Index: 5, Type: wdc2.TypeInt32},
		{Index: 6, Type: wdc2.TypeFloat32},
		{Index: 7, Type: wdc2.TypeUint16, ArraySize: 3},
		{Index: 8, Type: wdc2.TypeString},
	}
	for _, c := range tbl.CopyTable() {
		src := render(t, mustRow(t, tbl, c.SourceID), specs)
		dst := mustRow(t, tbl, c.NewID)
		if dst.ID() != c.NewID {
			t.Fatalf("copy %d has id %d", c.NewID, dst.ID())
		}
		if got := render(t, dst, specs); got != src {
			t.Fatalf("copy %d differs from %d:\n got %s\nwant %s", c.NewID, c.SourceID, got, src)
		}
	}

	// Reading the clone must not move the source's cursor or vice versa.
	src, dst := mustRow(t, tbl, 1), mustRow(t, tbl, 100)
	a, _ := src.Field(8, wdc2.TypeString)
	b2, _ := dst.Field(8, wdc2.TypeString)
	a2, _ := src.Field(8, wdc2.TypeString)
	if a.Str() != "alpha" || b2.Str() != "alpha" || a2.Str() != "alpha" {
		t.Fatalf("interleaved reads: %q %q %q", a.Str(), b2.Str(), a2.Str())
	}
}

func TestCopyTableErrors(t *testing.T) {
	t.Parallel()

	b := mixedTable()
	b.Copies = []wdc2.CopyEntry{{NewID: 100, SourceID: 55}}
	if _, err := wdc2.Parse(b.MustBytes()); !errors.Is(err, wdc2.ErrFormat) {
		t.Fatalf("missing source: expected format error, got %v", err)
	}

	b.Copies = []wdc2.CopyEntry{{NewID: 2, SourceID: 1}}
	if _, err := wdc2.Parse(b.MustBytes()); !errors.Is(err, wdc2.ErrDuplicateID) {
		t.Fatalf("existing target: expected ErrDuplicateID, got %v", err)
	}
}

func TestDuplicateRecordID(t *testing.T) {
	t.Parallel()

	b := &wdc2test.Table{
		Columns: []wdc2test.Column{{Compression: wdc2.CompressionNone, Width: 32}},
		Records: [][]any{{7}, {7}},
	}
	if _, err := wdc2.Parse(b.MustBytes()); !errors.Is(err, wdc2.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestIndexDataOverridesIDField(t *testing.T) {
	t.Parallel()

	b := mixedTable()
	b.IndexData = []int32{500, 600}
	tbl := mustParse(t, b)
	if !slices.Equal(tbl.IDs(), []int32{500, 600}) {
		t.Fatalf("ids: %v", tbl.IDs())
	}
	v, err := mustRow(t, tbl, 600).Field(0, wdc2.TypeInt32)
	if err != nil {
		t.Fatalf("field 0: %v", err)
	}
	if v.Int32() != 2 {
		t.Fatalf("slot 1 id field: got %d want 2", v.Int32())
	}
	// Common lookups use the row id, so the override for id 2 no longer applies.
	v, _ = mustRow(t, tbl, 600).Field(5, wdc2.TypeInt32)
	if v.Int32() != 5 {
		t.Fatalf("common for id 600: got %d want default 5", v.Int32())
	}
}

func sparseTable() *wdc2test.Table {
	return &wdc2test.Table{
		Flags: wdc2.FlagSparse,
		Columns: []wdc2test.Column{
			{Compression: wdc2.CompressionNone, Width: 32},
			{Compression: wdc2.CompressionNone, Width: 32},
			{Compression: wdc2.CompressionCommon, Default: 9, Common: []wdc2test.CommonValue{{ID: 20, Value: 3}}},
			{Compression: wdc2.CompressionImmediate, Width: 16},
		},
		Records: [][]any{
			{10, "ten", nil, 100},
			{20, "twenty", nil, 200},
			{30, "thirty", nil, 300},
		},
		SparseEntries: []int{0, 1, 0, wdc2test.Absent, 2},
	}
}

func sparseSpecs() []wdc2.FieldSpec {
	return []wdc2.FieldSpec{
		{Name: "ID", Index: 0, Type: wdc2.TypeInt32},
		{Name: "Name", Index: 1, Type: wdc2.TypeString},
		{Name: "Common", Index: 2, Type: wdc2.TypeInt32},
		{Name: "Value", Index: 3, Type: wdc2.TypeUint16},
	}
}

func TestSparseOffsetDedup(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, sparseTable())
	entries := tbl.SparseEntries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 surviving sparse entries, got %d", len(entries))
	}
	if !(entries[0].Offset < entries[1].Offset && entries[1].Offset < entries[2].Offset) {
		t.Fatalf("survivors out of stream order: %+v", entries)
	}
	if !slices.Equal(tbl.IDs(), []int32{10, 20, 30}) {
		t.Fatalf("ids: %v", tbl.IDs())
	}
	for i, id := range []int32{10, 20, 30} {
		if got := mustRow(t, tbl, id).Index(); got != i {
			t.Fatalf("row %d bound to slot %d, want %d", id, got, i)
		}
	}

	vals, err := mustRow(t, tbl, 20).Read(sparseSpecs())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if vals[0].Value.Int32() != 20 || vals[1].Value.Str() != "twenty" || vals[2].Value.Int32() != 3 || vals[3].Value.Uint64() != 200 {
		t.Fatalf("row 20: %v", vals)
	}
}

func TestSparseDuplicatesKeptWithCopyTable(t *testing.T) {
	t.Parallel()

	b := sparseTable()
	b.SparseEntries = []int{0, 0, 1}
	b.IndexData = []int32{10, 11, 20}
	b.Copies = []wdc2.CopyEntry{{NewID: 99, SourceID: 10}}
	tbl := mustParse(t, b)

	if !slices.Equal(tbl.IDs(), []int32{10, 11, 20, 99}) {
		t.Fatalf("ids: %v", tbl.IDs())
	}
	for _, id := range []int32{10, 11, 99} {
		v, err := mustRow(t, tbl, id).Field(0, wdc2.TypeInt32)
		if err != nil {
			t.Fatalf("row %d: %v", id, err)
		}
		if v.Int32() != 10 {
			t.Fatalf("row %d reads record %d", id, v.Int32())
		}
	}
}

func TestSparseRowsFollowEntries(t *testing.T) {
	t.Parallel()

	b := sparseTable()
	b.SparseEntries = []int{2, wdc2test.Absent}
	tbl := mustParse(t, b)

	if tbl.RecordCount() != 3 || tbl.Len() != 1 {
		t.Fatalf("records %d, rows %d", tbl.RecordCount(), tbl.Len())
	}
	if !slices.Equal(tbl.IDs(), []int32{30}) {
		t.Fatalf("ids: %v", tbl.IDs())
	}
}

func TestSparseFieldOrder(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, sparseTable())
	row := mustRow(t, tbl, 30)
	if _, err := row.Field(3, wdc2.TypeInt32); !errors.Is(err, wdc2.ErrFieldOrder) {
		t.Fatalf("expected ErrFieldOrder, got %v", err)
	}

	// Each full pass starts over, so repeated passes agree.
	first, err := row.Read(sparseSpecs())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := row.Read(sparseSpecs())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	for i := range first {
		if first[i].Value.String() != second[i].Value.String() {
			t.Fatalf("field %d: %s then %s", i, first[i].Value, second[i].Value)
		}
	}
	if first[1].Value.Str() != "thirty" {
		t.Fatalf("name: %q", first[1].Value.Str())
	}

	bad := []wdc2.FieldSpec{{Index: 0, Type: wdc2.TypeInt32}, {Index: 2, Type: wdc2.TypeInt32}}
	if err := wdc2.ValidateSpecs(tbl, bad); !errors.Is(err, wdc2.ErrFieldOrder) {
		t.Fatalf("validate: expected ErrFieldOrder, got %v", err)
	}
}

func TestFieldIndexPastDeclaredFields(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, &wdc2test.Table{
		Columns: []wdc2test.Column{{Compression: wdc2.CompressionNone, Width: 32}},
		Records: [][]any{{1}, {2}},
		Refs:    []wdc2.ReferenceEntry{{ID: 7, Index: 0}},
	})

	v, err := mustRow(t, tbl, 1).Field(1, wdc2.TypeInt32)
	if err != nil {
		t.Fatalf("reference field: %v", err)
	}
	if v.Int32() != 7 {
		t.Fatalf("reference field: got %d want 7", v.Int32())
	}
	v, err = mustRow(t, tbl, 1).Field(1, wdc2.TypeUint8)
	if err != nil || v.Type() != wdc2.TypeUint8 || v.Uint64() != 7 {
		t.Fatalf("reference field as uint8: %v %v", v, err)
	}
	v, err = mustRow(t, tbl, 2).Field(5, wdc2.TypeInt32)
	if err != nil {
		t.Fatalf("missing reference: %v", err)
	}
	if v.Int32() != 0 {
		t.Fatalf("missing reference: got %d want 0", v.Int32())
	}
	if ref, ok := mustRow(t, tbl, 1).Reference(); !ok || ref != 7 {
		t.Fatalf("Reference(): %d %v", ref, ok)
	}
	if refs := tbl.References(); refs == nil || refs.NumRecords != 1 {
		t.Fatalf("reference block: %+v", refs)
	}
}

func TestReferenceKeyedByRecordIndex(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, &wdc2test.Table{
		Columns: []wdc2test.Column{{Compression: wdc2.CompressionNone, Width: 32}},
		Records: [][]any{{1}, {2}, {3}},
		Refs:    []wdc2.ReferenceEntry{{ID: 70, Index: 2}, {ID: 50, Index: 0}},
	})

	want := map[int32]int32{1: 50, 3: 70}
	for _, id := range tbl.IDs() {
		ref, ok := mustRow(t, tbl, id).Reference()
		w, has := want[id]
		if ok != has || ref != w {
			t.Fatalf("row %d: reference %d %v, want %d %v", id, ref, ok, w, has)
		}
	}
}

func TestNoneFallsBackToColumnWidth(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, &wdc2test.Table{
		Columns: []wdc2test.Column{
			{Compression: wdc2.CompressionNone, Width: 32},
			{Compression: wdc2.CompressionNone, Width: 64, NoneFallback: true},
		},
		Records: [][]any{{1, uint64(1) << 40}},
	})
	v, err := mustRow(t, tbl, 1).Field(1, wdc2.TypeUint64)
	if err != nil {
		t.Fatalf("field 1: %v", err)
	}
	if v.Uint64() != 1<<40 {
		t.Fatalf("field 1: got %d", v.Uint64())
	}
}

func TestRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	good := mixedTable().MustBytes()
	tbl, err := wdc2.Parse(good)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	recordsAt := int(tbl.Section().FileOffset)

	badMagic := bytes.Clone(good)
	badMagic[0] = 'X'

	multi := mixedTable()
	multi.SectionCount = 2

	sparseOff := sparseTable()
	sparseOff.SparseOffsetDelta = -1 << 20

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, wdc2.ErrInvalidMagic},
		{"short header", good[:100], wdc2.ErrInvalidMagic},
		{"bad magic", badMagic, wdc2.ErrInvalidMagic},
		{"two sections", multi.MustBytes(), wdc2.ErrUnsupportedSections},
		{"sparse offset before section", sparseOff.MustBytes(), wdc2.ErrSparseOffset},
		{"truncated records", good[:recordsAt+5], wdc2.ErrBounds},
		{"truncated string table", good[:len(good)-2], wdc2.ErrBounds},
		{"truncated field meta", good[:120], wdc2.ErrBounds},
	}
	for _, tt := range tests {
		got, err := wdc2.Parse(tt.data)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		if got != nil {
			t.Fatalf("%s: partial table returned", tt.name)
		}
	}
}

func TestRejectsOversizedCounts(t *testing.T) {
	t.Parallel()

	patch := func(b []byte, off int, v uint32) []byte {
		out := bytes.Clone(b)
		binary.LittleEndian.PutUint32(out[off:], v)
		return out
	}

	good := mixedTable().MustBytes()
	fields := 9
	columnAt := func(col int) int { return 108 + 4*fields + 24*col }

	withRefs := mixedTable()
	withRefs.Refs = []wdc2.ReferenceEntry{{ID: 7, Index: 0}}
	refs := withRefs.MustBytes()

	sparse := sparseTable().MustBytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"field count", patch(good[:108], 8, 0x7fffffff)},
		{"field count past meta", patch(good, 8, 1<<20)},
		{"pallet data size", patch(good, columnAt(3)+4, 0xfffffffc)},
		{"common data size", patch(good, columnAt(5)+4, 0xfffffff8)},
		{"index data size", patch(good, 100, 0x7ffffff0)},
		{"copy table size", patch(good, 92, 0x7ffffff8)},
		{"sparse id range", patch(sparse, 32, 0x7fffffff)},
		{"parent record count", patch(refs, len(refs)-20, 0x7fffffff)},
	}
	for _, tt := range tests {
		got, err := wdc2.Parse(tt.data)
		if !errors.Is(err, wdc2.ErrBounds) {
			t.Fatalf("%s: expected ErrBounds, got %v", tt.name, err)
		}
		if got != nil {
			t.Fatalf("%s: partial table returned", tt.name)
		}
	}
}

func TestUnsupportedType(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, mixedTable())
	_, err := mustRow(t, tbl, 1).Field(0, wdc2.Type(99))
	if !errors.Is(err, wdc2.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := wdc2.ParseType("double"); !errors.Is(err, wdc2.ErrUnsupportedType) {
		t.Fatalf("ParseType: expected ErrUnsupportedType, got %v", err)
	}
	if _, err := mustRow(t, tbl, 1).Array(3, wdc2.TypeInt32, 2); !errors.Is(err, wdc2.ErrFormat) {
		t.Fatalf("pallet as array: expected format error, got %v", err)
	}
}

type mixedRow struct {
	ID     int32
	Pallet [3]int32
	Common int32
	Scale  float32
	Name   string
}

func TestSchemaDecodeAll(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, mixedTable())
	s := wdc2.NewSchema[mixedRow]().
		Scalar(0, wdc2.TypeInt32, func(r *mixedRow, v wdc2.Value) { r.ID = v.Int32() }).
		Array(4, wdc2.TypeInt32, 3, func(r *mixedRow, vs []wdc2.Value) {
			for i, v := range vs {
				r.Pallet[i] = v.Int32()
			}
		}).
		Scalar(5, wdc2.TypeInt32, func(r *mixedRow, v wdc2.Value) { r.Common = v.Int32() }).
		Scalar(6, wdc2.TypeFloat32, func(r *mixedRow, v wdc2.Value) { r.Scale = v.Float32() }).
		Scalar(8, wdc2.TypeString, func(r *mixedRow, v wdc2.Value) { r.Name = v.Str() })

	rows, err := wdc2.DecodeAll(tbl, s)
	if err != nil {
		t.Fatalf("decode all: %v", err)
	}
	want := map[int32]mixedRow{
		1: {ID: 1, Pallet: [3]int32{4, 5, 6}, Common: 5, Scale: 1.5, Name: "alpha"},
		2: {ID: 2, Pallet: [3]int32{1, 2, 3}, Common: 77, Scale: -2.25, Name: "beta"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows", len(rows))
	}
	for id, w := range want {
		if rows[id] != w {
			t.Fatalf("row %d: got %+v want %+v", id, rows[id], w)
		}
	}
}

func TestInferSpecs(t *testing.T) {
	t.Parallel()

	tbl := mustParse(t, mixedTable())
	specs := tbl.InferSpecs()
	if len(specs) != 9 {
		t.Fatalf("got %d specs", len(specs))
	}
	if specs[4].ArraySize != 3 || specs[7].ArraySize != 3 || specs[0].IsArray() {
		t.Fatalf("array sizes: %+v", specs)
	}
	if err := wdc2.ValidateSpecs(tbl, specs); err != nil {
		t.Fatalf("inferred specs do not validate: %v", err)
	}
	vals, err := mustRow(t, tbl, 2).Read(specs)
	if err != nil {
		t.Fatalf("read inferred: %v", err)
	}
	if vals[1].Value.Int32() != 4095 {
		t.Fatalf("field_1: %v", vals[1].Value)
	}
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Mixed.db2")
	if err := mixedTable().WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := wdc2.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	v, err := mustRow(t, tbl, 2).Field(8, wdc2.TypeString)
	if err != nil {
		t.Fatalf("string after unmap: %v", err)
	}
	if v.Str() != "beta" {
		t.Fatalf("got %q", v.Str())
	}

	if _, err := wdc2.Open(filepath.Join(t.TempDir(), "missing.db2")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadFromReader(t *testing.T) {
	t.Parallel()

	tbl, err := wdc2.Read(bytes.NewReader(sparseTable().MustBytes()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !tbl.Flags().Has(wdc2.FlagSparse) {
		t.Fatalf("sparse flag lost: %b", tbl.Flags())
	}
	if tbl.StringCount() != 0 {
		t.Fatalf("sparse tables have no string table, got %d entries", tbl.StringCount())
	}
}

func render(t *testing.T, row *wdc2.Row, specs []wdc2.FieldSpec) string {
	t.Helper()
	vals, err := row.Read(specs)
	if err != nil {
		t.Fatalf("read row %d: %v", row.ID(), err)
	}
	var buf bytes.Buffer
	for _, fv := range vals {
		if fv.IsArray() {
			for _, v := range fv.Values {
				buf.WriteString(v.String() + ",")
			}
		} else {
			buf.WriteString(fv.Value.String())
		}
		buf.WriteByte('|')
	}
	return buf.String()
}

func int32s(vs []wdc2.Value) []int32 {
	out := make([]int32, len(vs))
	for i, v := range vs {
		out[i] = v.Int32()
	}
	return out
}
