package wdc2

import "fmt"

// noneWidth is the element width of an uncompressed column. Fields of 32
// bits or wider may declare no unused bits, in which case the column's own
// width is used.
func noneWidth(f FieldMeta, c ColumnMeta) int {
	if w := f.Width(); w > 0 {
		return w
	}
	return c.BitWidth()
}

func (c *catalog) readPacked(i int, r *bitReader) (uint64, error) {
	col := c.columns[i]
	switch col.Compression {
	case CompressionNone:
		return r.readBits(noneWidth(c.fields[i], col))
	case CompressionImmediate:
		return r.readBits(col.BitWidth())
	case CompressionSignedImmediate:
		v, err := r.readBits(col.BitWidth())
		return signExtend(v, col.BitWidth()), err
	}
	return 0, fmt.Errorf("%w: column %d is not packed inline (%s)", ErrFormat, i, col.Compression)
}

func (c *catalog) palletValue(i int, idx uint64) (Value32, error) {
	pal := c.pallet[i]
	if idx >= uint64(len(pal)) {
		return 0, fmt.Errorf("%w: pallet index %d for column %d, pallet has %d values", ErrBounds, idx, i, len(pal))
	}
	return pal[idx], nil
}

// decodeScalar decodes one element of column i. id is the record id used to
// resolve Common columns, which consume no bits.
func (c *catalog) decodeScalar(i int, id int32, r *bitReader, t Type) (Value, error) {
	col := c.columns[i]
	switch col.Compression {
	case CompressionNone, CompressionImmediate, CompressionSignedImmediate:
		raw, err := c.readPacked(i, r)
		if err != nil {
			return Value{}, err
		}
		return makeValue(t, raw), nil
	case CompressionCommon:
		if v, ok := c.common[i][id]; ok {
			return fromValue32(t, v), nil
		}
		return fromValue32(t, col.DefaultValue()), nil
	case CompressionPallet:
		idx, err := r.readBits(col.BitWidth())
		if err != nil {
			return Value{}, err
		}
		v, err := c.palletValue(i, idx)
		if err != nil {
			return Value{}, err
		}
		return fromValue32(t, v), nil
	}
	return Value{}, fmt.Errorf("%w: column %d (%s) cannot be read as a scalar", ErrFormat, i, col.Compression)
}

// decodeArray decodes n elements of column i.
func (c *catalog) decodeArray(i int, r *bitReader, t Type, n int) ([]Value, error) {
	col := c.columns[i]
	switch col.Compression {
	case CompressionNone, CompressionImmediate, CompressionSignedImmediate:
		out := make([]Value, n)
		for k := range out {
			raw, err := c.readPacked(i, r)
			if err != nil {
				return nil, err
			}
			out[k] = makeValue(t, raw)
		}
		return out, nil
	case CompressionPalletArray:
		card := col.Cardinality()
		if n != card {
			return nil, fmt.Errorf("%w: column %d has cardinality %d, requested %d", ErrPalletArraySize, i, card, n)
		}
		idx, err := r.readBits(col.BitWidth())
		if err != nil {
			return nil, err
		}
		start := idx * uint64(card)
		if start+uint64(card) > uint64(len(c.pallet[i])) {
			return nil, fmt.Errorf("%w: pallet array index %d for column %d, pallet has %d values", ErrBounds, idx, i, len(c.pallet[i]))
		}
		out := make([]Value, card)
		for k := range out {
			out[k] = fromValue32(t, c.pallet[i][start+uint64(k)])
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: column %d (%s) cannot be read as an array", ErrFormat, i, col.Compression)
}
