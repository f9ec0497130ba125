package record

import (
	"encoding/binary"
	"math"

	"github.com/huanguang-z/rowstore/status"
)

// TupleBuilder assembles one Tuple conformant to a Schema, validating
// column index, type, and length bounds as each setter is called.
type TupleBuilder struct {
	schema  *Schema
	set     []bool
	null    []bool
	fixed   []byte
	varArea []byte
}

// NewTupleBuilder starts a fresh builder for schema.
func NewTupleBuilder(schema *Schema) *TupleBuilder {
	return &TupleBuilder{
		schema: schema,
		set:    make([]bool, len(schema.Columns)),
		null:   make([]bool, len(schema.Columns)),
		fixed:  make([]byte, schema.fixedSize),
	}
}

func (b *TupleBuilder) column(i int) (Column, error) {
	if i < 0 || i >= len(b.schema.Columns) {
		return Column{}, status.InvalidArgumentf("column index %d out of range", i)
	}
	return b.schema.Columns[i], nil
}

func (b *TupleBuilder) markSet(i int) {
	b.set[i] = true
	b.null[i] = false
}

func (b *TupleBuilder) cell(i int) []byte {
	off := b.schema.fixedOffset[i]
	size := b.schema.columnFixedSize(i)
	return b.fixed[off : off+size]
}

// SetInt32 sets column i's INT32 value.
func (b *TupleBuilder) SetInt32(i int, v int32) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if c.Type != INT32 {
		return status.InvalidArgumentf("column %d is %v, not INT32", i, c.Type)
	}
	binary.LittleEndian.PutUint32(b.cell(i), uint32(v))
	b.markSet(i)
	return nil
}

// SetInt64 sets column i's INT64 value.
func (b *TupleBuilder) SetInt64(i int, v int64) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if c.Type != INT64 {
		return status.InvalidArgumentf("column %d is %v, not INT64", i, c.Type)
	}
	binary.LittleEndian.PutUint64(b.cell(i), uint64(v))
	b.markSet(i)
	return nil
}

// SetFloat sets column i's FLOAT value.
func (b *TupleBuilder) SetFloat(i int, v float32) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if c.Type != FLOAT {
		return status.InvalidArgumentf("column %d is %v, not FLOAT", i, c.Type)
	}
	binary.LittleEndian.PutUint32(b.cell(i), math.Float32bits(v))
	b.markSet(i)
	return nil
}

// SetDouble sets column i's DOUBLE value.
func (b *TupleBuilder) SetDouble(i int, v float64) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if c.Type != DOUBLE {
		return status.InvalidArgumentf("column %d is %v, not DOUBLE", i, c.Type)
	}
	binary.LittleEndian.PutUint64(b.cell(i), math.Float64bits(v))
	b.markSet(i)
	return nil
}

// SetDate sets column i's DATE value (days since 1970-01-01).
func (b *TupleBuilder) SetDate(i int, days int32) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if c.Type != DATE {
		return status.InvalidArgumentf("column %d is %v, not DATE", i, c.Type)
	}
	binary.LittleEndian.PutUint32(b.cell(i), uint32(days))
	b.markSet(i)
	return nil
}

// SetChar sets column i's CHAR(N) value: right-pads with zero bytes and
// silently truncates oversize input to N.
func (b *TupleBuilder) SetChar(i int, v string) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if c.Type != CHAR {
		return status.InvalidArgumentf("column %d is %v, not CHAR", i, c.Type)
	}
	cell := b.cell(i)
	for j := range cell {
		cell[j] = 0
	}
	copy(cell, v)
	b.markSet(i)
	return nil
}

// SetVarchar sets column i's VARCHAR payload, appending it to the var
// area under construction; len(v) must not exceed Column.Len.
func (b *TupleBuilder) SetVarchar(i int, v string) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if c.Type != VARCHAR {
		return status.InvalidArgumentf("column %d is %v, not VARCHAR", i, c.Type)
	}
	if len(v) > c.Len {
		return status.InvalidArgumentf("column %d: varchar length %d exceeds bound %d", i, len(v), c.Len)
	}
	// off is relative to the start of the whole row (bitmap + fixed area),
	// matching the row-start-relative VARCHAR cell the spec defines.
	off := b.schema.bitmapBytes + b.schema.fixedSize + len(b.varArea)
	b.varArea = append(b.varArea, []byte(v)...)
	cell := b.cell(i)
	binary.LittleEndian.PutUint16(cell, uint16(off))
	binary.LittleEndian.PutUint16(cell[2:], uint16(len(v)))
	b.markSet(i)
	return nil
}

// SetNull marks column i as null; it requires the column be nullable and
// the schema to carry a null bitmap.
func (b *TupleBuilder) SetNull(i int) error {
	c, err := b.column(i)
	if err != nil {
		return err
	}
	if !c.Nullable {
		return status.InvalidArgumentf("column %d is not nullable", i)
	}
	if !b.schema.HasNullBitmap {
		return status.InvalidArgumentf("schema has no null bitmap")
	}
	b.set[i] = true
	b.null[i] = true
	return nil
}

// Build assembles the final Tuple. It fails InvalidArgument unless every
// column has been set or explicitly nulled.
func (b *TupleBuilder) Build() (*Tuple, error) {
	for i, isSet := range b.set {
		if !isSet {
			return nil, status.InvalidArgumentf("column %d (%s) was never set", i, b.schema.Columns[i].Name)
		}
	}

	buf := make([]byte, b.schema.bitmapBytes+b.schema.fixedSize+len(b.varArea))
	if b.schema.HasNullBitmap {
		for i, isNull := range b.null {
			if isNull {
				buf[i/8] |= 1 << uint(i%8)
			}
		}
	}
	copy(buf[b.schema.bitmapBytes:], b.fixed)
	copy(buf[b.schema.bitmapBytes+b.schema.fixedSize:], b.varArea)

	return &Tuple{schema: b.schema, buf: buf}, nil
}
