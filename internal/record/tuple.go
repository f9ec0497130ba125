package record

import (
	"encoding/binary"
	"math"

	"github.com/huanguang-z/rowstore/status"
)

// Tuple is an immutable byte sequence conformant to a Schema.
type Tuple struct {
	schema *Schema
	buf    []byte
}

// Bytes returns the tuple's serialized on-disk form. The returned slice
// must not be mutated by callers.
func (t *Tuple) Bytes() []byte { return t.buf }

// Deserialize wraps buf (which is not copied) as a Tuple conformant to
// schema.
func Deserialize(schema *Schema, buf []byte) *Tuple {
	return &Tuple{schema: schema, buf: buf}
}

func (t *Tuple) fixedArea() []byte {
	return t.buf[t.schema.bitmapBytes : t.schema.bitmapBytes+t.schema.fixedSize]
}

func (t *Tuple) isNull(i int) bool {
	if !t.schema.HasNullBitmap {
		return false
	}
	b := t.buf[i/8]
	return b&(1<<uint(i%8)) != 0
}

// GetInt32 returns column i's INT32 value.
func (t *Tuple) GetInt32(i int) (int32, error) {
	if err := t.checkType(i, INT32); err != nil {
		return 0, err
	}
	cell := t.fixedArea()[t.schema.fixedOffset[i]:]
	return int32(binary.LittleEndian.Uint32(cell)), nil
}

// GetInt64 returns column i's INT64 value.
func (t *Tuple) GetInt64(i int) (int64, error) {
	if err := t.checkType(i, INT64); err != nil {
		return 0, err
	}
	cell := t.fixedArea()[t.schema.fixedOffset[i]:]
	return int64(binary.LittleEndian.Uint64(cell)), nil
}

// GetFloat returns column i's FLOAT value.
func (t *Tuple) GetFloat(i int) (float32, error) {
	if err := t.checkType(i, FLOAT); err != nil {
		return 0, err
	}
	cell := t.fixedArea()[t.schema.fixedOffset[i]:]
	return math.Float32frombits(binary.LittleEndian.Uint32(cell)), nil
}

// GetDouble returns column i's DOUBLE value.
func (t *Tuple) GetDouble(i int) (float64, error) {
	if err := t.checkType(i, DOUBLE); err != nil {
		return 0, err
	}
	cell := t.fixedArea()[t.schema.fixedOffset[i]:]
	return math.Float64frombits(binary.LittleEndian.Uint64(cell)), nil
}

// GetDate returns column i's DATE value (days since 1970-01-01).
func (t *Tuple) GetDate(i int) (int32, error) {
	if err := t.checkType(i, DATE); err != nil {
		return 0, err
	}
	cell := t.fixedArea()[t.schema.fixedOffset[i]:]
	return int32(binary.LittleEndian.Uint32(cell)), nil
}

// GetChar returns column i's CHAR(N) value with trailing zero bytes
// trimmed.
func (t *Tuple) GetChar(i int) (string, error) {
	if err := t.checkType(i, CHAR); err != nil {
		return "", err
	}
	c := t.schema.Columns[i]
	cell := t.fixedArea()[t.schema.fixedOffset[i] : t.schema.fixedOffset[i]+c.Len]
	end := len(cell)
	for end > 0 && cell[end-1] == 0 {
		end--
	}
	return string(cell[:end]), nil
}

// GetVarchar returns column i's VARCHAR payload.
func (t *Tuple) GetVarchar(i int) (string, error) {
	if err := t.checkType(i, VARCHAR); err != nil {
		return "", err
	}
	cell := t.fixedArea()[t.schema.fixedOffset[i]:]
	off := binary.LittleEndian.Uint16(cell)
	length := binary.LittleEndian.Uint16(cell[2:])
	if int(off)+int(length) > len(t.buf) {
		return "", status.Corruptionf("varchar column %d: off+len (%d) exceeds tuple (%d)", i, int(off)+int(length), len(t.buf))
	}
	return string(t.buf[off : off+length]), nil
}

func (t *Tuple) checkType(i int, want ColumnType) error {
	if i < 0 || i >= len(t.schema.Columns) {
		return status.InvalidArgumentf("column index %d out of range", i)
	}
	if t.schema.Columns[i].Type != want {
		return status.InvalidArgumentf("column %d is %v, not %v", i, t.schema.Columns[i].Type, want)
	}
	if t.isNull(i) {
		return status.NotFoundf("column %d is null", i)
	}
	return nil
}
