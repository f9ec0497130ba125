// Package record implements the typed Record model: Schema, Tuple, and
// TupleBuilder over a fixed/variable-area binary layout.
//
// Layout: [NullBitmap?][FixedArea][VarArea]. The null bitmap is optional
// (one bit per column, little-endian within byte). The fixed area
// concatenates per-column fixed cells in declaration order; variable
// columns occupy a 4-byte fixed cell (u16 offset_from_row_start, u16
// length) whose payload lives in VarArea, appended in construction
// order.
//
// Grounded on utkarsh5026-StoreMy's catalog/schema (ColumnMetadata,
// NewSchema sorting by position, field-name index), adapted from
// StoreMy's loosely-typed field model to this package's exact fixed-cell
// byte-size table and binary layout.
package record

import (
	"github.com/huanguang-z/rowstore/status"
)

// ColumnType enumerates the fixed-cell and variable-cell types this
// package knows how to lay out.
type ColumnType int

const (
	INT32 ColumnType = iota
	INT64
	FLOAT
	DOUBLE
	DATE // days since 1970-01-01, stored as a 4-byte int32
	CHAR // fixed-width, right-padded with zero bytes
	VARCHAR
)

// FixedCellSize returns the byte size of column type t's fixed-area cell.
// For CHAR(N) this is N; for VARCHAR it is always 4 (the offset+length
// cell — the payload itself lives in VarArea).
func FixedCellSize(t ColumnType, charLen int) int {
	switch t {
	case INT32, FLOAT, DATE:
		return 4
	case INT64, DOUBLE:
		return 8
	case CHAR:
		return charLen
	case VARCHAR:
		return 4
	default:
		return 0
	}
}

// Column describes one schema column.
type Column struct {
	Name     string
	Type     ColumnType
	Len      int // CHAR(N) width, or VARCHAR's maximum payload length bound
	Nullable bool
}

// Schema is an ordered, immutable column list with an optional null
// bitmap.
type Schema struct {
	Columns     []Column
	HasNullBitmap bool

	nameToIndex map[string]int
	fixedOffset []int // byte offset of column i's fixed cell within FixedArea
	fixedSize   int   // total FixedArea size
	bitmapBytes int
}

// NewSchema builds a Schema from columns in the given declaration order
// (unlike StoreMy's position-sorted schema, column order here is the
// caller's declared order, since it directly determines on-disk layout).
func NewSchema(columns []Column, hasNullBitmap bool) (*Schema, error) {
	if len(columns) == 0 {
		return nil, status.InvalidArgumentf("schema must have at least one column")
	}
	nameToIndex := make(map[string]int, len(columns))
	fixedOffset := make([]int, len(columns))
	offset := 0
	for i, c := range columns {
		if _, dup := nameToIndex[c.Name]; dup {
			return nil, status.InvalidArgumentf("duplicate column name %q", c.Name)
		}
		if c.Type == CHAR && c.Len <= 0 {
			return nil, status.InvalidArgumentf("column %q: CHAR requires a positive length", c.Name)
		}
		nameToIndex[c.Name] = i
		fixedOffset[i] = offset
		offset += FixedCellSize(c.Type, c.Len)
	}
	bitmapBytes := 0
	if hasNullBitmap {
		bitmapBytes = (len(columns) + 7) / 8
	}
	return &Schema{
		Columns:       append([]Column(nil), columns...),
		HasNullBitmap: hasNullBitmap,
		nameToIndex:   nameToIndex,
		fixedOffset:   fixedOffset,
		fixedSize:     offset,
		bitmapBytes:   bitmapBytes,
	}, nil
}

// FieldIndex returns the index of the named column, or -1 if absent.
func (s *Schema) FieldIndex(name string) int {
	if idx, ok := s.nameToIndex[name]; ok {
		return idx
	}
	return -1
}

// NumColumns returns the number of columns in declaration order.
func (s *Schema) NumColumns() int { return len(s.Columns) }

func (s *Schema) columnFixedSize(i int) int {
	c := s.Columns[i]
	return FixedCellSize(c.Type, c.Len)
}
