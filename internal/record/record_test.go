package record

import (
	"testing"

	"github.com/huanguang-z/rowstore/status"
)

func simpleSchema(t *testing.T, hasNullBitmap bool) *Schema {
	t.Helper()
	s, err := NewSchema([]Column{
		{Name: "id", Type: INT32},
		{Name: "score", Type: DOUBLE},
		{Name: "tag", Type: CHAR, Len: 8, Nullable: hasNullBitmap},
		{Name: "name", Type: VARCHAR, Len: 64},
	}, hasNullBitmap)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}

func TestBuildThenGetRoundTrip(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	must(b.SetInt32(0, 42))
	must(b.SetDouble(1, 3.5))
	must(b.SetChar(2, "hi"))
	must(b.SetVarchar(3, "hello world"))

	tup, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	i, err := tup.GetInt32(0)
	if err != nil || i != 42 {
		t.Fatalf("GetInt32: %v %v", i, err)
	}
	d, err := tup.GetDouble(1)
	if err != nil || d != 3.5 {
		t.Fatalf("GetDouble: %v %v", d, err)
	}
	c, err := tup.GetChar(2)
	if err != nil || c != "hi" {
		t.Fatalf("GetChar: %q %v", c, err)
	}
	v, err := tup.GetVarchar(3)
	if err != nil || v != "hello world" {
		t.Fatalf("GetVarchar: %q %v", v, err)
	}
}

func TestDeserializeRoundTrip(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	_ = b.SetInt32(0, 7)
	_ = b.SetDouble(1, 1.25)
	_ = b.SetChar(2, "x")
	_ = b.SetVarchar(3, "abc")
	tup, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	restored := Deserialize(s, tup.Bytes())
	i, err := restored.GetInt32(0)
	if err != nil || i != 7 {
		t.Fatalf("GetInt32 after deserialize: %v %v", i, err)
	}
}

func TestCharTruncatesOversizeInput(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	_ = b.SetInt32(0, 1)
	_ = b.SetDouble(1, 1)
	must := b.SetChar(2, "this is way too long")
	if must != nil {
		t.Fatalf("SetChar should silently truncate, got error: %v", must)
	}
	_ = b.SetVarchar(3, "ok")
	tup, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c, err := tup.GetChar(2)
	if err != nil {
		t.Fatalf("GetChar: %v", err)
	}
	if len(c) != 8 {
		t.Fatalf("expected truncation to 8 bytes, got %q (%d)", c, len(c))
	}
}

func TestVarcharOverLengthBoundRejected(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	err := b.SetVarchar(3, string(make([]byte, 100)))
	if !status.Is(err, status.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestBuildFailsWhenColumnUnset(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	_ = b.SetInt32(0, 1)
	_, err := b.Build()
	if !status.Is(err, status.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for unset column, got %v", err)
	}
}

func TestNullColumnRoundTrip(t *testing.T) {
	s := simpleSchema(t, true)
	b := NewTupleBuilder(s)
	_ = b.SetInt32(0, 1)
	_ = b.SetDouble(1, 1)
	if err := b.SetNull(2); err != nil {
		t.Fatalf("set null: %v", err)
	}
	_ = b.SetVarchar(3, "x")
	tup, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = tup.GetChar(2)
	if !status.Is(err, status.NotFound) {
		t.Fatalf("expected NotFound for null column, got %v", err)
	}
}

func TestSetNullRequiresNullableAndBitmap(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	err := b.SetNull(2)
	if !status.Is(err, status.InvalidArgument) {
		t.Fatalf("expected InvalidArgument without a null bitmap, got %v", err)
	}
}

func TestTypeMismatchRejected(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	err := b.SetInt32(1, 5) // column 1 is DOUBLE
	if !status.Is(err, status.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for type mismatch, got %v", err)
	}
}

func TestVarcharCorruptionOnBadLength(t *testing.T) {
	s := simpleSchema(t, false)
	b := NewTupleBuilder(s)
	_ = b.SetInt32(0, 1)
	_ = b.SetDouble(1, 1)
	_ = b.SetChar(2, "x")
	_ = b.SetVarchar(3, "ok")
	tup, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Corrupt the varchar cell's length field to exceed the var area.
	buf := tup.Bytes()
	cellOff := s.fixedOffset[3]
	fixedStart := s.bitmapBytes
	buf[fixedStart+cellOff+2] = 0xFF
	buf[fixedStart+cellOff+3] = 0xFF

	_, err = tup.GetVarchar(3)
	if !status.Is(err, status.Corruption) {
		t.Fatalf("expected Corruption, got %v", err)
	}
}
