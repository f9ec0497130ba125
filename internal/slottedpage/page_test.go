package slottedpage

import (
	"bytes"
	"testing"

	"github.com/huanguang-z/rowstore/status"
)

const testPageSize = 4096

func newPage(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, testPageSize)
	if err := InitNew(buf, 7, testPageSize); err != nil {
		t.Fatalf("init: %v", err)
	}
	return buf
}

func TestInitNewHeaderInvariant(t *testing.T) {
	buf := newPage(t)
	h := ReadHeader(buf)
	if h.PageID != 7 {
		t.Fatalf("expected page id 7, got %d", h.PageID)
	}
	if h.FreeOff != HeaderSize || h.FreeSize != uint16(testPageSize-HeaderSize) {
		t.Fatalf("unexpected free region: off=%d size=%d", h.FreeOff, h.FreeSize)
	}
	assertInvariant(t, buf)
}

func assertInvariant(t *testing.T, buf []byte) {
	t.Helper()
	h := ReadHeader(buf)
	sum := uint32(h.FreeOff) + uint32(h.FreeSize) + uint32(h.SlotCount)*SlotSize
	if sum != uint32(testPageSize) {
		t.Fatalf("invariant broken: free_off(%d)+free_size(%d)+slot_count(%d)*4 = %d, want %d",
			h.FreeOff, h.FreeSize, h.SlotCount, sum, testPageSize)
	}
}

func TestScenario1SingleInsertRead(t *testing.T) {
	buf := newPage(t)
	tuple := []byte{42, 0, 0, 0} // encodes i=42 as a 4-byte int, arbitrary payload here
	slot, err := Insert(buf, testPageSize, tuple)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if slot != 0 {
		t.Fatalf("expected slot 0, got %d", slot)
	}
	got, err := Get(buf, testPageSize, slot)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, tuple) {
		t.Fatalf("round trip mismatch: got %v want %v", got, tuple)
	}
	h := ReadHeader(buf)
	wantFree := uint16(testPageSize) - HeaderSize - uint16(len(tuple)) - SlotSize
	if h.FreeSize != wantFree {
		t.Fatalf("expected free_size %d, got %d", wantFree, h.FreeSize)
	}
	assertInvariant(t, buf)
}

func TestScenario2TombstoneAndCompaction(t *testing.T) {
	buf := newPage(t)
	rec := bytes.Repeat([]byte{0xCD}, 300)
	var slots []uint16
	for i := 0; i < 10; i++ {
		slot, err := Insert(buf, testPageSize, rec)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		slots = append(slots, slot)
	}

	for _, s := range []uint16{1, 3, 5, 7} {
		if err := Erase(buf, testPageSize, slots[s]); err != nil {
			t.Fatalf("erase slot %d: %v", s, err)
		}
	}

	big := bytes.Repeat([]byte{0xEF}, 1100)
	slot, err := Insert(buf, testPageSize, big)
	if err != nil {
		t.Fatalf("insert big record: %v", err)
	}
	if slot != slots[1] {
		t.Fatalf("expected reuse of lowest tombstoned slot %d, got %d", slots[1], slot)
	}

	got, err := Get(buf, testPageSize, slot)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1100 {
		t.Fatalf("expected 1100-byte record, got %d", len(got))
	}

	for _, s := range []uint16{0, 2, 4, 6, 8, 9} {
		v, err := Get(buf, testPageSize, slots[s])
		if err != nil {
			t.Fatalf("get surviving slot %d: %v", s, err)
		}
		if !bytes.Equal(v, rec) {
			t.Fatalf("surviving slot %d corrupted after compaction", s)
		}
	}
	assertInvariant(t, buf)
}

func TestUpdateInPlaceShrink(t *testing.T) {
	buf := newPage(t)
	slot, err := Insert(buf, testPageSize, []byte("hello world"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := Update(buf, testPageSize, slot, []byte("hi")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := Get(buf, testPageSize, slot)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("expected 'hi', got %q", got)
	}
	assertInvariant(t, buf)
}

func TestUpdateOverflowReturnsOutOfRange(t *testing.T) {
	buf := newPage(t)
	slot, err := Insert(buf, testPageSize, []byte("small"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Fill remaining space so the update cannot fit even after compaction.
	filler := make([]byte, testPageSize)
	for {
		_, err := Insert(buf, testPageSize, bytes.Repeat([]byte{1}, 500))
		if err != nil {
			break
		}
	}
	_ = filler
	err = Update(buf, testPageSize, slot, bytes.Repeat([]byte{2}, 4000))
	if !status.Is(err, status.OutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

func TestGetTombstoneIsNotFound(t *testing.T) {
	buf := newPage(t)
	slot, err := Insert(buf, testPageSize, []byte("x"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := Erase(buf, testPageSize, slot); err != nil {
		t.Fatalf("erase: %v", err)
	}
	_, err = Get(buf, testPageSize, slot)
	if !status.Is(err, status.NotFound) {
		t.Fatalf("expected NotFound for tombstoned slot, got %v", err)
	}
}

func TestInsertZeroLengthRejected(t *testing.T) {
	buf := newPage(t)
	_, err := Insert(buf, testPageSize, nil)
	if !status.Is(err, status.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestCompactionPreservesSlotIDs(t *testing.T) {
	buf := newPage(t)
	recs := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}
	var slots []uint16
	for _, r := range recs {
		s, err := Insert(buf, testPageSize, r)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		slots = append(slots, s)
	}
	if err := Erase(buf, testPageSize, slots[1]); err != nil {
		t.Fatalf("erase: %v", err)
	}
	Compact(buf, testPageSize)
	got0, err := Get(buf, testPageSize, slots[0])
	if err != nil || !bytes.Equal(got0, recs[0]) {
		t.Fatalf("slot 0 not preserved: %v %v", got0, err)
	}
	got2, err := Get(buf, testPageSize, slots[2])
	if err != nil || !bytes.Equal(got2, recs[2]) {
		t.Fatalf("slot 2 not preserved: %v %v", got2, err)
	}
	assertInvariant(t, buf)
}
