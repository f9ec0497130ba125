// Package slottedpage implements the fixed PageHeader prefix and slotted
// record layout shared by every page in the engine: insert, get, update,
// erase, and in-page compaction, without invalidating stable slot ids.
//
// Physical layout: [PageHeader][records grow forward from free_off][slot
// directory grows backward from page end]. A slot is (off uint16, len
// uint16); directory entry i lives at pageSize-(i+1)*slotSize; len==0
// denotes a tombstone.
//
// Grounded on storage_engine/access/heapfile_manager/heap_page.go's
// record layout, generalized to the header field set below and given a
// real Compact (the source tombstones but never reclaims space).
package slottedpage

import (
	"encoding/binary"

	"github.com/huanguang-z/rowstore/status"
)

const (
	// HeaderSize is the fixed byte length of PageHeader.
	HeaderSize = 28

	// SlotSize is the byte size of one (off, len) directory entry.
	SlotSize = 4

	// FormatVersion is the only recognized on-page format version.
	FormatVersion uint32 = 1

	offPageID        = 0  // u32
	offPageLSN       = 4  // u64
	offSlotCount     = 12 // u16
	offFreeOff       = 14 // u16
	offFreeSize      = 16 // u16
	offChecksum      = 18 // u32, reserved
	offFormatVersion = 22 // u32
	// offHeaderEnd = 26; two pad bytes after format_version round
	// HeaderSize up to 28, a multiple of 4.
)

// Header is an in-memory view of the fixed page prefix.
type Header struct {
	PageID        uint32
	PageLSN       uint64
	SlotCount     uint16
	FreeOff       uint16
	FreeSize      uint16
	Checksum      uint32
	FormatVersion uint32
}

func readHeader(buf []byte) Header {
	return Header{
		PageID:        binary.LittleEndian.Uint32(buf[offPageID:]),
		PageLSN:       binary.LittleEndian.Uint64(buf[offPageLSN:]),
		SlotCount:     binary.LittleEndian.Uint16(buf[offSlotCount:]),
		FreeOff:       binary.LittleEndian.Uint16(buf[offFreeOff:]),
		FreeSize:      binary.LittleEndian.Uint16(buf[offFreeSize:]),
		Checksum:      binary.LittleEndian.Uint32(buf[offChecksum:]),
		FormatVersion: binary.LittleEndian.Uint32(buf[offFormatVersion:]),
	}
}

func writeHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[offPageID:], h.PageID)
	binary.LittleEndian.PutUint64(buf[offPageLSN:], h.PageLSN)
	binary.LittleEndian.PutUint16(buf[offSlotCount:], h.SlotCount)
	binary.LittleEndian.PutUint16(buf[offFreeOff:], h.FreeOff)
	binary.LittleEndian.PutUint16(buf[offFreeSize:], h.FreeSize)
	binary.LittleEndian.PutUint32(buf[offChecksum:], h.Checksum)
	binary.LittleEndian.PutUint32(buf[offFormatVersion:], h.FormatVersion)
}

// ReadHeader exposes the page header of buf without mutating it; used by
// SegmentManager.ProbePageFree and FSM rebuild.
func ReadHeader(buf []byte) Header { return readHeader(buf) }

func slotOffset(pageSize int, slot uint16) int {
	return pageSize - (int(slot)+1)*SlotSize
}

func readSlot(buf []byte, pageSize int, slot uint16) (off, length uint16) {
	o := slotOffset(pageSize, slot)
	return binary.LittleEndian.Uint16(buf[o:]), binary.LittleEndian.Uint16(buf[o+2:])
}

func writeSlot(buf []byte, pageSize int, slot uint16, off, length uint16) {
	o := slotOffset(pageSize, slot)
	binary.LittleEndian.PutUint16(buf[o:], off)
	binary.LittleEndian.PutUint16(buf[o+2:], length)
}

// InitNew zeroes buf and stamps a fresh PageHeader for pid.
func InitNew(buf []byte, pid uint32, pageSize int) error {
	if len(buf) != pageSize {
		return status.InvalidArgumentf("buffer length %d does not match page size %d", len(buf), pageSize)
	}
	for i := range buf {
		buf[i] = 0
	}
	writeHeader(buf, Header{
		PageID:        pid,
		FreeOff:       HeaderSize,
		FreeSize:      uint16(pageSize - HeaderSize),
		FormatVersion: FormatVersion,
	})
	return nil
}

// SetPageLSN stamps the page's LSN field, used by callers that manage
// their own LSN assignment outside this package's write paths.
func SetPageLSN(buf []byte, lsn uint64) {
	binary.LittleEndian.PutUint64(buf[offPageLSN:], lsn)
}

// Insert reuses the lowest-indexed tombstone if one exists, otherwise
// grows the slot directory by one entry. Compacts once if the page does
// not currently have room, then fails OutOfRange if still insufficient.
// Zero-length records are rejected.
func Insert(buf []byte, pageSize int, rec []byte) (slot uint16, err error) {
	if len(rec) == 0 {
		return 0, status.InvalidArgumentf("record must not be empty")
	}
	recLen := uint16(len(rec))

	if !fits(buf, pageSize, recLen) {
		Compact(buf, pageSize)
		if !fits(buf, pageSize, recLen) {
			return 0, status.OutOfRangef("page has no room for a %d-byte record", recLen)
		}
	}

	h := readHeader(buf)
	target, isNewSlot := findTombstone(buf, pageSize, h.SlotCount)

	copy(buf[h.FreeOff:], rec)
	writeSlot(buf, pageSize, target, h.FreeOff, recLen)

	h.FreeOff += recLen
	h.FreeSize -= recLen
	if isNewSlot {
		h.FreeSize -= SlotSize
		h.SlotCount++
	}
	writeHeader(buf, h)
	return target, nil
}

// fits reports whether rec of recLen bytes can be inserted without first
// compacting: it accounts for the extra slot-directory bytes only when no
// tombstone is available to reuse.
func fits(buf []byte, pageSize int, recLen uint16) bool {
	h := readHeader(buf)
	_, isNewSlot := findTombstone(buf, pageSize, h.SlotCount)
	need := recLen
	if isNewSlot {
		need += SlotSize
	}
	return h.FreeSize >= need
}

func findTombstone(buf []byte, pageSize int, slotCount uint16) (slot uint16, isNewSlot bool) {
	for i := uint16(0); i < slotCount; i++ {
		if _, l := readSlot(buf, pageSize, i); l == 0 {
			return i, false
		}
	}
	return slotCount, true
}

// Get bounds-checks slot, rejects tombstones, and returns a view into buf.
func Get(buf []byte, pageSize int, slot uint16) ([]byte, error) {
	h := readHeader(buf)
	if slot >= h.SlotCount {
		return nil, status.NotFoundf("slot %d out of range (count=%d)", slot, h.SlotCount)
	}
	off, length := readSlot(buf, pageSize, slot)
	if length == 0 {
		return nil, status.NotFoundf("slot %d is a tombstone", slot)
	}
	if int(off) < HeaderSize || int(off)+int(length) > pageSize {
		return nil, status.Corruptionf("slot %d has invalid range off=%d len=%d", slot, off, length)
	}
	return buf[off : off+length], nil
}

// Update overwrites in place when rec fits the existing allocation,
// otherwise appends a new copy (leaking the old region into internal
// fragmentation) if there is room, compacting once if there is not.
// Fails OutOfRange if the record still does not fit after compaction, so
// the caller can relocate it to a different page.
func Update(buf []byte, pageSize int, slot uint16, rec []byte) error {
	h := readHeader(buf)
	if slot >= h.SlotCount {
		return status.NotFoundf("slot %d out of range (count=%d)", slot, h.SlotCount)
	}
	off, oldLen := readSlot(buf, pageSize, slot)
	if oldLen == 0 {
		return status.NotFoundf("slot %d is a tombstone", slot)
	}
	newLen := uint16(len(rec))
	if newLen == 0 {
		return status.InvalidArgumentf("record must not be empty")
	}

	if newLen <= oldLen {
		copy(buf[off:], rec)
		writeSlot(buf, pageSize, slot, off, newLen)
		return nil
	}

	if h.FreeSize < newLen {
		Compact(buf, pageSize)
		h = readHeader(buf)
		if h.FreeSize < newLen {
			return status.OutOfRangef("page has no room to grow slot %d to %d bytes", slot, newLen)
		}
	}

	copy(buf[h.FreeOff:], rec)
	writeSlot(buf, pageSize, slot, h.FreeOff, newLen)
	h.FreeOff += newLen
	h.FreeSize -= newLen
	writeHeader(buf, h)
	return nil
}

// Erase marks slot as a tombstone (len=0); its payload bytes are only
// reclaimed by a subsequent Compact.
func Erase(buf []byte, pageSize int, slot uint16) error {
	h := readHeader(buf)
	if slot >= h.SlotCount {
		return status.NotFoundf("slot %d out of range (count=%d)", slot, h.SlotCount)
	}
	off, length := readSlot(buf, pageSize, slot)
	if length == 0 {
		return status.NotFoundf("slot %d already erased", slot)
	}
	_ = off
	writeSlot(buf, pageSize, slot, 0, 0)
	return nil
}

type liveRecord struct {
	slot   uint16
	offset uint16
	length uint16
}

// Compact repacks live payloads into ascending offset order starting just
// after the header, updates each slot's offset in place (preserving slot
// ids so RIDs remain valid across compaction), and recomputes free_off
// and free_size.
func Compact(buf []byte, pageSize int) {
	h := readHeader(buf)

	live := make([]liveRecord, 0, h.SlotCount)
	for i := uint16(0); i < h.SlotCount; i++ {
		off, length := readSlot(buf, pageSize, i)
		if length == 0 {
			continue
		}
		live = append(live, liveRecord{slot: i, offset: off, length: length})
	}
	// Stable ascending-offset order, matching on-disk layout today.
	for i := 1; i < len(live); i++ {
		for j := i; j > 0 && live[j-1].offset > live[j].offset; j-- {
			live[j-1], live[j] = live[j], live[j-1]
		}
	}

	cursor := uint16(HeaderSize)
	for _, rec := range live {
		if rec.offset != cursor {
			copy(buf[cursor:cursor+rec.length], buf[rec.offset:rec.offset+rec.length])
		}
		writeSlot(buf, pageSize, rec.slot, cursor, rec.length)
		cursor += rec.length
	}

	h.FreeOff = cursor
	h.FreeSize = uint16(pageSize) - cursor - h.SlotCount*SlotSize
	writeHeader(buf, h)
}
