package table

import (
	"github.com/huanguang-z/rowstore/internal/record"
	"github.com/huanguang-z/rowstore/internal/slottedpage"
	"github.com/huanguang-z/rowstore/status"
)

// Iterator is a forward scan over a Heap's (RID, Tuple) pairs. It copies
// each tuple out and does not hold a pin across yields, trading
// concurrency friendliness for copy cost, per the spec's iterator
// contract. end is sticky: once exhausted, Next always reports false.
type Iterator struct {
	h   *Heap
	pid uint32
	slt uint16
	end bool
}

// NewIterator starts a scan of h from page 0, slot 0.
func NewIterator(h *Heap) *Iterator {
	return &Iterator{h: h}
}

// Next advances to the next live record and reports whether one was
// found. On the first call it positions at the first live record, if
// any, without requiring a preceding advance.
func (it *Iterator) Next() (RID, *record.Tuple, bool, error) {
	if it.end {
		return RID{}, nil, false, nil
	}
	for {
		count, err := it.h.PageCount()
		if err != nil {
			return RID{}, nil, false, err
		}
		if it.pid >= count {
			it.end = true
			return RID{}, nil, false, nil
		}

		rid, tuple, found, err := it.scanFromCurrent()
		if err != nil {
			return RID{}, nil, false, err
		}
		if found {
			it.pid = rid.PageID
			it.slt = rid.Slot + 1
			return rid, tuple, true, nil
		}
		// Current page exhausted with no more live slots; move on.
		it.pid++
		it.slt = 0
	}
}

// scanFromCurrent scans page it.pid starting at slot it.slt, returning
// the first live (rid, tuple) found, or found=false if the page is
// exhausted without one.
func (it *Iterator) scanFromCurrent() (RID, *record.Tuple, bool, error) {
	_, buf, err := it.h.pool.Fetch(it.pid)
	if err != nil {
		return RID{}, nil, false, err
	}
	defer it.h.pool.Unpin(it.pid, false)

	header := slottedpage.ReadHeader(buf)
	for slot := it.slt; slot < header.SlotCount; slot++ {
		view, err := slottedpage.Get(buf, int(it.h.pageSize), slot)
		if err != nil {
			if status.Is(err, status.NotFound) {
				continue // tombstone
			}
			return RID{}, nil, false, err
		}
		cp := make([]byte, len(view))
		copy(cp, view)
		rid := RID{PageID: it.pid, Slot: slot}
		return rid, record.Deserialize(it.h.schema, cp), true, nil
	}
	return RID{}, nil, false, nil
}
