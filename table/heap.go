// Package table composes BufferPool, FreeSpaceManager, and SegmentManager
// into TableHeap: Insert/Update/Erase/Get over variable-length records,
// plus a forward TableIterator.
//
// Grounded on heapfile_manager/{row_ops_external.go,row_ops_internal.go}'s
// external-locked/internal-lock-free split and updateRow's
// tombstone-and-reinsert-on-overflow producing a new RowPointer — the
// direct precedent for Update's possibly-new RID, here returned through
// an explicit second value instead of mutating the caller's pointer.
package table

import (
	"fmt"

	"github.com/huanguang-z/rowstore/internal/bufferpool"
	"github.com/huanguang-z/rowstore/internal/fsm"
	"github.com/huanguang-z/rowstore/internal/record"
	"github.com/huanguang-z/rowstore/internal/segment"
	"github.com/huanguang-z/rowstore/internal/slottedpage"
	"github.com/huanguang-z/rowstore/status"
	"go.uber.org/zap"
)

// RID is the stable (page_id, slot) record identifier, valid until erase
// or an overflow update relocates the record.
type RID struct {
	PageID uint32
	Slot   uint16
}

func (r RID) String() string { return fmt.Sprintf("(%d,%d)", r.PageID, r.Slot) }

// Heap is a TableHeap scoped to one segment, borrowing a BufferPool, a
// FreeSpaceManager, and a SegmentManager that an Engine wires together.
type Heap struct {
	segID    uint32
	pageSize uint32
	schema   *record.Schema

	pool   *bufferpool.Pool
	fsmMgr *fsm.Manager
	segMgr *segment.Manager
	log    *zap.SugaredLogger
}

// New constructs a Heap over segID using the given collaborators. schema
// is used only by Get and Iterator to deserialize stored bytes back into
// a Tuple.
func New(segID uint32, pageSize uint32, schema *record.Schema, pool *bufferpool.Pool, fsmMgr *fsm.Manager, segMgr *segment.Manager, log *zap.SugaredLogger) *Heap {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Heap{segID: segID, pageSize: pageSize, schema: schema, pool: pool, fsmMgr: fsmMgr, segMgr: segMgr, log: log}
}

// allocateNewPage asks SegmentManager for a fresh page, initializes it,
// and reports its free size to the FSM. The page is left unpinned.
func (h *Heap) allocateNewPage() (uint32, error) {
	pid, err := h.segMgr.AllocatePage(h.segID)
	if err != nil {
		return 0, err
	}
	if pid == segment.InvalidPageID {
		return 0, status.IOErrorf(nil, "segment %d: allocate page failed", h.segID)
	}

	_, buf, err := h.pool.Fetch(pid)
	if err != nil {
		return 0, err
	}
	if err := slottedpage.InitNew(buf, pid, int(h.pageSize)); err != nil {
		_ = h.pool.Unpin(pid, false)
		return 0, err
	}
	if err := h.pool.Unpin(pid, true); err != nil {
		return 0, err
	}

	// Re-fetch to read the freshly initialized free size into the FSM,
	// matching the spec's allocate -> init -> unpin dirty -> re-fetch ->
	// report -> unpin clean sequence.
	_, buf, err = h.pool.Fetch(pid)
	if err != nil {
		return 0, err
	}
	free := slottedpage.ReadHeader(buf).FreeSize
	if err := h.pool.Unpin(pid, false); err != nil {
		return 0, err
	}
	h.fsmMgr.Update(pid, free)
	h.log.Debugw("table allocated page", "segID", h.segID, "pageID", pid, "free", free)
	return pid, nil
}

// Insert asks the FSM for a page with enough free bytes for tuple, or
// allocates a fresh one; it retries once on an insert failure (a stale
// FSM hint or a race) before propagating the error.
func (h *Heap) Insert(tuple *record.Tuple) (RID, error) {
	rec := tuple.Bytes()
	return h.insertAttempt(rec, true)
}

func (h *Heap) insertAttempt(rec []byte, allowRetry bool) (RID, error) {
	need := uint16(len(rec))
	pid, ok := h.fsmMgr.Find(need)
	if !ok {
		var err error
		pid, err = h.allocateNewPage()
		if err != nil {
			return RID{}, err
		}
	}

	_, buf, err := h.pool.Fetch(pid)
	if err != nil {
		return RID{}, err
	}

	slot, err := slottedpage.Insert(buf, int(h.pageSize), rec)
	if err != nil {
		// Insert may have compacted the page before failing; re-sync the
		// FSM with whatever free size it ended up with instead of
		// discarding that space from the index.
		free := slottedpage.ReadHeader(buf).FreeSize
		if unpinErr := h.pool.Unpin(pid, false); unpinErr != nil {
			return RID{}, unpinErr
		}
		h.fsmMgr.Update(pid, free)
		if !allowRetry {
			return RID{}, err
		}
		newPid, allocErr := h.allocateNewPage()
		if allocErr != nil {
			return RID{}, allocErr
		}
		_, buf, err = h.pool.Fetch(newPid)
		if err != nil {
			return RID{}, err
		}
		slot, err = slottedpage.Insert(buf, int(h.pageSize), rec)
		if err != nil {
			_ = h.pool.Unpin(newPid, false)
			return RID{}, err
		}
		pid = newPid
	}

	free := slottedpage.ReadHeader(buf).FreeSize
	if err := h.pool.Unpin(pid, true); err != nil {
		return RID{}, err
	}
	h.fsmMgr.Update(pid, free)
	return RID{PageID: pid, Slot: slot}, nil
}

// Get fetches rid's page, reads the slot, and deserializes the stored
// bytes into a Tuple value copy conformant to the heap's schema.
func (h *Heap) Get(rid RID) (*record.Tuple, error) {
	_, buf, err := h.pool.Fetch(rid.PageID)
	if err != nil {
		return nil, err
	}
	defer h.pool.Unpin(rid.PageID, false)

	view, err := slottedpage.Get(buf, int(h.pageSize), rid.Slot)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(view))
	copy(cp, view)
	return record.Deserialize(h.schema, cp), nil
}

// Update attempts an in-place overwrite of rid's record. If the new
// tuple does not fit (OutOfRange from the slotted page), it inserts the
// new version elsewhere and tombstones the original, returning the new
// RID as newRID with relocated set to true rather than mutating rid's
// identity silently, resolving the spec's open question on observable
// RID change.
func (h *Heap) Update(rid RID, tuple *record.Tuple) (newRID RID, relocated bool, err error) {
	rec := tuple.Bytes()

	_, buf, ferr := h.pool.Fetch(rid.PageID)
	if ferr != nil {
		return RID{}, false, ferr
	}

	uerr := slottedpage.Update(buf, int(h.pageSize), rid.Slot, rec)
	if uerr == nil {
		free := slottedpage.ReadHeader(buf).FreeSize
		if err := h.pool.Unpin(rid.PageID, true); err != nil {
			return RID{}, false, err
		}
		h.fsmMgr.Update(rid.PageID, free)
		return rid, false, nil
	}
	if !status.Is(uerr, status.OutOfRange) {
		_ = h.pool.Unpin(rid.PageID, false)
		return RID{}, false, uerr
	}

	// Overflow: release the page clean, but first re-sync the FSM with
	// whatever free size Update's internal compaction left behind, then
	// insert the new version as a fresh record, then re-fetch the
	// original page to tombstone the stale slot and refresh the FSM
	// again post-erase.
	free := slottedpage.ReadHeader(buf).FreeSize
	if err := h.pool.Unpin(rid.PageID, false); err != nil {
		return RID{}, false, err
	}
	h.fsmMgr.Update(rid.PageID, free)

	newRID, err = h.Insert(tuple)
	if err != nil {
		return RID{}, false, err
	}

	_, buf, ferr = h.pool.Fetch(rid.PageID)
	if ferr != nil {
		return RID{}, false, ferr
	}
	if err := slottedpage.Erase(buf, int(h.pageSize), rid.Slot); err != nil {
		_ = h.pool.Unpin(rid.PageID, false)
		return RID{}, false, err
	}
	free = slottedpage.ReadHeader(buf).FreeSize
	if err := h.pool.Unpin(rid.PageID, true); err != nil {
		return RID{}, false, err
	}
	h.fsmMgr.Update(rid.PageID, free)
	h.log.Debugw("table update relocated", "oldRID", rid, "newRID", newRID)
	return newRID, true, nil
}

// Erase tombstones rid's slot and refreshes the FSM's recorded free size.
func (h *Heap) Erase(rid RID) error {
	_, buf, err := h.pool.Fetch(rid.PageID)
	if err != nil {
		return err
	}
	if err := slottedpage.Erase(buf, int(h.pageSize), rid.Slot); err != nil {
		_ = h.pool.Unpin(rid.PageID, false)
		return err
	}
	free := slottedpage.ReadHeader(buf).FreeSize
	if err := h.pool.Unpin(rid.PageID, true); err != nil {
		return err
	}
	h.fsmMgr.Update(rid.PageID, free)
	return nil
}

// SegmentID reports the segment this heap is scoped to, for callers that
// construct a TableIterator directly.
func (h *Heap) SegmentID() uint32 { return h.segID }

// PageCount reports the current page count of the heap's segment.
func (h *Heap) PageCount() (uint32, error) {
	return h.segMgr.PageCount(h.segID)
}
