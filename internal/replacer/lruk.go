package replacer

import "sync"

// DefaultK is the spec's default K for LRU-K, with a floor of 2.
const DefaultK = 2

type lrukEntry struct {
	present bool
	t1      uint64 // newest access timestamp
	t2      uint64 // second-newest access timestamp, 0 if fewer than K accesses
}

// LRUK implements the LRU-K replacement policy: per-frame it tracks the
// newest and second-newest access timestamps and evicts the present frame
// with the smallest t2 (falling back to t1 when t2 is still zero), ties
// broken by lowest frame id.
type LRUK struct {
	mu      sync.Mutex
	k       int
	entries []lrukEntry
	clock   uint64       // fallback monotonic counter, used when now is nil
	now     func() uint64 // timestamp source; overridable for deterministic tests
}

// NewLRUK constructs an LRU-K replacer over capacity frames with the given
// k (floored to 2). A nil now uses an internal incrementing counter.
func NewLRUK(capacity int, k int, now func() uint64) *LRUK {
	if k < 2 {
		k = DefaultK
	}
	r := &LRUK{k: k, entries: make([]lrukEntry, capacity)}
	if now != nil {
		r.now = now
	} else {
		r.now = r.tick
	}
	return r
}

func (r *LRUK) tick() uint64 {
	r.clock++
	return r.clock
}

func (r *LRUK) Pin(fid FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[fid].present = false
}

// Unpin marks fid present and records a new access, shifting t1 into t2.
func (r *LRUK) Unpin(fid FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &r.entries[fid]
	e.present = true
	e.t2 = e.t1
	e.t1 = r.now()
}

// Victim returns the present frame with the smallest t2 (t1 as fallback
// while t2 is still zero), ties broken by lowest frame id.
func (r *LRUK) Victim() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bestIdx := -1
	var bestKey uint64
	for i, e := range r.entries {
		if !e.present {
			continue
		}
		key := e.t2
		if key == 0 {
			key = e.t1
		}
		if bestIdx == -1 || key < bestKey {
			bestIdx = i
			bestKey = key
		}
	}
	if bestIdx == -1 {
		return 0, false
	}
	r.entries[bestIdx].present = false
	return FrameID(bestIdx), true
}

func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.present {
			n++
		}
	}
	return n
}
