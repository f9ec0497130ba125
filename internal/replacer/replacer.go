// Package replacer implements the pluggable buffer-pool eviction policies:
// Clock and LRU-K. Both satisfy the Replacer interface the BufferPool
// depends on, so the pool never hardcodes a single policy.
package replacer

// FrameID identifies a frame within the buffer pool's arena.
type FrameID uint32

// Replacer maintains the set of unpinned (evictable) frames and selects a
// victim among them.
type Replacer interface {
	// Pin removes fid from the candidate set.
	Pin(fid FrameID)
	// Unpin adds fid to the candidate set.
	Unpin(fid FrameID)
	// Victim selects and removes one candidate frame, or reports false if
	// none was selected. An empty candidate set always reports false;
	// Clock also reports false after a sweep that only cleared reference
	// bits, while candidates remain.
	Victim() (FrameID, bool)
	// Size reports the number of candidate frames.
	Size() int
}
