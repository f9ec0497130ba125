// Package config holds the advisory defaults and validated options used to
// construct an Engine and its subsystems.
package config

import "github.com/huanguang-z/rowstore/status"

const (
	DefaultPageSize         = 8192
	MinPageSize             = 1024
	DefaultBufferPoolFrames = 256
	DefaultReplacer         = "clock"
	DefaultLRUK             = 2
)

// DefaultFSMBins mirrors the spec's default bucket thresholds.
func DefaultFSMBins() []uint32 {
	return []uint32{128, 512, 1024, 2048, 4096, 8192}
}

// StorageOptions are the advisory defaults for embedders of the engine.
type StorageOptions struct {
	PageSize         uint32
	BufferPoolFrames int
	Replacer         string // "clock" or "lruk:<k>"
	FSMBins          []uint32
	IODirect         bool // reserved, unimplemented
	EnableChecksum   bool // reserved, unimplemented
}

// DefaultStorageOptions returns the spec's documented defaults.
func DefaultStorageOptions() StorageOptions {
	return StorageOptions{
		PageSize:         DefaultPageSize,
		BufferPoolFrames: DefaultBufferPoolFrames,
		Replacer:         DefaultReplacer,
		FSMBins:          DefaultFSMBins(),
	}
}

// Validate rejects zero frames, empty bins, or a page size below the floor.
func (o StorageOptions) Validate() error {
	if o.PageSize < MinPageSize {
		return status.InvalidArgumentf("page size %d below floor %d", o.PageSize, MinPageSize)
	}
	if o.BufferPoolFrames <= 0 {
		return status.InvalidArgumentf("buffer pool frames must be nonzero, got %d", o.BufferPoolFrames)
	}
	if len(o.FSMBins) == 0 {
		return status.InvalidArgumentf("fsm bins must be nonempty")
	}
	return nil
}
