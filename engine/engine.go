// Package engine wires BufferPool, SegmentManager, and FreeSpaceManager
// together per StorageOptions and hands out table.Heap values scoped to
// a segment id — the component a CLI loader or a write-ahead log (both
// out-of-scope collaborators) would sit on top of.
//
// Grounded on heapfile_manager/heapfile_manager.go's NewHeapFileManager /
// CreateHeapfile construction chain, generalized from DaemonDB's
// hardcoded heap-file format into this module's Engine/OpenTable surface.
package engine

import (
	"sync"

	"github.com/huanguang-z/rowstore/config"
	"github.com/huanguang-z/rowstore/internal/bufferpool"
	"github.com/huanguang-z/rowstore/internal/fsm"
	"github.com/huanguang-z/rowstore/internal/record"
	"github.com/huanguang-z/rowstore/internal/replacer"
	"github.com/huanguang-z/rowstore/internal/segment"
	"github.com/huanguang-z/rowstore/metrics"
	"github.com/huanguang-z/rowstore/status"
	"github.com/huanguang-z/rowstore/table"
	"go.uber.org/zap"
)

// perSegment bundles the collaborators a single segment's table.Heap
// needs: its own BufferPool (one BufferPool per DiskManager, per the
// spec's deployment note) and its own FreeSpaceManager.
type perSegment struct {
	pool *bufferpool.Pool
	fsm  *fsm.Manager
}

// Engine owns one SegmentManager plus a lazily constructed BufferPool
// and FreeSpaceManager per segment, built from a single StorageOptions.
type Engine struct {
	mu       sync.Mutex
	opts     config.StorageOptions
	segMgr   *segment.Manager
	segments map[uint32]*perSegment
	reg      metrics.Registry
	log      *zap.SugaredLogger
}

// Open validates opts and constructs an Engine rooted at baseDir (which
// must already exist). reg and log may be nil (no metrics / no logging).
func Open(baseDir string, opts config.StorageOptions, reg metrics.Registry, log *zap.SugaredLogger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = metrics.Noop
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		opts:     opts,
		segMgr:   segment.New(baseDir, opts.PageSize),
		segments: make(map[uint32]*perSegment),
		reg:      reg,
		log:      log,
	}, nil
}

// OpenTable ensures segID's backing file exists, lazily builds its
// BufferPool and FreeSpaceManager (rebuilding the FSM from whatever pages
// already exist on disk), and returns a table.Heap scoped to it.
func (e *Engine) OpenTable(segID uint32, schema *record.Schema) (*table.Heap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.segMgr.EnsureSegment(segID); err != nil {
		return nil, err
	}

	seg, ok := e.segments[segID]
	if !ok {
		disk, err := e.segMgr.DiskManager(segID)
		if err != nil {
			return nil, err
		}
		rep := replacer.New(e.opts.Replacer, e.opts.BufferPoolFrames, e.log)
		pool := bufferpool.New(e.opts.BufferPoolFrames, e.opts.PageSize, disk, rep, e.reg, e.log)
		fsmMgr := fsm.New(e.opts.FSMBins, e.reg)
		fsmMgr.RegisterProbe(
			func(pid uint32) (uint16, error) { return e.segMgr.ProbePageFree(segID, pid) },
			func() (uint32, error) { return e.segMgr.PageCount(segID) },
		)
		if err := fsmMgr.RebuildFromSegment(); err != nil {
			return nil, err
		}
		seg = &perSegment{pool: pool, fsm: fsmMgr}
		e.segments[segID] = seg
	}

	return table.New(segID, e.opts.PageSize, schema, seg.pool, seg.fsm, e.segMgr, e.log), nil
}

// RegisterFlushHook installs segID's pre-flush hook, invoked with
// (page_id, page_lsn) immediately before each of its pages is written —
// the integration point a write-ahead log implementation would use.
func (e *Engine) RegisterFlushHook(segID uint32, hook bufferpool.FlushHook) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	seg, ok := e.segments[segID]
	if !ok {
		return status.InvalidArgumentf("segment %d not opened; call OpenTable first", segID)
	}
	seg.pool.RegisterFlushHook(hook)
	return nil
}

// Stats returns segID's BufferPool statistics snapshot.
func (e *Engine) Stats(segID uint32) (bufferpool.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	seg, ok := e.segments[segID]
	if !ok {
		return bufferpool.Stats{}, status.InvalidArgumentf("segment %d not opened; call OpenTable first", segID)
	}
	return seg.pool.Stats(), nil
}

// FlushAll flushes every dirty frame of segID's BufferPool.
func (e *Engine) FlushAll(segID uint32) error {
	e.mu.Lock()
	seg, ok := e.segments[segID]
	e.mu.Unlock()
	if !ok {
		return status.InvalidArgumentf("segment %d not opened; call OpenTable first", segID)
	}
	return seg.pool.FlushAll()
}

// Close flushes every opened segment's dirty pages and closes the
// underlying SegmentManager's files.
func (e *Engine) Close() error {
	e.mu.Lock()
	segs := make([]*perSegment, 0, len(e.segments))
	for _, s := range e.segments {
		segs = append(segs, s)
	}
	e.mu.Unlock()

	var firstErr error
	for _, s := range segs {
		if err := s.pool.FlushAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.segMgr.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
