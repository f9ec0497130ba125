// Package fileio is the lowest layer of the storage engine: positional
// read/write/truncate/sync over a single os.File, with short-read and
// short-write handling. Nothing above this package touches *os.File
// directly.
package fileio

import (
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/huanguang-z/rowstore/status"
)

// File wraps one *os.File under a mutex, matching the pack's pager idiom
// (bplustree's OnDiskPager) but split out as its own layer so DiskManager
// can stay page-oriented.
type File struct {
	mu   sync.RWMutex
	f    *os.File
	path string
}

// Open opens path for read/write, creating it if create is true and it
// does not already exist.
func Open(path string, create bool) (*File, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, status.IOErrorf(err, "open %s", path)
	}
	return &File{f: f, path: path}, nil
}

// SizeBytes reports the current file size.
func (fl *File) SizeBytes() (int64, error) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if fl.f == nil {
		return 0, status.IOErrorf(nil, "file %s is closed", fl.path)
	}
	st, err := fl.f.Stat()
	if err != nil {
		return 0, status.IOErrorf(err, "stat %s", fl.path)
	}
	return st.Size(), nil
}

// Resize grows or shrinks the file to exactly n bytes.
func (fl *File) Resize(n int64) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.f == nil {
		return status.IOErrorf(nil, "file %s is closed", fl.path)
	}
	if err := fl.f.Truncate(n); err != nil {
		return status.IOErrorf(err, "truncate %s to %d", fl.path, n)
	}
	return nil
}

// WriteAt writes all of buf at off, looping on short writes and retrying
// on an interrupted system call.
func (fl *File) WriteAt(buf []byte, off int64) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.f == nil {
		return status.IOErrorf(nil, "file %s is closed", fl.path)
	}
	written := 0
	for written < len(buf) {
		n, err := fl.f.WriteAt(buf[written:], off+int64(written))
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return status.IOErrorf(err, "write %s at %d", fl.path, off)
		}
		written += n
	}
	return nil
}

// ReadAt fills buf entirely from off. A read that hits EOF before any byte
// is read is NotFound (offset is past end-of-file); a read that returns
// fewer bytes than requested after EOF and non-zero progress is Corruption
// (unexpected EOF mid-read), matching the spec's FileIO error policy.
func (fl *File) ReadAt(buf []byte, off int64) error {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if fl.f == nil {
		return status.IOErrorf(nil, "file %s is closed", fl.path)
	}
	read := 0
	for read < len(buf) {
		n, err := fl.f.ReadAt(buf[read:], off+int64(read))
		read += n
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if errors.Is(err, io.EOF) {
				if read == 0 {
					return status.NotFoundf("read past end of file %s at %d", fl.path, off)
				}
				return status.Corruptionf("unexpected EOF reading %s at %d: got %d of %d bytes", fl.path, off, read, len(buf))
			}
			return status.IOErrorf(err, "read %s at %d", fl.path, off)
		}
	}
	return nil
}

// Sync forces buffered writes to stable storage.
func (fl *File) Sync() error {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if fl.f == nil {
		return status.IOErrorf(nil, "file %s is closed", fl.path)
	}
	if err := fl.f.Sync(); err != nil {
		return status.IOErrorf(err, "sync %s", fl.path)
	}
	return nil
}

// Close syncs and closes the underlying file descriptor.
func (fl *File) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.f == nil {
		return nil
	}
	syncErr := fl.f.Sync()
	closeErr := fl.f.Close()
	fl.f = nil
	if syncErr != nil {
		return status.IOErrorf(syncErr, "sync before close %s", fl.path)
	}
	if closeErr != nil {
		return status.IOErrorf(closeErr, "close %s", fl.path)
	}
	return nil
}
