// Package diskmgr provides the page-addressed view over a fileio.File: one
// DiskManager represents the pages of a single on-disk segment file.
package diskmgr

import (
	"github.com/huanguang-z/rowstore/internal/fileio"
	"github.com/huanguang-z/rowstore/status"
)

// MinPageSize is the floor below which a configured page size is replaced
// by MinPageSize itself.
const MinPageSize = 1024

// DiskManager translates page ids to byte offsets within one backing file.
type DiskManager struct {
	file     *fileio.File
	pageSize uint32
}

// Open wraps file as a DiskManager with the given page size, falling back
// to MinPageSize if pageSize is below the floor.
func Open(file *fileio.File, pageSize uint32) *DiskManager {
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	return &DiskManager{file: file, pageSize: pageSize}
}

// PageSize reports the configured page size.
func (d *DiskManager) PageSize() uint32 { return d.pageSize }

// PageCount returns file_size / page_size, floored.
func (d *DiskManager) PageCount() (uint32, error) {
	size, err := d.file.SizeBytes()
	if err != nil {
		return 0, err
	}
	return uint32(size / int64(d.pageSize)), nil
}

// ReadPage reads exactly one page's worth of bytes into buf.
func (d *DiskManager) ReadPage(pid uint32, buf []byte) error {
	if uint32(len(buf)) != d.pageSize {
		return status.InvalidArgumentf("read buffer size %d does not match page size %d", len(buf), d.pageSize)
	}
	off := int64(pid) * int64(d.pageSize)
	return d.file.ReadAt(buf, off)
}

// WritePage writes buf as page pid, growing the file first if necessary.
func (d *DiskManager) WritePage(pid uint32, buf []byte) error {
	if uint32(len(buf)) != d.pageSize {
		return status.InvalidArgumentf("write buffer size %d does not match page size %d", len(buf), d.pageSize)
	}
	needed := (int64(pid) + 1) * int64(d.pageSize)
	size, err := d.file.SizeBytes()
	if err != nil {
		return err
	}
	if size < needed {
		if err := d.file.Resize(needed); err != nil {
			return err
		}
	}
	return d.file.WriteAt(buf, int64(pid)*int64(d.pageSize))
}

// ResizeToPages grows (never shrinks) the backing file to hold count pages.
func (d *DiskManager) ResizeToPages(count uint32) error {
	needed := int64(count) * int64(d.pageSize)
	size, err := d.file.SizeBytes()
	if err != nil {
		return err
	}
	if size >= needed {
		return nil
	}
	return d.file.Resize(needed)
}

// Sync forwards to the backing file.
func (d *DiskManager) Sync() error { return d.file.Sync() }

// Close forwards to the backing file.
func (d *DiskManager) Close() error { return d.file.Close() }
