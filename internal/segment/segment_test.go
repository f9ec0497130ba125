package segment

import (
	"testing"

	"github.com/huanguang-z/rowstore/internal/slottedpage"
)

func TestAllocatePageAppendsThenReusesFreeStack(t *testing.T) {
	m := New(t.TempDir(), 4096)
	if err := m.EnsureSegment(0); err != nil {
		t.Fatalf("ensure segment: %v", err)
	}

	p0, err := m.AllocatePage(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	p1, err := m.AllocatePage(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if p0 != 0 || p1 != 1 {
		t.Fatalf("expected sequential pages 0,1, got %d,%d", p0, p1)
	}

	if err := m.FreePage(0, p0); err != nil {
		t.Fatalf("free: %v", err)
	}
	p2, err := m.AllocatePage(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if p2 != p0 {
		t.Fatalf("expected freed page %d to be reused, got %d", p0, p2)
	}

	count, err := m.PageCount(0)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected file to still hold 2 pages, got %d", count)
	}
}

func TestProbePageFreeMatchesHeader(t *testing.T) {
	m := New(t.TempDir(), 4096)
	if err := m.EnsureSegment(0); err != nil {
		t.Fatalf("ensure segment: %v", err)
	}
	pid, err := m.AllocatePage(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	buf := make([]byte, 4096)
	if err := slottedpage.InitNew(buf, pid, 4096); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := slottedpage.Insert(buf, 4096, []byte("hello")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	disk, err := m.DiskManager(0)
	if err != nil {
		t.Fatalf("disk manager: %v", err)
	}
	if err := disk.WritePage(pid, buf); err != nil {
		t.Fatalf("write page: %v", err)
	}

	free, err := m.ProbePageFree(0, pid)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	want := slottedpage.ReadHeader(buf).FreeSize
	if free != want {
		t.Fatalf("expected probed free %d, got %d", want, free)
	}
}

func TestEnsureSegmentIdempotent(t *testing.T) {
	m := New(t.TempDir(), 4096)
	if err := m.EnsureSegment(3); err != nil {
		t.Fatalf("ensure segment: %v", err)
	}
	if err := m.EnsureSegment(3); err != nil {
		t.Fatalf("ensure segment (second call): %v", err)
	}
}
