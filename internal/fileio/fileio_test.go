package fileio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/huanguang-z/rowstore/status"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	f, err := Open(path, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	want := []byte("hello, storage engine")
	if err := f.WriteAt(want, 128); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got := make([]byte, len(want))
	if err := f.ReadAt(got, 128); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q want %q", got, want)
	}
}

func TestReadPastEOFIsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	f, err := Open(path, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 16)
	err = f.ReadAt(buf, 0)
	if !status.Is(err, status.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestResizeGrowsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grow.bin")
	f, err := Open(path, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if err := f.Resize(4096); err != nil {
		t.Fatalf("resize: %v", err)
	}
	size, err := f.SizeBytes()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 4096 {
		t.Fatalf("expected size 4096, got %d", size)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != 4096 {
		t.Fatalf("expected on-disk size 4096, got %d", st.Size())
	}
}
