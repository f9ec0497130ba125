package status

import (
	"errors"
	"testing"
)

func TestKindOfNil(t *testing.T) {
	if KindOf(nil) != Ok {
		t.Fatalf("expected Ok for nil error")
	}
}

func TestKindOfStatus(t *testing.T) {
	err := NotFoundf("page %d missing", 7)
	if !Is(err, NotFound) {
		t.Fatalf("expected NotFound, got %v", KindOf(err))
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("boom")) != Unknown {
		t.Fatalf("expected Unknown for a non-Status error")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := IOErrorf(cause, "write page %d", 3)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if !Is(err, IOError) {
		t.Fatalf("expected IOError kind")
	}
}
