package replacer

import "testing"

func TestNewSelectsClockByDefault(t *testing.T) {
	if _, ok := New("clock", 4, nil).(*Clock); !ok {
		t.Fatalf("expected *Clock for selector %q", "clock")
	}
	if _, ok := New("", 4, nil).(*Clock); !ok {
		t.Fatalf("expected *Clock for empty selector")
	}
}

func TestNewSelectsLRUKWithK(t *testing.T) {
	r, ok := New("lruk:3", 4, nil).(*LRUK)
	if !ok {
		t.Fatalf("expected *LRUK for selector %q", "lruk:3")
	}
	if r.k != 3 {
		t.Fatalf("expected k=3, got %d", r.k)
	}
}

func TestNewUnknownFallsBackToClock(t *testing.T) {
	if _, ok := New("bogus", 4, nil).(*Clock); !ok {
		t.Fatalf("expected unknown selector to fall back to *Clock")
	}
}

func TestNewLRUKFloorsBadK(t *testing.T) {
	r, ok := New("lruk:1", 4, nil).(*LRUK)
	if !ok {
		t.Fatalf("expected *LRUK")
	}
	if r.k != DefaultK {
		t.Fatalf("expected k floored to %d, got %d", DefaultK, r.k)
	}
}
