package transport

import (
	"context"
	"slices"
	"testing"
)

func TestInFlightTrackAndUntrack(t *testing.T) {
	r := NewInFlightRegistry()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	untrack := r.Track("req-1", cancel)

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	untrack()
	if r.Len() != 0 {
		t.Errorf("Len after untrack = %d, want 0", r.Len())
	}
}

func TestInFlightDuplicateIDs(t *testing.T) {
	r := NewInFlightRegistry()
	noop := func() {}

	u1 := r.Track("same", noop)
	u2 := r.Track("same", noop)
	if !slices.Equal(r.IDs(), []string{"same", "same"}) {
		t.Errorf("IDs = %v", r.IDs())
	}

	u1()
	if r.Len() != 1 {
		t.Errorf("untracking one entry removed %d", 2-r.Len())
	}
	u2()
}

func TestInFlightCancelAll(t *testing.T) {
	r := NewInFlightRegistry()

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()
	r.Track("a", cancel1)
	r.Track("b", cancel2)

	if n := r.CancelAll(); n != 2 {
		t.Errorf("CancelAll = %d, want 2", n)
	}
	if ctx1.Err() == nil || ctx2.Err() == nil {
		t.Error("expected both contexts to be canceled")
	}
}
