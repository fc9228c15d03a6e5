package store

import (
	"errors"
	"testing"
)

func TestInsertGet(t *testing.T) {
	p := NewPool[int]()

	h, err := p.Insert(42)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if h.IsNil() {
		t.Fatal("expected non-nil handle")
	}

	v, err := p.Get(h)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if *v != 42 {
		t.Errorf("expected 42, got %d", *v)
	}
	if p.Len() != 1 {
		t.Errorf("expected len 1, got %d", p.Len())
	}
}

func TestRemoveInvalidatesHandle(t *testing.T) {
	p := NewPool[string]()

	h, _ := p.Insert("a")
	if _, err := p.Remove(h); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// Removal bumps the slot generation, so the old handle is stale even
	// before the slot is reused.
	if _, err := p.Get(h); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	if p.Contains(h) {
		t.Error("removed handle should not be contained")
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	p := NewPool[string]()

	h1, _ := p.Insert("a")
	p.Remove(h1)

	// Reuses slot 0 with a bumped generation.
	h2, _ := p.Insert("b")
	if h2.Index != h1.Index {
		t.Fatalf("expected slot reuse, got index %d vs %d", h2.Index, h1.Index)
	}
	if h2.Generation == h1.Generation {
		t.Fatal("expected generation bump on reuse")
	}

	if _, err := p.Get(h1); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	if v, err := p.Get(h2); err != nil || *v != "b" {
		t.Errorf("fresh handle should resolve, got %v, %v", v, err)
	}
}

func TestCapacityExhaustion(t *testing.T) {
	p := NewBoundedPool[int](2)

	if _, err := p.Insert(1); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Insert(2); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Insert(3); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}

func TestForEachAscendingSlotOrder(t *testing.T) {
	p := NewPool[int]()

	var handles []Handle
	for i := 0; i < 5; i++ {
		h, _ := p.Insert(i * 10)
		handles = append(handles, h)
	}
	p.Remove(handles[1])
	p.Remove(handles[3])

	var got []int
	p.ForEach(func(h Handle, v *int) {
		got = append(got, *v)
	})

	want := []int{0, 20, 40}
	if len(got) != len(want) {
		t.Fatalf("expected %d elements, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	p := NewPool[int]()
	var handles []Handle
	for i := 0; i < 4; i++ {
		h, _ := p.Insert(i)
		handles = append(handles, h)
	}
	p.Remove(handles[2])
	p.Remove(handles[0])

	gens := make([]uint32, p.SlotCount())
	occ := make([]bool, p.SlotCount())
	for i := range gens {
		gens[i] = p.GenerationAt(i)
		_, _, occ[i] = p.At(i)
	}
	free := append([]uint32(nil), p.FreeList()...)

	q := NewPool[int]()
	q.Restore(p.Capacity(), gens, occ, free)
	for i := 0; i < p.SlotCount(); i++ {
		if v, _, ok := p.At(i); ok {
			q.RestoreValue(i, *v)
		}
	}

	if q.Len() != p.Len() {
		t.Fatalf("expected len %d, got %d", p.Len(), q.Len())
	}
	for _, h := range handles {
		_, errP := p.Get(h)
		_, errQ := q.Get(h)
		if (errP == nil) != (errQ == nil) || (errP != nil && !errors.Is(errQ, errP)) {
			t.Errorf("handle %v: expected error %v, got %v", h, errP, errQ)
		}
	}
	// Future inserts must reuse the same slots in the same order.
	hp, _ := p.Insert(99)
	hq, _ := q.Insert(99)
	if hp != hq {
		t.Errorf("expected identical slot reuse, got %v vs %v", hp, hq)
	}
}
