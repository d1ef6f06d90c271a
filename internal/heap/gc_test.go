package heap_test

import (
	"testing"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

func TestCollectPreservesRootedList(t *testing.T) {
	h := newHeap(t)

	list := h.Empty
	for i := int32(0); i < 5; i++ {
		list = h.Cons(h.MakeNumber(i), list)
	}

	root := list
	h.Collect(&root)

	var got []int32
	for root != h.Empty {
		got = append(got, h.NumberValue(h.Car(root)))
		root = h.Cdr(root)
	}

	want := []int32{4, 3, 2, 1, 0}

	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCollectReclaimsGarbage(t *testing.T) {
	h := newHeap(t)

	for i := 0; i < 100; i++ {
		h.Cons(h.MakeNumber(int32(i)), h.Empty) // unreachable immediately
	}

	before := h.Free()

	root := h.Empty
	h.Collect(&root)

	if h.Free() >= before {
		t.Errorf("Free() = %s after collecting garbage, want less than %s", h.Free(), before)
	}
}

func TestCollectPreservesSymbolIdentity(t *testing.T) {
	h := newHeap(t)

	foo := h.Intern("foo")

	root := h.Empty
	h.Collect(&root)

	again := h.Intern("foo")

	if foo == again {
		t.Fatalf("expected symbol index to change after relocation (identity tracked by table, not raw index)")
	}

	if h.SymbolName(again) != "foo" {
		t.Errorf("SymbolName after GC = %q, want foo", h.SymbolName(again))
	}
}

func TestCollectPreservesStack(t *testing.T) {
	h := newHeap(t)

	proc := h.MakeNumber(11)
	r0 := h.MakeNumber(22)
	r1 := h.MakeNumber(33)
	r2 := h.MakeNumber(44)
	r3 := h.MakeNumber(55)

	if ok := h.PushFrame(proc, r0, r1, r2, r3); !ok {
		t.Fatalf("PushFrame failed")
	}

	root := h.Empty
	h.Collect(&root)

	gotProc, gotR0, gotR1, gotR2, gotR3, ok := h.PopFrame()
	if !ok {
		t.Fatalf("PopFrame failed after GC")
	}

	if h.NumberValue(gotProc) != 11 || h.NumberValue(gotR0) != 22 || h.NumberValue(gotR1) != 33 ||
		h.NumberValue(gotR2) != 44 || h.NumberValue(gotR3) != 55 {
		t.Errorf("frame values not preserved across collection")
	}
}

func TestCollectPreservesVectorAndStruct(t *testing.T) {
	h := newHeap(t)

	v := h.MakeVector(2, h.Unspecified)
	h.VectorSet(v, 0, h.MakeNumber(1))
	h.VectorSet(v, 1, h.MakeNumber(2))

	typ := h.Intern("point")
	s := h.MakeStruct(typ, h.Unspecified, []cell.Index{h.MakeNumber(3), h.MakeNumber(4)})

	root := h.Cons(v, s)
	h.Collect(&root)

	v = h.Car(root)
	s = h.Cdr(root)

	if h.NumberValue(h.VectorRef(v, 0)) != 1 || h.NumberValue(h.VectorRef(v, 1)) != 2 {
		t.Errorf("vector contents not preserved across collection")
	}

	if h.NumberValue(h.StructField(s, 0)) != 3 || h.NumberValue(h.StructField(s, 1)) != 4 {
		t.Errorf("struct contents not preserved across collection")
	}
}

func TestArenaGrows(t *testing.T) {
	h := heap.New(heap.WithConfig(heap.Config{
		ArenaSize: 50, MaxArenaSize: 400, JamSize: 10, GCSafety: 5, StackSize: 50, MaxString: 256,
	}))

	before := h.ArenaSize()

	// Keep a live chain alive across several forced collections so maybeGrow sees a
	// non-trivial live set at the start of each one.
	root := h.Empty
	for i := 0; i < 40; i++ {
		root = h.Cons(h.MakeNumber(int32(i)), root)
		h.Collect(&root)
	}

	if h.ArenaSize() <= before {
		t.Errorf("ArenaSize() = %d after repeated collections, want growth beyond %d", h.ArenaSize(), before)
	}
}
