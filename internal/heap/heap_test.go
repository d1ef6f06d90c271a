package heap_test

import (
	"testing"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

func newHeap(t *testing.T) *heap.Heap {
	t.Helper()
	return heap.New(heap.WithConfig(heap.Config{
		ArenaSize: 1000, MaxArenaSize: 10_000, JamSize: 200, GCSafety: 50, StackSize: 100, MaxString: 4096,
	}))
}

func TestConsCarCdr(t *testing.T) {
	h := newHeap(t)

	a := h.MakeNumber(1)
	b := h.MakeNumber(2)
	p := h.Cons(a, b)

	if !h.IsPair(p) {
		t.Fatalf("expected pair")
	}

	if got := h.NumberValue(h.Car(p)); got != 1 {
		t.Errorf("Car = %d, want 1", got)
	}

	if got := h.NumberValue(h.Cdr(p)); got != 2 {
		t.Errorf("Cdr = %d, want 2", got)
	}

	h.SetCar(p, h.MakeNumber(9))

	if got := h.NumberValue(h.Car(p)); got != 9 {
		t.Errorf("SetCar: Car = %d, want 9", got)
	}
}

func TestInternIdentity(t *testing.T) {
	h := newHeap(t)

	a := h.Intern("foo")
	b := h.Intern("foo")
	c := h.Intern("bar")

	if a != b {
		t.Errorf("Intern(foo) not idempotent: %v != %v", a, b)
	}

	if a == c {
		t.Errorf("Intern(foo) == Intern(bar)")
	}

	if got := h.SymbolName(a); got != "foo" {
		t.Errorf("SymbolName = %q, want foo", got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	h := newHeap(t)

	for _, s := range []string{"", "a", "hello, world", "odd length str"} {
		idx := h.MakeString(s)
		if got := h.StringValue(idx); got != s {
			t.Errorf("StringValue(MakeString(%q)) = %q", s, got)
		}
	}
}

func TestVector(t *testing.T) {
	h := newHeap(t)

	v := h.MakeVector(3, h.Unspecified)

	if got := h.VectorLen(v); got != 3 {
		t.Fatalf("VectorLen = %d, want 3", got)
	}

	for i := 0; i < 3; i++ {
		if got := h.VectorRef(v, i); got != h.Unspecified {
			t.Errorf("VectorRef(%d) = %v, want unspecified", i, got)
		}
	}

	h.VectorSet(v, 1, h.MakeNumber(42))

	if got := h.NumberValue(h.VectorRef(v, 1)); got != 42 {
		t.Errorf("VectorRef(1) after set = %d, want 42", got)
	}
}

func TestStruct(t *testing.T) {
	h := newHeap(t)

	typ := h.Intern("my-type")
	printer := h.Unspecified
	f0 := h.MakeNumber(1)
	f1 := h.MakeNumber(2)

	s := h.MakeStruct(typ, printer, []cell.Index{f0, f1})

	if h.StructType(s) != typ {
		t.Errorf("StructType mismatch")
	}

	if h.StructFieldCount(s) != 2 {
		t.Errorf("StructFieldCount = %d, want 2", h.StructFieldCount(s))
	}

	if got := h.NumberValue(h.StructField(s, 1)); got != 2 {
		t.Errorf("StructField(1) = %d, want 2", got)
	}
}

func TestClosure(t *testing.T) {
	h := newHeap(t)

	formals := h.Intern("x")
	body := h.MakeNumber(7)
	env := h.Empty

	c := h.MakeClosure(h.ClosureTag, formals, body, env)

	if h.ClosureFormals(c) != formals {
		t.Errorf("ClosureFormals mismatch")
	}

	if h.ClosureBody(c) != body {
		t.Errorf("ClosureBody mismatch")
	}

	if h.ClosureEnv(c) != env {
		t.Errorf("ClosureEnv mismatch")
	}
}

func TestFrameStack(t *testing.T) {
	h := newHeap(t)

	proc := h.MakeNumber(1)
	r0 := h.MakeNumber(2)
	r1 := h.MakeNumber(3)
	r2 := h.MakeNumber(4)
	r3 := h.MakeNumber(5)

	if ok := h.PushFrame(proc, r0, r1, r2, r3); !ok {
		t.Fatalf("PushFrame failed")
	}

	gotProc, gotR0, gotR1, gotR2, gotR3, ok := h.PopFrame()
	if !ok {
		t.Fatalf("PopFrame failed")
	}

	if gotProc != proc || gotR0 != r0 || gotR1 != r1 || gotR2 != r2 || gotR3 != r3 {
		t.Errorf("frame round trip mismatch")
	}
}

func TestValues(t *testing.T) {
	h := newHeap(t)

	first := h.MakeNumber(1)
	rest := h.Cons(h.MakeNumber(2), h.Empty)

	v := h.MakeValues(first, rest)

	if !h.IsValues(v) {
		t.Fatalf("expected values compound")
	}

	if h.ValuesFirst(v) != first {
		t.Errorf("ValuesFirst mismatch")
	}

	if h.ValuesRest(v) != rest {
		t.Errorf("ValuesRest mismatch")
	}
}
