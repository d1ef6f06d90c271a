package env_test

import (
	"testing"

	"github.com/kettlelang/mes/internal/env"
	"github.com/kettlelang/mes/internal/heap"
)

func TestDefineRefSet(t *testing.T) {
	h := heap.New()
	mod := env.NewModule()

	x := h.Intern("x")
	mod.Define(h, x, "x", h.MakeNumber(1))

	got, ok := mod.Ref(h, "x")
	if !ok || h.NumberValue(got) != 1 {
		t.Fatalf("Ref(x) = %v, %v; want 1, true", got, ok)
	}

	mod.Define(h, x, "x", h.MakeNumber(2))

	got, ok = mod.Ref(h, "x")
	if !ok || h.NumberValue(got) != 2 {
		t.Fatalf("Ref(x) after redefine = %v, %v; want 2, true", got, ok)
	}

	pair, ok := mod.Variable("x")
	if !ok {
		t.Fatalf("Variable(x) not found")
	}

	h.SetCdr(pair, h.MakeNumber(3))

	got, _ = mod.Ref(h, "x")
	if h.NumberValue(got) != 3 {
		t.Errorf("Ref(x) after set-cdr! = %d, want 3", h.NumberValue(got))
	}
}

func TestLookupLexicalShadowsModule(t *testing.T) {
	h := heap.New()
	mod := env.NewModule()

	x := h.Intern("x")
	mod.Define(h, x, "x", h.MakeNumber(100))

	lexicalPair := h.Cons(x, h.MakeNumber(1))
	alist := h.Cons(lexicalPair, h.Empty)

	pair, ok := env.Lookup(h, mod, alist, x, "x")
	if !ok {
		t.Fatalf("Lookup did not find x")
	}

	if h.NumberValue(h.Cdr(pair)) != 1 {
		t.Errorf("Lookup found module binding instead of lexical binding")
	}
}

func TestLookupFallsBackToModule(t *testing.T) {
	h := heap.New()
	mod := env.NewModule()

	y := h.Intern("y")
	mod.Define(h, y, "y", h.MakeNumber(42))

	pair, ok := env.Lookup(h, mod, h.Empty, y, "y")
	if !ok {
		t.Fatalf("Lookup did not fall back to module")
	}

	if h.NumberValue(h.Cdr(pair)) != 42 {
		t.Errorf("Lookup returned wrong value from module")
	}
}

func TestAssertDefined(t *testing.T) {
	h := heap.New()

	if env.AssertDefined(h, h.Undefined) {
		t.Errorf("AssertDefined(undefined) = true, want false")
	}

	if !env.AssertDefined(h, h.MakeNumber(1)) {
		t.Errorf("AssertDefined(1) = false, want true")
	}
}
